// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

// Fields is an order-preserving map of an entry's named values (Title,
// UserName, Password, URL, Notes, and any custom field a client adds).
// Order is preserved so re-emitting an unmodified entry reproduces its
// XML String elements in their original sequence.
type Fields struct {
	keys   []string
	values map[string]Value
}

// Standard field names used by every KeePass-compatible client.
const (
	FieldTitle    = "Title"
	FieldUserName = "UserName"
	FieldPassword = "Password"
	FieldURL      = "URL"
	FieldNotes    = "Notes"
)

// NewFields returns an empty Fields map.
func NewFields() Fields {
	return Fields{values: make(map[string]Value)}
}

// Set inserts or replaces the value stored under key, preserving its
// original position on replace.
func (f *Fields) Set(key string, v Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Get returns the value stored under key, if any.
func (f Fields) Get(key string) (Value, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Delete removes key, closing its Value first if protected.
func (f *Fields) Delete(key string) {
	v, ok := f.values[key]
	if !ok {
		return
	}
	v.Close()
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the stored keys in insertion order.
func (f Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Close zeroizes every protected value held in f.
func (f Fields) Close() {
	for _, k := range f.keys {
		f.values[k].Close()
	}
}
