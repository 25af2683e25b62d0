// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import "time"

// CustomDataItem is a single plugin-defined key/value pair attached to a
// Database, Group, or Entry, with the time it was last modified (KDBX4.1
// addition; LastModified is the zero value for databases written by
// clients that predate it).
type CustomDataItem struct {
	Value        string
	LastModified time.Time
}

// CustomData is an order-preserving map of plugin-defined key/value
// pairs, mirroring VariantDict's emit-in-insertion-order discipline so
// that re-emitting an unmodified database reproduces its XML byte for
// byte.
type CustomData struct {
	keys   []string
	values map[string]CustomDataItem
}

// NewCustomData returns an empty CustomData ready for use.
func NewCustomData() CustomData {
	return CustomData{values: make(map[string]CustomDataItem)}
}

// Set inserts or replaces the item stored under key, preserving its
// original position on replace.
func (c *CustomData) Set(key string, item CustomDataItem) {
	if c.values == nil {
		c.values = make(map[string]CustomDataItem)
	}
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = item
}

// Get returns the item stored under key, if any.
func (c CustomData) Get(key string) (CustomDataItem, bool) {
	item, ok := c.values[key]
	return item, ok
}

// Delete removes key, if present.
func (c *CustomData) Delete(key string) {
	if _, ok := c.values[key]; !ok {
		return
	}
	delete(c.values, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the stored keys in insertion order.
func (c CustomData) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of stored items.
func (c CustomData) Len() int { return len(c.keys) }
