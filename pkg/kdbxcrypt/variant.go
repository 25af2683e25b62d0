// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbxcrypt

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Variant dictionary value type tags (spec section 4.2).
const (
	VariantTypeUInt32 = 0x04
	VariantTypeUInt64 = 0x05
	VariantTypeBool   = 0x08
	VariantTypeInt32  = 0x0C
	VariantTypeInt64  = 0x0D
	VariantTypeString = 0x18
	VariantTypeBytes  = 0x42
	variantTypeEnd    = 0x00
)

const (
	variantVersionMajor = 0x01
	variantVersionMinor = 0x00
)

// VariantEntry is one typed value in a VariantDict.
type VariantEntry struct {
	Type  byte
	Value any // uint32, uint64, bool, int32, int64, string, or []byte
}

// VariantDict is the typed key/value dictionary used to carry KDF
// parameters (outer header id 11) and custom data. Insertion order is
// preserved so that re-emitting an unmodified dictionary reproduces the
// same bytes.
type VariantDict struct {
	order  []string
	values map[string]VariantEntry
}

// NewVariantDict returns an empty dictionary ready for Set calls.
func NewVariantDict() *VariantDict {
	return &VariantDict{values: make(map[string]VariantEntry)}
}

func (d *VariantDict) set(name string, e VariantEntry) {
	if _, exists := d.values[name]; !exists {
		d.order = append(d.order, name)
	}
	d.values[name] = e
}

// SetUInt64 stores a u64 value, used for AES-KDF rounds and Argon2
// iteration/memory counters.
func (d *VariantDict) SetUInt64(name string, v uint64) { d.set(name, VariantEntry{VariantTypeUInt64, v}) }

// SetUInt32 stores a u32 value, used for Argon2 parallelism/version.
func (d *VariantDict) SetUInt32(name string, v uint32) { d.set(name, VariantEntry{VariantTypeUInt32, v}) }

// SetBytes stores a raw byte-array value, used for KDF salts and seeds.
func (d *VariantDict) SetBytes(name string, v []byte) { d.set(name, VariantEntry{VariantTypeBytes, v}) }

// SetString stores a UTF-8 string value.
func (d *VariantDict) SetString(name string, v string) { d.set(name, VariantEntry{VariantTypeString, v}) }

// SetBool stores a bool value.
func (d *VariantDict) SetBool(name string, v bool) { d.set(name, VariantEntry{VariantTypeBool, v}) }

// Get returns the raw entry for name, if present.
func (d *VariantDict) Get(name string) (VariantEntry, bool) {
	e, ok := d.values[name]
	return e, ok
}

// UInt64 returns the u64 value for name, or 0 if absent or mistyped.
func (d *VariantDict) UInt64(name string) uint64 {
	if e, ok := d.values[name]; ok {
		if v, ok := e.Value.(uint64); ok {
			return v
		}
	}
	return 0
}

// UInt32 returns the u32 value for name, or 0 if absent or mistyped.
func (d *VariantDict) UInt32(name string) uint32 {
	if e, ok := d.values[name]; ok {
		if v, ok := e.Value.(uint32); ok {
			return v
		}
	}
	return 0
}

// Bytes returns the byte-array value for name, or nil if absent or
// mistyped.
func (d *VariantDict) Bytes(name string) []byte {
	if e, ok := d.values[name]; ok {
		if v, ok := e.Value.([]byte); ok {
			return v
		}
	}
	return nil
}

// Names returns the dictionary's keys in insertion order.
func (d *VariantDict) Names() []string {
	return append([]string(nil), d.order...)
}

// Marshal encodes the dictionary to its wire form.
func (d *VariantDict) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte(variantVersionMajor)
	buf.WriteByte(variantVersionMinor)

	for _, name := range d.order {
		entry := d.values[name]

		var valueBytes []byte
		switch entry.Type {
		case VariantTypeUInt32:
			v, _ := entry.Value.(uint32)
			valueBytes = make([]byte, 4)
			binary.LittleEndian.PutUint32(valueBytes, v)
		case VariantTypeUInt64:
			v, _ := entry.Value.(uint64)
			valueBytes = make([]byte, 8)
			binary.LittleEndian.PutUint64(valueBytes, v)
		case VariantTypeBool:
			v, _ := entry.Value.(bool)
			valueBytes = []byte{0}
			if v {
				valueBytes[0] = 1
			}
		case VariantTypeInt32:
			v, _ := entry.Value.(int32)
			valueBytes = make([]byte, 4)
			binary.LittleEndian.PutUint32(valueBytes, uint32(v))
		case VariantTypeInt64:
			v, _ := entry.Value.(int64)
			valueBytes = make([]byte, 8)
			binary.LittleEndian.PutUint64(valueBytes, uint64(v))
		case VariantTypeString:
			v, _ := entry.Value.(string)
			valueBytes = []byte(v)
		case VariantTypeBytes:
			v, _ := entry.Value.([]byte)
			valueBytes = v
		default:
			return nil, fmt.Errorf("kdbxcrypt: cannot write unknown variant type 0x%02x for %q", entry.Type, name)
		}

		nameBytes := []byte(name)
		buf.WriteByte(entry.Type)
		writeUint32(buf, uint32(len(nameBytes)))
		buf.Write(nameBytes)
		writeUint32(buf, uint32(len(valueBytes)))
		buf.Write(valueBytes)
	}

	buf.WriteByte(variantTypeEnd)
	return buf.Bytes(), nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// UnmarshalVariantDict decodes a variant dictionary from its wire form.
// Unknown value types are a parse error, per spec section 4.2.
func UnmarshalVariantDict(data []byte) (*VariantDict, error) {
	r := bytes.NewReader(data)

	var major, minor byte
	if err := binary.Read(r, binary.LittleEndian, &major); err != nil {
		return nil, fmt.Errorf("kdbxcrypt: truncated variant dictionary: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &minor); err != nil {
		return nil, fmt.Errorf("kdbxcrypt: truncated variant dictionary: %w", err)
	}
	if major != variantVersionMajor {
		return nil, fmt.Errorf("kdbxcrypt: unsupported variant dictionary version %d", major)
	}

	d := NewVariantDict()

	for {
		typ, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("kdbxcrypt: truncated variant dictionary: %w", err)
		}
		if typ == variantTypeEnd {
			break
		}

		name, err := readVariantField(r)
		if err != nil {
			return nil, err
		}
		value, err := readVariantField(r)
		if err != nil {
			return nil, err
		}

		parsed, err := parseVariantValue(typ, value)
		if err != nil {
			return nil, err
		}
		d.set(string(name), VariantEntry{Type: typ, Value: parsed})
	}

	return d, nil
}

func readVariantField(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("kdbxcrypt: truncated variant dictionary: %w", err)
	}
	buf := make([]byte, length)
	if _, err := readFull(r, buf); err != nil {
		return nil, fmt.Errorf("kdbxcrypt: truncated variant dictionary: %w", err)
	}
	return buf, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, fmt.Errorf("kdbxcrypt: short read")
		}
	}
	return n, nil
}

func parseVariantValue(typ byte, raw []byte) (any, error) {
	switch typ {
	case VariantTypeUInt32:
		if len(raw) != 4 {
			return nil, ErrInvalidParam
		}
		return binary.LittleEndian.Uint32(raw), nil
	case VariantTypeUInt64:
		if len(raw) != 8 {
			return nil, ErrInvalidParam
		}
		return binary.LittleEndian.Uint64(raw), nil
	case VariantTypeBool:
		if len(raw) != 1 {
			return nil, ErrInvalidParam
		}
		return raw[0] != 0, nil
	case VariantTypeInt32:
		if len(raw) != 4 {
			return nil, ErrInvalidParam
		}
		return int32(binary.LittleEndian.Uint32(raw)), nil
	case VariantTypeInt64:
		if len(raw) != 8 {
			return nil, ErrInvalidParam
		}
		return int64(binary.LittleEndian.Uint64(raw)), nil
	case VariantTypeString:
		return string(raw), nil
	case VariantTypeBytes:
		return raw, nil
	default:
		return nil, fmt.Errorf("kdbxcrypt: unknown variant type 0x%02x", typ)
	}
}
