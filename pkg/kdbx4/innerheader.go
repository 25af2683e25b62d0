// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"bytes"
	"fmt"
	"io"
)

// Inner header field ids, per spec section 4.6. The inner header uses
// the same id+LE32-length+value TLV shape as the outer header, but lives
// inside the decrypted (and, if enabled, decompressed) payload, ahead of
// the XML body.
const (
	innerFieldEndOfHeader     byte = 0
	innerFieldRandomStreamID  byte = 1
	innerFieldRandomStreamKey byte = 2
	innerFieldBinary          byte = 3
)

// InnerHeader carries the inner stream cipher selection and key, plus
// the raw binary attachments referenced by index from the XML body.
type InnerHeader struct {
	RandomStreamID  uint32
	RandomStreamKey []byte
	Binaries        []HeaderAttachment
}

// ReadInnerHeader reads the inner TLV field sequence from r, up to and
// including the terminal field.
func ReadInnerHeader(r io.Reader) (*InnerHeader, error) {
	h := &InnerHeader{}
	for {
		var fieldHeader [5]byte
		if _, err := io.ReadFull(r, fieldHeader[:]); err != nil {
			return nil, &FormatError{Op: "inner header", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
		}
		id := fieldHeader[0]
		length := int(readUint32LE(fieldHeader[1:5]))
		if err := validateLength("inner header", length, MaxHeaderFieldLength); err != nil {
			return nil, err
		}

		value := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(r, value); err != nil {
				return nil, &FormatError{Op: "inner header", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
			}
		}

		switch id {
		case innerFieldEndOfHeader:
			return h, nil
		case innerFieldRandomStreamID:
			if len(value) != 4 {
				return nil, &FormatError{Op: "inner random stream id", Err: ErrFormat}
			}
			h.RandomStreamID = readUint32LE(value)
		case innerFieldRandomStreamKey:
			h.RandomStreamKey = value
		case innerFieldBinary:
			if len(value) < 1 {
				return nil, &FormatError{Op: "inner binary", Err: ErrFormat}
			}
			h.Binaries = append(h.Binaries, HeaderAttachment{Flags: value[0], Content: value[1:]})
		default:
			// Unknown inner header field: skip, per the same
			// forward-compatibility policy as the outer header.
		}
	}
}

// Marshal encodes h as the inner header TLV field sequence, terminated by
// the EndOfHeader field.
func (h *InnerHeader) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	writeField := func(id byte, value []byte) {
		buf.WriteByte(id)
		buf.Write(putUint32LE(uint32(len(value))))
		buf.Write(value)
	}

	writeField(innerFieldRandomStreamID, putUint32LE(h.RandomStreamID))
	writeField(innerFieldRandomStreamKey, h.RandomStreamKey)
	for _, bin := range h.Binaries {
		value := make([]byte, 1+len(bin.Content))
		value[0] = bin.Flags
		copy(value[1:], bin.Content)
		writeField(innerFieldBinary, value)
	}
	writeField(innerFieldEndOfHeader, nil)

	return buf.Bytes(), nil
}
