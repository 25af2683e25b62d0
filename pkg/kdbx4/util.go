// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"encoding/base64"
	"encoding/binary"
)

// decodeBase64Loose decodes s as standard base64, falling back to
// unpadded ("raw") base64 when the input's length isn't a multiple of 4,
// since some keyfile and entry-binary producers omit padding.
func decodeBase64Loose(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func readUint16LE(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func readUint32LE(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func readUint64LE(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

func putUint32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func putUint64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
