// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-kdbx/pkg/kdbxcrypt"
)

// blockHMACKeyBuilder derives the per-block HMAC key used to authenticate
// each chunk of the payload block stream, per spec section 4.3: a base
// key from SHA-512(masterSeed || transformedKey || 0x01), then a
// per-block key from SHA-512(LE64(index) || baseKey).
type blockHMACKeyBuilder struct {
	baseKey []byte
}

func newBlockHMACKeyBuilder(masterSeed, transformedKey []byte) *blockHMACKeyBuilder {
	return &blockHMACKeyBuilder{
		baseKey: kdbxcrypt.SHA512(masterSeed, transformedKey, []byte{0x01}),
	}
}

func (b *blockHMACKeyBuilder) blockKey(index uint64) []byte {
	return kdbxcrypt.SHA512(putUint64LE(index), b.baseKey)
}

// blockHMAC returns HMAC-SHA-256 over LE64(index) || LE32(len(data)) ||
// data, keyed with the derived per-block key. This same construction
// authenticates the terminal zero-length block.
func (b *blockHMACKeyBuilder) blockHMAC(index uint64, data []byte) []byte {
	key := b.blockKey(index)
	defer kdbxcrypt.Clear(key)
	return kdbxcrypt.HMACSHA256(key, putUint64LE(index), putUint32LE(uint32(len(data))), data)
}

// HeaderHMACKey returns the block key used to authenticate the outer
// header itself: the block key for index 0xFFFFFFFFFFFFFFFF, a
// reserved index no payload block ever uses.
func HeaderHMACKey(masterSeed, transformedKey []byte) []byte {
	b := newBlockHMACKeyBuilder(masterSeed, transformedKey)
	defer kdbxcrypt.Clear(b.baseKey)
	return b.blockKey(^uint64(0))
}

// WriteBlockStream splits plaintext into writeChunkSize blocks, each
// prefixed with a 32-byte HMAC and a 4-byte little-endian length, and
// writes them to w, followed by a terminal zero-length block.
func WriteBlockStream(w io.Writer, plaintext, masterSeed, transformedKey []byte) error {
	builder := newBlockHMACKeyBuilder(masterSeed, transformedKey)
	defer kdbxcrypt.Clear(builder.baseKey)

	index := uint64(0)
	for offset := 0; ; {
		end := offset + writeChunkSize
		if end > len(plaintext) {
			end = len(plaintext)
		}
		chunk := plaintext[offset:end]

		mac := builder.blockHMAC(index, chunk)
		if _, err := w.Write(mac); err != nil {
			return err
		}
		if _, err := w.Write(putUint32LE(uint32(len(chunk)))); err != nil {
			return err
		}
		if len(chunk) > 0 {
			if _, err := w.Write(chunk); err != nil {
				return err
			}
		}

		if len(chunk) == 0 {
			return nil
		}
		offset = end
		index++
	}
}

// ReadBlockStream reads a block stream written by WriteBlockStream from
// r, verifying every block's HMAC, and returns the reassembled
// plaintext. It returns an AuthError wrapping ErrAuthenticationFailure on
// the first HMAC mismatch.
func ReadBlockStream(r io.Reader, masterSeed, transformedKey []byte) ([]byte, error) {
	builder := newBlockHMACKeyBuilder(masterSeed, transformedKey)
	defer kdbxcrypt.Clear(builder.baseKey)

	var out bytes.Buffer
	index := uint64(0)

	for {
		var header [36]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return nil, &FormatError{Op: "block stream", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
		}
		storedHMAC := header[:32]
		length := readUint32LE(header[32:36])

		if err := validateLength("block stream", int(length), MaxPayloadBlockLength); err != nil {
			return nil, err
		}

		data := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, &FormatError{Op: "block stream", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
			}
		}

		computed := builder.blockHMAC(index, data)
		if !kdbxcrypt.ConstantTimeEqual(computed, storedHMAC) {
			return nil, &AuthError{Context: fmt.Sprintf("block %d", index), Err: ErrAuthenticationFailure}
		}

		if length == 0 {
			return out.Bytes(), nil
		}
		out.Write(data)
		index++
	}
}
