// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbxcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20/salsa"
	"golang.org/x/crypto/twofish"
)

// OuterCipher is a whole-buffer symmetric cipher used to encrypt the KDBX4
// payload. AES-256 and Twofish operate in CBC mode with PKCS#7 padding;
// ChaCha20 is an unpadded stream cipher.
type OuterCipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// OuterIVSize returns the outer IV length this cipher expects, used when
// generating the IV that is stored at outer header id 7.
func OuterIVSize(cipherAlgo string) (int, error) {
	switch cipherAlgo {
	case "aes256", "twofish":
		return aes.BlockSize, nil
	case "chacha20":
		return chacha20.NonceSize, nil
	default:
		return 0, ErrUnknownCipher
	}
}

// NewOuterCipher builds the outer cipher named by cipherAlgo ("aes256",
// "twofish", "chacha20") bound to key and iv.
func NewOuterCipher(cipherAlgo string, key, iv []byte) (OuterCipher, error) {
	switch cipherAlgo {
	case "aes256":
		return newCBCCipher(aes.NewCipher, key, iv, aes.BlockSize)
	case "twofish":
		return newCBCCipher(twofish.NewCipher, key, iv, twofish.BlockSize)
	case "chacha20":
		return newChaCha20Outer(key, iv)
	default:
		return nil, ErrUnknownCipher
	}
}

type cbcCipher struct {
	block     cipher.Block
	iv        []byte
	blockSize int
}

func newCBCCipher(newBlock func([]byte) (cipher.Block, error), key, iv []byte, blockSize int) (*cbcCipher, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, fmt.Errorf("kdbxcrypt: %w", err)
	}
	if len(iv) != blockSize {
		return nil, ErrInvalidKeySize
	}
	return &cbcCipher{block: block, iv: iv, blockSize: blockSize}, nil
}

func (c *cbcCipher) Encrypt(plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, c.blockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return out, nil
}

func (c *cbcCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%c.blockSize != 0 {
		return nil, fmt.Errorf("kdbxcrypt: ciphertext not a multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, c.blockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("kdbxcrypt: empty padded buffer")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("kdbxcrypt: invalid PKCS#7 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("kdbxcrypt: invalid PKCS#7 padding")
		}
	}
	return data[:len(data)-padLen], nil
}

type chacha20Outer struct {
	key []byte
	iv  []byte
}

func newChaCha20Outer(key, iv []byte) (*chacha20Outer, error) {
	if len(key) != chacha20.KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(iv) != chacha20.NonceSize {
		return nil, ErrInvalidKeySize
	}
	return &chacha20Outer{key: key, iv: iv}, nil
}

func (c *chacha20Outer) Encrypt(plaintext []byte) ([]byte, error) {
	return c.xor(plaintext)
}

func (c *chacha20Outer) Decrypt(ciphertext []byte) ([]byte, error) {
	return c.xor(ciphertext)
}

func (c *chacha20Outer) xor(data []byte) ([]byte, error) {
	stream, err := chacha20.NewUnauthenticatedCipher(c.key, c.iv)
	if err != nil {
		return nil, fmt.Errorf("kdbxcrypt: %w", err)
	}
	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out, nil
}

// InnerCipher is a stateful stream cipher applied to individual Protected
// XML field values, in document order. Encrypt and Decrypt both advance
// the same internal keystream position, since both operations are a plain
// XOR against the keystream.
type InnerCipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// innerPlain is the identity inner cipher.
type innerPlain struct{}

func (innerPlain) Encrypt(b []byte) ([]byte, error) { return b, nil }
func (innerPlain) Decrypt(b []byte) ([]byte, error) { return b, nil }

// salsa20FixedIV is the fixed 8-byte nonce KDBX uses for the Salsa20 inner
// stream cipher (spec section 4.6): hex E830094B97205D2A.
var salsa20FixedIV = [8]byte{0xE8, 0x30, 0x09, 0x4B, 0x97, 0x20, 0x5D, 0x2A}

type innerSalsa20 struct {
	key      [32]byte
	counter  [16]byte // bytes 0..8 = nonce, bytes 8..16 = little-endian block counter
	leftover []byte
}

// NewInnerCipher builds the inner stream cipher identified by id (0 =
// Plain, 2 = Salsa20, 3 = ChaCha20) keyed by key, as read from or about to
// be written to the KDBX4 inner header.
func NewInnerCipher(id uint32, key []byte) (InnerCipher, error) {
	switch id {
	case 0:
		return innerPlain{}, nil
	case 2:
		if len(key) != 32 {
			return nil, ErrInvalidKeySize
		}
		s := &innerSalsa20{}
		copy(s.key[:], key)
		copy(s.counter[:8], salsa20FixedIV[:])
		return s, nil
	case 3:
		return newInnerChaCha20(key)
	default:
		return nil, ErrUnknownCipher
	}
}

func (s *innerSalsa20) Encrypt(b []byte) ([]byte, error) { return s.xor(b), nil }
func (s *innerSalsa20) Decrypt(b []byte) ([]byte, error) { return s.xor(b), nil }

func (s *innerSalsa20) xor(data []byte) []byte {
	out := make([]byte, len(data))
	pos := 0

	if len(s.leftover) > 0 {
		n := copy(out, s.leftover[:min(len(s.leftover), len(data))])
		for i := 0; i < n; i++ {
			out[i] = data[i] ^ s.leftover[i]
		}
		s.leftover = s.leftover[n:]
		pos = n
	}

	remaining := data[pos:]
	if len(remaining) == 0 {
		return out
	}

	numBlocks := (len(remaining) + 63) / 64
	zero := make([]byte, numBlocks*64)
	keystream := make([]byte, numBlocks*64)
	salsa.XORKeyStream(keystream, zero, &s.counter, &s.key)
	advanceSalsaCounter(&s.counter, uint64(numBlocks))

	for i, b := range remaining {
		out[pos+i] = b ^ keystream[i]
	}
	if len(keystream) > len(remaining) {
		s.leftover = keystream[len(remaining):]
	}
	return out
}

func advanceSalsaCounter(counter *[16]byte, blocks uint64) {
	cur := binary.LittleEndian.Uint64(counter[8:16])
	binary.LittleEndian.PutUint64(counter[8:16], cur+blocks)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

type innerChaCha20 struct {
	stream *chacha20.Cipher
}

// newInnerChaCha20 derives a 32-byte key and a 12-byte IV from SHA-512 of
// the 64-byte provided inner key, per spec section 4.6.
func newInnerChaCha20(key []byte) (*innerChaCha20, error) {
	if len(key) != 64 {
		return nil, ErrInvalidKeySize
	}
	digest := sha512.Sum512(key)
	stream, err := chacha20.NewUnauthenticatedCipher(digest[:32], digest[32:44])
	if err != nil {
		return nil, fmt.Errorf("kdbxcrypt: %w", err)
	}
	return &innerChaCha20{stream: stream}, nil
}

func (c *innerChaCha20) Encrypt(b []byte) ([]byte, error) { return c.xor(b), nil }
func (c *innerChaCha20) Decrypt(b []byte) ([]byte, error) { return c.xor(b), nil }

func (c *innerChaCha20) xor(data []byte) []byte {
	out := make([]byte, len(data))
	c.stream.XORKeyStream(out, data)
	return out
}
