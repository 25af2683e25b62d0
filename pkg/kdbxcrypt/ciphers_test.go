// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbxcrypt

import (
	"bytes"
	"testing"
)

func TestOuterCipherRoundTrip(t *testing.T) {
	for _, algo := range []string{"aes256", "twofish", "chacha20"} {
		t.Run(algo, func(t *testing.T) {
			key, err := RandomBytes(32)
			if err != nil {
				t.Fatalf("RandomBytes key: %v", err)
			}
			ivSize, err := OuterIVSize(algo)
			if err != nil {
				t.Fatalf("OuterIVSize: %v", err)
			}
			iv, err := RandomBytes(ivSize)
			if err != nil {
				t.Fatalf("RandomBytes iv: %v", err)
			}

			enc, err := NewOuterCipher(algo, key, iv)
			if err != nil {
				t.Fatalf("NewOuterCipher: %v", err)
			}
			dec, err := NewOuterCipher(algo, key, iv)
			if err != nil {
				t.Fatalf("NewOuterCipher: %v", err)
			}

			plaintext := []byte("the quick brown fox jumps over the lazy dog, 0123456789")
			ciphertext, err := enc.Encrypt(plaintext)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			roundTripped, err := dec.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if !bytes.Equal(roundTripped, plaintext) {
				t.Errorf("round trip mismatch: got %q want %q", roundTripped, plaintext)
			}
		})
	}
}

func TestInnerCipherRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		id     uint32
		keyLen int
	}{
		{"plain", 0, 0},
		{"salsa20", 2, 32},
		{"chacha20", 3, 64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key := make([]byte, tc.keyLen)
			if tc.keyLen > 0 {
				k, err := RandomBytes(tc.keyLen)
				if err != nil {
					t.Fatalf("RandomBytes: %v", err)
				}
				key = k
			}

			enc, err := NewInnerCipher(tc.id, key)
			if err != nil {
				t.Fatalf("NewInnerCipher (encrypt side): %v", err)
			}
			dec, err := NewInnerCipher(tc.id, key)
			if err != nil {
				t.Fatalf("NewInnerCipher (decrypt side): %v", err)
			}

			values := []string{"password1", "a longer secret value to check multi-block streaming", "x"}
			for _, v := range values {
				ciphertext, err := enc.Encrypt([]byte(v))
				if err != nil {
					t.Fatalf("Encrypt: %v", err)
				}
				plaintext, err := dec.Decrypt(ciphertext)
				if err != nil {
					t.Fatalf("Decrypt: %v", err)
				}
				if string(plaintext) != v {
					t.Errorf("round trip mismatch: got %q want %q", plaintext, v)
				}
			}
		})
	}
}

func TestInnerCipherIsPositionSensitive(t *testing.T) {
	key, _ := RandomBytes(32)

	enc, _ := NewInnerCipher(2, key)
	c1, _ := enc.Encrypt([]byte("first value"))
	c2, _ := enc.Encrypt([]byte("second value"))

	dec, _ := NewInnerCipher(2, key)
	// Decrypt out of order: c2 first, as if the values had been swapped on
	// the wire without re-encrypting. Per spec section 8, this must
	// desynchronize the keystream and produce garbage, not the original
	// plaintext.
	wrong, _ := dec.Decrypt(c2)
	if string(wrong) == "second value" {
		t.Fatalf("decrypting out of order should not reproduce the original plaintext")
	}
}

func TestOuterCipherUnknown(t *testing.T) {
	if _, err := NewOuterCipher("rot13", nil, nil); err != ErrUnknownCipher {
		t.Fatalf("err = %v, want ErrUnknownCipher", err)
	}
}
