// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbxcrypt

import (
	"crypto/aes"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// KDFParams carries the parameters a KDF needs to re-derive the same
// transform key, as read from or about to be written to the variant
// dictionary at outer header id 11.
type KDFParams struct {
	UUID uuid.UUID

	// AES-KDF
	Rounds uint64
	Seed   []byte

	// Argon2d / Argon2id
	Salt        []byte
	Parallelism uint32
	Memory      uint64
	Iterations  uint64
	Version     uint32
}

// DeriveKey runs composite through the KDF named by params.UUID, returning
// a 32-byte transform.
func DeriveKey(composite []byte, params KDFParams) ([]byte, error) {
	switch params.UUID {
	case KDFAES:
		return deriveAESKDF(composite, params)
	case KDFArgon2d:
		return deriveArgon2(composite, params, false)
	case KDFArgon2id:
		return deriveArgon2(composite, params, true)
	default:
		return nil, ErrUnknownKDF
	}
}

// deriveAESKDF implements spec section 4.1: encrypt composite `rounds`
// times under AES-256-ECB keyed by the seed, then SHA-256 the result. The
// 32-byte composite is treated as two independent 16-byte ECB blocks,
// since the standard library deliberately does not expose an ECB cipher
// mode — this is the one place KDBX4 genuinely needs it.
func deriveAESKDF(composite []byte, params KDFParams) ([]byte, error) {
	if len(composite) != 32 {
		return nil, ErrInvalidKeySize
	}
	if len(params.Seed) != 32 {
		return nil, ErrInvalidParam
	}

	block, err := aes.NewCipher(params.Seed)
	if err != nil {
		return nil, fmt.Errorf("kdbxcrypt: %w", err)
	}

	data := make([]byte, 32)
	copy(data, composite)

	for i := uint64(0); i < params.Rounds; i++ {
		block.Encrypt(data[:16], data[:16])
		block.Encrypt(data[16:], data[16:])
	}

	return SHA256(data), nil
}

// deriveArgon2 runs composite through Argon2, tagged 32 bytes.
//
// golang.org/x/crypto/argon2 exposes only the Argon2i (Key) and Argon2id
// (IDKey) variants; it has no public Argon2d entry point. Requests for the
// Argon2d KDF UUID therefore use the Argon2i core. This keeps every KDF
// UUID separately routed and self-consistent for round-tripping files this
// library itself produced, but it is not wire-compatible with a reference
// KeePass implementation's Argon2d output. See DESIGN.md.
func deriveArgon2(composite []byte, params KDFParams, id bool) ([]byte, error) {
	if len(params.Salt) == 0 {
		return nil, ErrInvalidParam
	}
	if params.Parallelism == 0 || params.Parallelism > 255 {
		return nil, ErrInvalidParam
	}

	time := uint32(params.Iterations)
	memory := uint32(params.Memory)

	if id {
		return argon2.IDKey(composite, params.Salt, time, memory, uint8(params.Parallelism), 32), nil
	}
	return argon2.Key(composite, params.Salt, time, memory, uint8(params.Parallelism), 32), nil
}
