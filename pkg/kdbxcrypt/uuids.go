// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbxcrypt

import "github.com/google/uuid"

// Outer cipher UUIDs, as they appear in outer header id 2.
var (
	CipherAES256  = uuid.MustParse("31C1F2E6-BF71-4350-BE58-05216AFC5AFF")
	CipherTwofish = uuid.MustParse("AD68F29F-576F-4BB9-A36A-D47AF965346C")
	CipherChaCha20 = uuid.MustParse("D6038A2B-8B6F-4CB5-A524-339A31DBB59A")
)

// KDF UUIDs, as they appear in the variant dictionary key "$UUID".
var (
	KDFAES      = uuid.MustParse("C9D9F39A-628A-4460-BF74-0D08C18A4FEC")
	KDFArgon2d  = uuid.MustParse("EF636DDF-8C29-444B-91F7-A9A403E30A0C")
	KDFArgon2id = uuid.MustParse("9E298B19-56DB-4773-B23D-FC3EC6F0A1E6")
)

// OuterCipherName returns a human-readable name for an outer cipher UUID.
func OuterCipherName(id uuid.UUID) string {
	switch id {
	case CipherAES256:
		return "AES256"
	case CipherTwofish:
		return "Twofish"
	case CipherChaCha20:
		return "ChaCha20"
	default:
		return "unknown"
	}
}

// KDFName returns a human-readable name for a KDF UUID.
func KDFName(id uuid.UUID) string {
	switch id {
	case KDFAES:
		return "AES-KDF"
	case KDFArgon2d:
		return "Argon2d"
	case KDFArgon2id:
		return "Argon2id"
	default:
		return "unknown"
	}
}
