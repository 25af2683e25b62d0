// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"github.com/jeremyhahn/go-kdbx/pkg/kdbxcrypt"
)

// ChallengeResponseFunc mixes a hardware secret into the composite key,
// the way a YubiKey slot configured for HMAC-SHA1 challenge-response
// does: given a challenge, it returns the device's response. Tests in
// this package use a fixed stand-in function rather than real hardware.
type ChallengeResponseFunc func(challenge []byte) (response []byte, err error)

// DatabaseKey is the set of key factors used to unlock or create a
// database: a password, a keyfile hash, and/or a challenge-response
// function. At least one factor must be supplied, per spec section 4.4.
type DatabaseKey struct {
	// Password is the user's passphrase, as entered. It is hashed before
	// use and never itself stored beyond the call to CompositeKey.
	Password []byte

	// KeyFileHash is the 32-byte hash produced by LoadKeyFile. Leave nil
	// if no keyfile is used.
	KeyFileHash []byte

	// ChallengeResponse, if set, mixes a hardware-bound secret into the
	// composite key after the password/keyfile factors are combined.
	ChallengeResponse ChallengeResponseFunc
}

// CompositeKey derives the composite key fed into the configured KDF, per
// spec section 4.4: SHA-256 of the password, concatenated with the
// keyfile hash, SHA-256'd together; then, if a challenge-response factor
// is configured, the device's response to that composite (as challenge)
// is folded in with one more SHA-256.
func (k DatabaseKey) CompositeKey() ([]byte, error) {
	var parts []byte

	if len(k.Password) > 0 {
		h := kdbxcrypt.SHA256(k.Password)
		parts = append(parts, h...)
	}
	if len(k.KeyFileHash) > 0 {
		parts = append(parts, k.KeyFileHash...)
	}
	if len(parts) == 0 && k.ChallengeResponse == nil {
		return nil, ErrNoKeyMaterial
	}

	composite := kdbxcrypt.SHA256(parts)

	if k.ChallengeResponse != nil {
		response, err := k.ChallengeResponse(composite)
		if err != nil {
			return nil, &FormatError{Op: "challenge-response", Err: err}
		}
		composite = kdbxcrypt.SHA256(composite, response)
	}

	return composite, nil
}

// Close zeroizes the key factors held directly by k. It does not close
// any buffer backing ChallengeResponse's own state.
func (k DatabaseKey) Close() {
	kdbxcrypt.Clear(k.Password)
	kdbxcrypt.Clear(k.KeyFileHash)
}
