// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbxcrypt

import (
	"fmt"

	"github.com/google/uuid"
)

// KDF variant-dictionary key names (spec section 6).
const (
	kdfKeyUUID        = "$UUID"
	kdfKeyAESRounds   = "R"
	kdfKeyAESSeed     = "S"
	kdfKeyArgonSalt   = "S"
	kdfKeyArgonP      = "P"
	kdfKeyArgonM      = "M"
	kdfKeyArgonI      = "I"
	kdfKeyArgonV      = "V"
)

// KDFParamsToVariantDict serializes params to the variant dictionary
// carried at outer header id 11. It sets only the keys this package
// knows; unknown keys from a previously decoded dictionary are not kept
// in KDFParams, so they are not written back.
func KDFParamsToVariantDict(params KDFParams) (*VariantDict, error) {
	d := NewVariantDict()
	d.SetBytes(kdfKeyUUID, params.UUID[:])

	switch params.UUID {
	case KDFAES:
		d.SetUInt64(kdfKeyAESRounds, params.Rounds)
		d.SetBytes(kdfKeyAESSeed, params.Seed)
	case KDFArgon2d, KDFArgon2id:
		d.SetBytes(kdfKeyArgonSalt, params.Salt)
		d.SetUInt32(kdfKeyArgonP, params.Parallelism)
		d.SetUInt64(kdfKeyArgonM, params.Memory)
		d.SetUInt64(kdfKeyArgonI, params.Iterations)
		d.SetUInt32(kdfKeyArgonV, params.Version)
	default:
		return nil, ErrUnknownKDF
	}

	return d, nil
}

// VariantDictToKDFParams parses a previously decoded variant dictionary
// into KDFParams. Unknown dictionary keys are permitted and ignored, per
// spec section 6.
func VariantDictToKDFParams(d *VariantDict) (KDFParams, error) {
	raw := d.Bytes(kdfKeyUUID)
	if len(raw) != 16 {
		return KDFParams{}, fmt.Errorf("kdbxcrypt: missing or malformed KDF %s", kdfKeyUUID)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return KDFParams{}, fmt.Errorf("kdbxcrypt: malformed KDF %s: %w", kdfKeyUUID, err)
	}

	params := KDFParams{UUID: id}

	switch id {
	case KDFAES:
		params.Rounds = d.UInt64(kdfKeyAESRounds)
		params.Seed = d.Bytes(kdfKeyAESSeed)
	case KDFArgon2d, KDFArgon2id:
		params.Salt = d.Bytes(kdfKeyArgonSalt)
		params.Parallelism = d.UInt32(kdfKeyArgonP)
		params.Memory = d.UInt64(kdfKeyArgonM)
		params.Iterations = d.UInt64(kdfKeyArgonI)
		params.Version = d.UInt32(kdfKeyArgonV)
	default:
		return KDFParams{}, ErrUnknownKDF
	}

	return params, nil
}

// NewAESKDFParams returns AES-KDF parameters with a fresh random seed.
func NewAESKDFParams(rounds uint64) (KDFParams, error) {
	seed, err := RandomBytes(32)
	if err != nil {
		return KDFParams{}, err
	}
	return KDFParams{UUID: KDFAES, Rounds: rounds, Seed: seed}, nil
}

// NewArgon2Params returns Argon2d or Argon2id parameters with a fresh
// random salt.
func NewArgon2Params(id bool, iterations uint64, memoryKiB uint64, parallelism uint32, version uint32) (KDFParams, error) {
	salt, err := RandomBytes(32)
	if err != nil {
		return KDFParams{}, err
	}
	kdfID := KDFArgon2d
	if id {
		kdfID = KDFArgon2id
	}
	return KDFParams{
		UUID:        kdfID,
		Salt:        salt,
		Parallelism: parallelism,
		Memory:      memoryKiB,
		Iterations:  iterations,
		Version:     version,
	}, nil
}
