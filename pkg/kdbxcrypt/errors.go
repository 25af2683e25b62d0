// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

// Package kdbxcrypt provides the primitive cryptographic adapters and the
// variant-dictionary wire codec shared by the KDBX4 format package. It has
// no knowledge of the container layout; it only wraps ciphers, KDFs and
// hashes behind uniform interfaces and zeroes key material on request.
package kdbxcrypt

import "errors"

// ErrUnknownCipher indicates a cipher UUID or inner-cipher id this package
// does not implement.
var ErrUnknownCipher = errors.New("kdbxcrypt: unknown cipher")

// ErrUnknownKDF indicates a KDF UUID this package does not implement.
var ErrUnknownKDF = errors.New("kdbxcrypt: unknown kdf")

// ErrInvalidKeySize indicates a key of the wrong length was supplied to a
// cipher or KDF constructor.
var ErrInvalidKeySize = errors.New("kdbxcrypt: invalid key size")

// ErrInvalidParam indicates a malformed or out-of-range parameter in a
// variant dictionary or KDF parameter set.
var ErrInvalidParam = errors.New("kdbxcrypt: invalid parameter")
