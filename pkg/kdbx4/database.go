// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-kdbx/pkg/kdbxcrypt"
)

// innerKeySize returns the key length NewInnerCipher expects for id, used
// when generating a fresh key at Save.
func innerKeySize(id uint32) (int, error) {
	switch id {
	case innerCipherPlain:
		return 0, nil
	case innerCipherSalsa20:
		return 32, nil
	case innerCipherChaCha20:
		return 64, nil
	default:
		return 0, ErrUnknownCipher
	}
}

// outerCipherAlgoName maps an outer cipher UUID to the algorithm token
// kdbxcrypt.NewOuterCipher expects.
func outerCipherAlgoName(id uuid.UUID) (string, error) {
	switch id {
	case kdbxcrypt.CipherAES256:
		return "aes256", nil
	case kdbxcrypt.CipherTwofish:
		return "twofish", nil
	case kdbxcrypt.CipherChaCha20:
		return "chacha20", nil
	default:
		return "", ErrUnknownCipher
	}
}

// Open reads, authenticates, and decrypts a KDBX4 database from r using
// key, returning the parsed Database. It implements the full pipeline of
// spec section 2: outer header parse, header integrity/HMAC
// verification, payload block-stream authentication, outer decryption,
// optional decompression, inner header parse, and XML body parse.
func Open(r io.Reader, key DatabaseKey) (*Database, error) {
	minorVersion, err := ReadMagicAndVersion(r)
	if err != nil {
		return nil, err
	}

	outer, err := ReadOuterHeader(r)
	if err != nil {
		return nil, err
	}

	var storedChecksum [32]byte
	if _, err := io.ReadFull(r, storedChecksum[:]); err != nil {
		return nil, &FormatError{Op: "header checksum", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
	}
	if !kdbxcrypt.ConstantTimeEqual(kdbxcrypt.SHA256(outer.Raw()), storedChecksum[:]) {
		return nil, &FormatError{Op: "header checksum", Err: ErrHeaderIntegrity}
	}

	composite, err := key.CompositeKey()
	if err != nil {
		return nil, err
	}
	transformedKey, err := kdbxcrypt.DeriveKey(composite, outer.KDFParams)
	kdbxcrypt.Clear(composite)
	if err != nil {
		return nil, &FormatError{Op: "key derivation", Err: fmt.Errorf("%w: %v", ErrCrypto, err)}
	}
	defer kdbxcrypt.Clear(transformedKey)

	var storedHeaderHMAC [32]byte
	if _, err := io.ReadFull(r, storedHeaderHMAC[:]); err != nil {
		return nil, &FormatError{Op: "header hmac", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
	}
	headerHMACKey := HeaderHMACKey(outer.MasterSeed, transformedKey)
	computedHeaderHMAC := kdbxcrypt.HMACSHA256(headerHMACKey, outer.Raw())
	kdbxcrypt.Clear(headerHMACKey)
	if !kdbxcrypt.ConstantTimeEqual(computedHeaderHMAC, storedHeaderHMAC[:]) {
		return nil, &AuthError{Context: "outer header", Err: ErrAuthenticationFailure}
	}

	ciphertext, err := ReadBlockStream(r, outer.MasterSeed, transformedKey)
	if err != nil {
		return nil, err
	}

	masterKey := kdbxcrypt.SHA256(outer.MasterSeed, transformedKey)
	defer kdbxcrypt.Clear(masterKey)

	algo, err := outerCipherAlgoName(outer.CipherID)
	if err != nil {
		return nil, &FormatError{Op: "cipher", Err: err}
	}
	outerCipher, err := kdbxcrypt.NewOuterCipher(algo, masterKey, outer.EncryptionIV)
	if err != nil {
		return nil, &FormatError{Op: "cipher", Err: fmt.Errorf("%w: %v", ErrCrypto, err)}
	}
	payload, err := outerCipher.Decrypt(ciphertext)
	if err != nil {
		return nil, &AuthError{Context: "payload", Err: ErrAuthenticationFailure}
	}

	if outer.CompressionFlags == CompressionGZip {
		payload, err = gzipDecompress(payload)
		if err != nil {
			return nil, err
		}
	}

	payloadReader := bytes.NewReader(payload)
	inner, err := ReadInnerHeader(payloadReader)
	if err != nil {
		return nil, err
	}

	innerCipher, err := kdbxcrypt.NewInnerCipher(inner.RandomStreamID, inner.RandomStreamKey)
	if err != nil {
		return nil, &FormatError{Op: "inner cipher", Err: err}
	}

	db, err := ParseXML(payloadReader, innerCipher)
	if err != nil {
		return nil, err
	}

	db.Config = Config{
		MinorVersion: minorVersion,
		OuterCipher:  outer.CipherID,
		Compression:  outer.CompressionFlags,
		InnerCipher:  inner.RandomStreamID,
		KDFParams:    outer.KDFParams,
	}
	db.HeaderAttachments = inner.Binaries
	if len(outer.Comment) > 0 {
		db.UnknownHeaderFields = map[byte][]byte{fieldComment: outer.Comment}
	}

	return db, nil
}

// Save encrypts and writes db to w using key, regenerating the master
// seed, encryption IV, inner stream key, and KDF seed/salt so that two
// saves of the same database never reuse key material (see freshKDFSeed).
func (db *Database) Save(w io.Writer, key DatabaseKey) error {
	masterSeed, err := kdbxcrypt.RandomBytes(32)
	if err != nil {
		return &FormatError{Op: "master seed", Err: err}
	}

	algo, err := outerCipherAlgoName(db.Config.OuterCipher)
	if err != nil {
		return &FormatError{Op: "cipher", Err: err}
	}
	ivSize, err := kdbxcrypt.OuterIVSize(algo)
	if err != nil {
		return &FormatError{Op: "cipher", Err: err}
	}
	encryptionIV, err := kdbxcrypt.RandomBytes(ivSize)
	if err != nil {
		return &FormatError{Op: "encryption iv", Err: err}
	}

	kdfParams, err := freshKDFSeed(db.Config.KDFParams)
	if err != nil {
		return &FormatError{Op: "kdf parameters", Err: err}
	}

	composite, err := key.CompositeKey()
	if err != nil {
		return err
	}
	transformedKey, err := kdbxcrypt.DeriveKey(composite, kdfParams)
	kdbxcrypt.Clear(composite)
	if err != nil {
		return &FormatError{Op: "key derivation", Err: fmt.Errorf("%w: %v", ErrCrypto, err)}
	}
	defer kdbxcrypt.Clear(transformedKey)

	innerKeyLen, err := innerKeySize(db.Config.InnerCipher)
	if err != nil {
		return &FormatError{Op: "inner cipher", Err: err}
	}
	var innerKey []byte
	if innerKeyLen > 0 {
		innerKey, err = kdbxcrypt.RandomBytes(innerKeyLen)
		if err != nil {
			return &FormatError{Op: "inner key", Err: err}
		}
	}
	innerCipher, err := kdbxcrypt.NewInnerCipher(db.Config.InnerCipher, innerKey)
	if err != nil {
		return &FormatError{Op: "inner cipher", Err: err}
	}

	innerHeader := &InnerHeader{
		RandomStreamID:  db.Config.InnerCipher,
		RandomStreamKey: innerKey,
		Binaries:        db.HeaderAttachments,
	}
	innerHeaderBytes, err := innerHeader.Marshal()
	if err != nil {
		return &FormatError{Op: "inner header", Err: err}
	}

	var xmlBuf bytes.Buffer
	if err := WriteXML(&xmlBuf, db, innerCipher); err != nil {
		return err
	}

	payload := append(innerHeaderBytes, xmlBuf.Bytes()...)
	if db.Config.Compression == CompressionGZip {
		payload, err = gzipCompress(payload)
		if err != nil {
			return err
		}
	}

	masterKey := kdbxcrypt.SHA256(masterSeed, transformedKey)
	defer kdbxcrypt.Clear(masterKey)
	outerCipher, err := kdbxcrypt.NewOuterCipher(algo, masterKey, encryptionIV)
	if err != nil {
		return &FormatError{Op: "cipher", Err: fmt.Errorf("%w: %v", ErrCrypto, err)}
	}
	ciphertext, err := outerCipher.Encrypt(payload)
	if err != nil {
		return &FormatError{Op: "cipher", Err: fmt.Errorf("%w: %v", ErrCrypto, err)}
	}

	outer := &OuterHeader{
		CipherID:         db.Config.OuterCipher,
		CompressionFlags: db.Config.Compression,
		MasterSeed:       masterSeed,
		EncryptionIV:     encryptionIV,
		KDFParams:        kdfParams,
	}
	if comment, ok := db.UnknownHeaderFields[fieldComment]; ok {
		outer.Comment = comment
	}
	headerBytes, err := outer.Marshal()
	if err != nil {
		return err
	}

	if err := WriteMagicAndVersion(w, db.Config.MinorVersion); err != nil {
		return err
	}
	if _, err := w.Write(headerBytes); err != nil {
		return err
	}
	checksum := kdbxcrypt.SHA256(headerBytes)
	if _, err := w.Write(checksum); err != nil {
		return err
	}
	headerHMACKey := HeaderHMACKey(masterSeed, transformedKey)
	headerHMAC := kdbxcrypt.HMACSHA256(headerHMACKey, headerBytes)
	kdbxcrypt.Clear(headerHMACKey)
	if _, err := w.Write(headerHMAC); err != nil {
		return err
	}

	db.Config.KDFParams = kdfParams
	return WriteBlockStream(w, ciphertext, masterSeed, transformedKey)
}

// freshKDFSeed returns a copy of params with a newly generated Seed (for
// AES-KDF) or Salt (for Argon2) so that successive saves never rederive
// the same transformed key from the same composite key.
func freshKDFSeed(params kdbxcrypt.KDFParams) (kdbxcrypt.KDFParams, error) {
	out := params
	switch params.UUID {
	case kdbxcrypt.KDFAES:
		seed, err := kdbxcrypt.RandomBytes(len(params.Seed))
		if err != nil {
			return out, err
		}
		out.Seed = seed
	case kdbxcrypt.KDFArgon2d, kdbxcrypt.KDFArgon2id:
		salt, err := kdbxcrypt.RandomBytes(len(params.Salt))
		if err != nil {
			return out, err
		}
		out.Salt = salt
	}
	return out, nil
}
