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

// Magic numbers and outer header field ids, per spec section 6.
const (
	signaturePart1 uint32 = 0x9AA2D903
	signaturePart2 uint32 = 0xB54BFB67

	minSupportedMajorVersion uint16 = 4

	fieldEndOfHeader      byte = 0
	fieldComment          byte = 1
	fieldCipherID         byte = 2
	fieldCompressionFlags byte = 3
	fieldMasterSeed       byte = 4
	fieldEncryptionIV     byte = 7
	fieldKDFParameters    byte = 11
	fieldPublicCustomData byte = 12
)

// OuterHeader is the KDBX4 outer TLV header: the cipher, compression
// mode, master seed, encryption IV and KDF parameters needed to decrypt
// the payload block stream, plus whatever the writer stored in the
// free-form Comment and PublicCustomData fields.
type OuterHeader struct {
	CipherID         uuid.UUID
	CompressionFlags uint32
	MasterSeed       []byte
	EncryptionIV     []byte
	KDFParams        kdbxcrypt.KDFParams
	PublicCustomData *kdbxcrypt.VariantDict
	Comment          []byte

	// raw is the exact byte sequence read (or about to be written),
	// including the terminal field, used as the input to the header
	// SHA-256 and HMAC checks. It is not part of the logical header.
	raw []byte
}

// ReadMagicAndVersion reads and validates the 12-byte file signature and
// version field, returning the minor version found.
func ReadMagicAndVersion(r io.Reader) (minorVersion uint16, err error) {
	var buf [12]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, &FormatError{Op: "magic", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
	}
	if readUint32LE(buf[0:4]) != signaturePart1 || readUint32LE(buf[4:8]) != signaturePart2 {
		return 0, &FormatError{Op: "magic", Err: ErrFormat}
	}
	minor := readUint16LE(buf[8:10])
	major := readUint16LE(buf[10:12])
	if major < minSupportedMajorVersion {
		return 0, &FormatError{Op: "version", Err: ErrVersion}
	}
	return minor, nil
}

// WriteMagicAndVersion writes the 12-byte file signature and version
// field for the given minor version, at major version 4.
func WriteMagicAndVersion(w io.Writer, minorVersion uint16) error {
	var buf [12]byte
	copy(buf[0:4], putUint32LE(signaturePart1))
	copy(buf[4:8], putUint32LE(signaturePart2))
	copy(buf[8:10], []byte{byte(minorVersion), byte(minorVersion >> 8)})
	copy(buf[10:12], []byte{4, 0})
	_, err := w.Write(buf[:])
	return err
}

// ReadOuterHeader reads the TLV field sequence following the magic and
// version, up to and including the terminal field, capturing the exact
// bytes read into the returned header's raw field for later hash/HMAC
// verification.
func ReadOuterHeader(r io.Reader) (*OuterHeader, error) {
	var raw bytes.Buffer
	tee := io.TeeReader(r, &raw)

	h := &OuterHeader{}
	for {
		var fieldHeader [5]byte
		if _, err := io.ReadFull(tee, fieldHeader[:]); err != nil {
			return nil, &FormatError{Op: "outer header", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
		}
		id := fieldHeader[0]
		length := int(readUint32LE(fieldHeader[1:5]))
		if err := validateLength("outer header", length, MaxHeaderFieldLength); err != nil {
			return nil, err
		}

		value := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(tee, value); err != nil {
				return nil, &FormatError{Op: "outer header", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
			}
		}

		switch id {
		case fieldEndOfHeader:
			h.raw = raw.Bytes()
			if err := h.validate(); err != nil {
				return nil, err
			}
			return h, nil
		case fieldComment:
			h.Comment = value
		case fieldCipherID:
			id, err := uuid.FromBytes(value)
			if err != nil {
				return nil, &FormatError{Op: "cipher id", Err: fmt.Errorf("%w: %v", ErrFormat, err)}
			}
			h.CipherID = id
		case fieldCompressionFlags:
			if len(value) != 4 {
				return nil, &FormatError{Op: "compression flags", Err: ErrFormat}
			}
			h.CompressionFlags = readUint32LE(value)
		case fieldMasterSeed:
			h.MasterSeed = value
		case fieldEncryptionIV:
			h.EncryptionIV = value
		case fieldKDFParameters:
			dict, err := kdbxcrypt.UnmarshalVariantDict(value)
			if err != nil {
				return nil, &FormatError{Op: "kdf parameters", Err: err}
			}
			params, err := kdbxcrypt.VariantDictToKDFParams(dict)
			if err != nil {
				return nil, &FormatError{Op: "kdf parameters", Err: err}
			}
			h.KDFParams = params
		case fieldPublicCustomData:
			dict, err := kdbxcrypt.UnmarshalVariantDict(value)
			if err != nil {
				return nil, &FormatError{Op: "public custom data", Err: err}
			}
			h.PublicCustomData = dict
		default:
			// Unknown outer header field: skipped and not kept, rather
			// than rejecting the file.
		}
	}
}

// validate checks that the required fields were present, per spec
// section 4.5.
func (h *OuterHeader) validate() error {
	if h.CipherID == uuid.Nil {
		return &FormatError{Op: "outer header", Err: fmt.Errorf("%w: missing cipher id", ErrFormat)}
	}
	if len(h.MasterSeed) != 32 {
		return &FormatError{Op: "outer header", Err: fmt.Errorf("%w: missing or malformed master seed", ErrFormat)}
	}
	if h.KDFParams.UUID == uuid.Nil {
		return &FormatError{Op: "outer header", Err: fmt.Errorf("%w: missing kdf parameters", ErrFormat)}
	}
	return nil
}

// Marshal encodes h as the outer header TLV field sequence, terminated
// by the EndOfHeader field, storing the result in h.raw and returning it.
func (h *OuterHeader) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	writeField := func(id byte, value []byte) {
		buf.WriteByte(id)
		buf.Write(putUint32LE(uint32(len(value))))
		buf.Write(value)
	}

	if len(h.Comment) > 0 {
		writeField(fieldComment, h.Comment)
	}
	writeField(fieldCipherID, h.CipherID[:])
	writeField(fieldCompressionFlags, putUint32LE(h.CompressionFlags))
	writeField(fieldMasterSeed, h.MasterSeed)
	writeField(fieldEncryptionIV, h.EncryptionIV)

	dict, err := kdbxcrypt.KDFParamsToVariantDict(h.KDFParams)
	if err != nil {
		return nil, &FormatError{Op: "kdf parameters", Err: err}
	}
	encodedDict, err := dict.Marshal()
	if err != nil {
		return nil, &FormatError{Op: "kdf parameters", Err: err}
	}
	writeField(fieldKDFParameters, encodedDict)

	if h.PublicCustomData != nil {
		encoded, err := h.PublicCustomData.Marshal()
		if err != nil {
			return nil, &FormatError{Op: "public custom data", Err: err}
		}
		writeField(fieldPublicCustomData, encoded)
	}

	writeField(fieldEndOfHeader, []byte{'\r', '\n'})

	h.raw = buf.Bytes()
	return h.raw, nil
}

// Raw returns the exact bytes last read or written for h, the input to
// the header SHA-256 and HMAC checks.
func (h *OuterHeader) Raw() []byte { return h.raw }
