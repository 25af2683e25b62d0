// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"time"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-kdbx/pkg/kdbxcrypt"
)

// Compression modes for outer header id 3.
const (
	CompressionNone = 0
	CompressionGZip = 1
)

// Current KDBX4 minor version emitted by NewDatabase, per spec section 6.
const CurrentMinorVersion = 1

// Config is the database-wide configuration record: format version,
// outer cipher, compression, inner cipher and KDF parameters (spec
// section 3 "Configuration").
type Config struct {
	MinorVersion uint16
	OuterCipher  uuid.UUID
	Compression  uint32
	InnerCipher  uint32
	KDFParams    kdbxcrypt.KDFParams
}

// DefaultConfig returns the configuration NewDatabase uses when none is
// supplied: AES-256, GZip, ChaCha20 inner stream, Argon2id with
// conservative-but-fast parameters suitable as a library default.
func DefaultConfig() Config {
	params, err := kdbxcrypt.NewArgon2Params(true, 10, 65536, 2, 19)
	if err != nil {
		// RandomBytes only fails if the OS CSPRNG is broken; nothing a
		// caller can recover from, and DefaultConfig has no error return.
		panic(err)
	}
	return Config{
		MinorVersion: CurrentMinorVersion,
		OuterCipher:  kdbxcrypt.CipherAES256,
		Compression:  CompressionGZip,
		InnerCipher:  innerCipherChaCha20,
		KDFParams:    params,
	}
}

// Inner cipher ids (spec section 4.6).
const (
	innerCipherPlain    = 0
	innerCipherSalsa20  = 2
	innerCipherChaCha20 = 3
)

// HeaderAttachment is a binary blob carried in the inner header and
// referenced from the XML body by declaration-order index (spec section
// 4.6, "Binary Ref").
type HeaderAttachment struct {
	Flags   byte
	Content []byte
}

// DeletedObject is a tombstone: a UUID that once named a Group or Entry,
// and the time it was deleted.
type DeletedObject struct {
	UUID         uuid.UUID
	DeletionTime time.Time
}

// Meta carries the database-wide metadata fields (spec section 3).
type Meta struct {
	Generator                  string
	DatabaseName               string
	DatabaseNameChanged        time.Time
	DatabaseDescription        string
	DatabaseDescriptionChanged time.Time
	DefaultUserName            string
	DefaultUserNameChanged     time.Time
	MaintenanceHistoryDays     uint32
	Color                      string
	MasterKeyChanged           time.Time
	MasterKeyChangeRec         int
	MasterKeyChangeForce       int
	HistoryMaxItems            int
	HistoryMaxSize             int64
	RecycleBinEnabled          bool
	RecycleBinUUID             uuid.UUID
	RecycleBinChanged          time.Time
	EntryTemplatesGroup        uuid.UUID
	EntryTemplatesGroupChanged time.Time
	LastSelectedGroup          uuid.UUID
	LastTopVisibleGroup        uuid.UUID
	CustomData                CustomData
}

// DefaultMeta returns the Meta fields NewDatabase seeds a fresh database
// with.
func DefaultMeta(name string) Meta {
	now := time.Now().UTC()
	return Meta{
		Generator:              "go-kdbx",
		DatabaseName:           name,
		DatabaseNameChanged:    now,
		DefaultUserNameChanged: now,
		MasterKeyChanged:       now,
		MasterKeyChangeRec:     -1,
		MasterKeyChangeForce:   -1,
		HistoryMaxItems:        10,
		HistoryMaxSize:         6 * 1024 * 1024,
		CustomData:             NewCustomData(),
	}
}

// Database is a decrypted KDBX4 password database: its configuration,
// metadata, root group tree, deleted-object tombstones, and the raw
// binary attachments referenced from entry fields.
type Database struct {
	Config            Config
	Meta              Meta
	Root              *Group
	DeletedObjects    []DeletedObject
	HeaderAttachments []HeaderAttachment

	// UnknownHeaderFields preserves outer header id 1 (comment), so that
	// re-emitting an unmodified database reproduces it. Unrecognized
	// outer header ids are skipped on read and are not stored here, so
	// Save does not write them back.
	UnknownHeaderFields map[byte][]byte
}

// NewDatabase returns a new, empty Database configured per config, with a
// single root Group named "Root".
func NewDatabase(config Config, name string) *Database {
	return &Database{
		Config: config,
		Meta:   DefaultMeta(name),
		Root:   NewGroup("Root"),
	}
}
