// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-kdbx/pkg/kdbxcrypt"
)

func configMatrix() []Config {
	var out []Config
	ciphers := []uuid.UUID{kdbxcrypt.CipherAES256, kdbxcrypt.CipherTwofish, kdbxcrypt.CipherChaCha20}
	compressions := []uint32{CompressionNone, CompressionGZip}
	inners := []uint32{innerCipherPlain, innerCipherSalsa20, innerCipherChaCha20}
	kdfs := []uuid.UUID{kdbxcrypt.KDFAES, kdbxcrypt.KDFArgon2d, kdbxcrypt.KDFArgon2id}

	for _, c := range ciphers {
		for _, comp := range compressions {
			for _, inner := range inners {
				for _, kdf := range kdfs {
					var params kdbxcrypt.KDFParams
					var err error
					if kdf == kdbxcrypt.KDFAES {
						params, err = kdbxcrypt.NewAESKDFParams(3)
					} else {
						params, err = kdbxcrypt.NewArgon2Params(kdf == kdbxcrypt.KDFArgon2id, 2, 8192, 1, 19)
					}
					if err != nil {
						panic(err)
					}
					out = append(out, Config{
						MinorVersion: CurrentMinorVersion,
						OuterCipher:  c,
						Compression:  comp,
						InnerCipher:  inner,
						KDFParams:    params,
					})
				}
			}
		}
	}
	return out
}

// TestDatabaseOpenSaveRoundTripMatrix exercises every combination of
// outer cipher, compression, inner cipher, and KDF this package
// supports, mirroring the reference implementation's own configuration
// matrix test.
func TestDatabaseOpenSaveRoundTripMatrix(t *testing.T) {
	for i, cfg := range configMatrix() {
		cfg := cfg
		t.Run(fmt.Sprintf("config-%d", i), func(t *testing.T) {
			db := NewDatabase(cfg, "Matrix Database")
			entry := NewEntry()
			entry.Fields.Set(FieldTitle, UnprotectedValue("Site"))
			entry.Fields.Set(FieldPassword, ProtectedValue("matrix-password"))
			_ = AddChild(db.Root, entry)

			key := DatabaseKey{Password: []byte("correct horse battery staple")}

			var buf bytes.Buffer
			if err := db.Save(&buf, key); err != nil {
				t.Fatalf("Save: %v", err)
			}

			opened, err := Open(&buf, key)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}

			entries := opened.Root.Entries()
			if len(entries) != 1 {
				t.Fatalf("len(entries) = %d, want 1", len(entries))
			}
			if entries[0].Password() != "matrix-password" {
				t.Errorf("Password() = %q, want matrix-password", entries[0].Password())
			}
		})
	}
}

func TestDatabaseOpenWrongPasswordRejected(t *testing.T) {
	db := NewDatabase(DefaultConfig(), "DB")
	key := DatabaseKey{Password: []byte("right")}

	var buf bytes.Buffer
	if err := db.Save(&buf, key); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err := Open(bytes.NewReader(buf.Bytes()), DatabaseKey{Password: []byte("wrong")})
	if err == nil {
		t.Fatalf("expected an error opening with the wrong password")
	}
}

func TestDatabaseOpenTamperedFileRejected(t *testing.T) {
	db := NewDatabase(DefaultConfig(), "DB")
	key := DatabaseKey{Password: []byte("right")}

	var buf bytes.Buffer
	if err := db.Save(&buf, key); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tampered := buf.Bytes()
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := Open(bytes.NewReader(tampered), key); err == nil {
		t.Fatalf("expected an error opening a tampered file")
	}
}

func TestDatabaseSaveRegeneratesKDFSeed(t *testing.T) {
	db := NewDatabase(DefaultConfig(), "DB")
	key := DatabaseKey{Password: []byte("pw")}
	originalSalt := append([]byte(nil), db.Config.KDFParams.Salt...)

	var buf bytes.Buffer
	if err := db.Save(&buf, key); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if bytes.Equal(db.Config.KDFParams.Salt, originalSalt) {
		t.Errorf("expected Save to regenerate the KDF salt")
	}
}
