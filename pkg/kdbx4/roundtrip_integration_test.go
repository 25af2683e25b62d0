// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

//go:build integration

package kdbx4

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// TestRoundTripFullConfigMatrix exercises every outer cipher, compression
// mode, inner cipher, and KDF combination this package supports, using a
// database with a group, an entry, and one history revision, mirroring
// the reference implementation's own configuration matrix scenario.
func TestRoundTripFullConfigMatrix(t *testing.T) {
	for i, cfg := range configMatrix() {
		cfg := cfg
		t.Run(string(rune('A'+i%26)), func(t *testing.T) {
			db := buildTestDatabase()
			db.Config = cfg

			key := DatabaseKey{Password: []byte("integration-password")}

			var buf bytes.Buffer
			if err := db.Save(&buf, key); err != nil {
				t.Fatalf("Save: %v", err)
			}

			opened, err := Open(bytes.NewReader(buf.Bytes()), key)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}

			workGroup := opened.Root.Groups()[0]
			entry := workGroup.Entries()[0]
			if entry.Password() != "s3cr3t!" {
				t.Errorf("Password() = %q, want s3cr3t!", entry.Password())
			}
			if len(entry.History.Entries) != 1 {
				t.Errorf("expected 1 history entry, got %d", len(entry.History.Entries))
			}
		})
	}
}

// TestRoundTripWithKeyFileAndChallengeResponse exercises the full
// composite-key pipeline: a password, a raw 32-byte keyfile, and a
// challenge-response factor, combined end to end through Save/Open.
func TestRoundTripWithKeyFileAndChallengeResponse(t *testing.T) {
	keyFileHash, err := hex.DecodeString(strRepeat("ab", 32))
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}

	responseVector, err := hex.DecodeString("0102030405060708090a0b0c0d0e0f1011121314")
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}

	key := DatabaseKey{
		Password:    []byte("integration-password"),
		KeyFileHash: keyFileHash,
		ChallengeResponse: func(challenge []byte) ([]byte, error) {
			return responseVector, nil
		},
	}

	db := NewDatabase(DefaultConfig(), "Challenge Response DB")
	entry := NewEntry()
	entry.Fields.Set(FieldTitle, UnprotectedValue("Vault"))
	entry.Fields.Set(FieldPassword, ProtectedValue("vault-secret"))
	if err := AddChild(db.Root, entry); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	var buf bytes.Buffer
	if err := db.Save(&buf, key); err != nil {
		t.Fatalf("Save: %v", err)
	}

	opened, err := Open(bytes.NewReader(buf.Bytes()), key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := opened.Root.Entries()[0].Password(); got != "vault-secret" {
		t.Errorf("Password() = %q, want vault-secret", got)
	}

	wrongKey := key
	wrongKey.ChallengeResponse = func(challenge []byte) ([]byte, error) {
		tampered := append([]byte(nil), responseVector...)
		tampered[0] ^= 0xFF
		return tampered, nil
	}
	if _, err := Open(bytes.NewReader(buf.Bytes()), wrongKey); err == nil {
		t.Fatalf("expected an error opening with a mismatched challenge-response factor")
	}
}

func strRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
