// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"testing"

	"github.com/jeremyhahn/go-kdbx/pkg/kdbx4"
)

func TestReadMagicAndVersionOnSavedDatabase(t *testing.T) {
	db := kdbx4.NewDatabase(kdbx4.DefaultConfig(), "DB")

	var buf bytes.Buffer
	key := kdbx4.DatabaseKey{Password: []byte("pw")}
	if err := db.Save(&buf, key); err != nil {
		t.Fatalf("Save: %v", err)
	}

	minor, err := kdbx4.ReadMagicAndVersion(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadMagicAndVersion: %v", err)
	}
	if minor != kdbx4.CurrentMinorVersion {
		t.Errorf("minor = %d, want %d", minor, kdbx4.CurrentMinorVersion)
	}
}
