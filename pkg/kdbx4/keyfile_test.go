// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/jeremyhahn/go-kdbx/pkg/kdbxcrypt"
)

func TestLoadKeyFileRaw32Bytes(t *testing.T) {
	raw := bytes.Repeat([]byte{0x07}, 32)
	hash, err := LoadKeyFile(raw)
	if err != nil {
		t.Fatalf("LoadKeyFile: %v", err)
	}
	if !bytes.Equal(hash, raw) {
		t.Errorf("hash = %x, want raw bytes used directly", hash)
	}
}

func TestLoadKeyFileHexString(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, 32)
	content := []byte(hex.EncodeToString(raw))

	hash, err := LoadKeyFile(content)
	if err != nil {
		t.Fatalf("LoadKeyFile: %v", err)
	}
	if !bytes.Equal(hash, raw) {
		t.Errorf("hash = %x, want %x", hash, raw)
	}
}

func TestLoadKeyFileArbitraryBinary(t *testing.T) {
	content := []byte("not a 32 byte value and not hex either")
	hash, err := LoadKeyFile(content)
	if err != nil {
		t.Fatalf("LoadKeyFile: %v", err)
	}
	if len(hash) != 32 {
		t.Fatalf("len(hash) = %d, want 32", len(hash))
	}
}

func TestLoadKeyFileVersionedXML(t *testing.T) {
	raw := bytes.Repeat([]byte{0x11}, 32)
	doc := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<KeyFile>
  <Meta>
    <Version>2.0</Version>
  </Meta>
  <Key>
    <Data Hash="` + hex.EncodeToString(mustSHA256Prefix(raw, 4)) + `">` + hex.EncodeToString(raw) + `</Data>
  </Key>
</KeyFile>`)

	hash, err := LoadKeyFile(doc)
	if err != nil {
		t.Fatalf("LoadKeyFile: %v", err)
	}
	if !bytes.Equal(hash, raw) {
		t.Errorf("hash = %x, want %x", hash, raw)
	}
}

func TestLoadKeyFileVersionedXMLWrongHashRejected(t *testing.T) {
	raw := bytes.Repeat([]byte{0x22}, 32)
	doc := []byte(`<KeyFile><Key><Data Hash="deadbeef">` + hex.EncodeToString(raw) + `</Data></Key></KeyFile>`)

	// The Hash attribute check fails, so parseXMLKeyFile falls back to
	// treating the document as opaque binary and hashes it whole; it
	// must not silently accept the mismatched hex payload as-is.
	hash, err := LoadKeyFile(doc)
	if err != nil {
		t.Fatalf("LoadKeyFile: %v", err)
	}
	if bytes.Equal(hash, raw) {
		t.Errorf("a keyfile with a mismatched Hash attribute must not be accepted")
	}
}

func mustSHA256Prefix(b []byte, n int) []byte {
	full := kdbxcrypt.SHA256(b)
	return full[:n]
}
