// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"bytes"
	"testing"
)

func TestBlockStreamRoundTrip(t *testing.T) {
	masterSeed := bytes.Repeat([]byte{0x01}, 32)
	transformedKey := bytes.Repeat([]byte{0x02}, 32)
	plaintext := bytes.Repeat([]byte("0123456789abcdef"), 4096) // 64KiB, single block

	var buf bytes.Buffer
	if err := WriteBlockStream(&buf, plaintext, masterSeed, transformedKey); err != nil {
		t.Fatalf("WriteBlockStream: %v", err)
	}

	got, err := ReadBlockStream(&buf, masterSeed, transformedKey)
	if err != nil {
		t.Fatalf("ReadBlockStream: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(plaintext))
	}
}

func TestBlockStreamMultipleBlocks(t *testing.T) {
	masterSeed := bytes.Repeat([]byte{0x03}, 32)
	transformedKey := bytes.Repeat([]byte{0x04}, 32)
	plaintext := bytes.Repeat([]byte{0xAA}, writeChunkSize*2+17)

	var buf bytes.Buffer
	if err := WriteBlockStream(&buf, plaintext, masterSeed, transformedKey); err != nil {
		t.Fatalf("WriteBlockStream: %v", err)
	}

	got, err := ReadBlockStream(&buf, masterSeed, transformedKey)
	if err != nil {
		t.Fatalf("ReadBlockStream: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch across multiple blocks")
	}
}

func TestBlockStreamEmptyPlaintext(t *testing.T) {
	masterSeed := bytes.Repeat([]byte{0x05}, 32)
	transformedKey := bytes.Repeat([]byte{0x06}, 32)

	var buf bytes.Buffer
	if err := WriteBlockStream(&buf, nil, masterSeed, transformedKey); err != nil {
		t.Fatalf("WriteBlockStream: %v", err)
	}

	got, err := ReadBlockStream(&buf, masterSeed, transformedKey)
	if err != nil {
		t.Fatalf("ReadBlockStream: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d bytes, want 0", len(got))
	}
}

func TestBlockStreamTamperedBlockDetected(t *testing.T) {
	masterSeed := bytes.Repeat([]byte{0x07}, 32)
	transformedKey := bytes.Repeat([]byte{0x08}, 32)
	plaintext := []byte("a secret payload")

	var buf bytes.Buffer
	if err := WriteBlockStream(&buf, plaintext, masterSeed, transformedKey); err != nil {
		t.Fatalf("WriteBlockStream: %v", err)
	}

	tampered := buf.Bytes()
	tampered[36] ^= 0xFF // flip a bit inside the first block's data

	if _, err := ReadBlockStream(bytes.NewReader(tampered), masterSeed, transformedKey); err == nil {
		t.Fatalf("expected an authentication error for a tampered block")
	}
}

func TestBlockStreamWrongKeyRejected(t *testing.T) {
	masterSeed := bytes.Repeat([]byte{0x09}, 32)
	transformedKey := bytes.Repeat([]byte{0x0A}, 32)
	plaintext := []byte("a secret payload")

	var buf bytes.Buffer
	if err := WriteBlockStream(&buf, plaintext, masterSeed, transformedKey); err != nil {
		t.Fatalf("WriteBlockStream: %v", err)
	}

	wrongKey := bytes.Repeat([]byte{0x0B}, 32)
	if _, err := ReadBlockStream(&buf, masterSeed, wrongKey); err == nil {
		t.Fatalf("expected an authentication error for the wrong transformed key")
	}
}

func TestHeaderHMACKeyUsesReservedIndex(t *testing.T) {
	masterSeed := bytes.Repeat([]byte{0x0C}, 32)
	transformedKey := bytes.Repeat([]byte{0x0D}, 32)

	k1 := HeaderHMACKey(masterSeed, transformedKey)
	k2 := HeaderHMACKey(masterSeed, transformedKey)
	if !bytes.Equal(k1, k2) {
		t.Fatalf("HeaderHMACKey is not deterministic")
	}

	builder := newBlockHMACKeyBuilder(masterSeed, transformedKey)
	firstBlockKey := builder.blockKey(0)
	if bytes.Equal(k1, firstBlockKey) {
		t.Fatalf("header HMAC key must not collide with block index 0's key")
	}
}
