// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbxcrypt

import (
	"bytes"
	"testing"
)

func TestVariantDictRoundTrip(t *testing.T) {
	d := NewVariantDict()
	d.SetUInt64("R", 10000)
	d.SetBytes("S", []byte{1, 2, 3, 4})
	d.SetString("Name", "argon2id")
	d.SetBool("Flag", true)

	encoded, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := UnmarshalVariantDict(encoded)
	if err != nil {
		t.Fatalf("UnmarshalVariantDict: %v", err)
	}

	if got := decoded.UInt64("R"); got != 10000 {
		t.Errorf("R = %d, want 10000", got)
	}
	if got := decoded.Bytes("S"); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("S = %v, want [1 2 3 4]", got)
	}
	if e, ok := decoded.Get("Name"); !ok || e.Value.(string) != "argon2id" {
		t.Errorf("Name = %v, want argon2id", e.Value)
	}
	if e, ok := decoded.Get("Flag"); !ok || e.Value.(bool) != true {
		t.Errorf("Flag = %v, want true", e.Value)
	}

	reencoded, err := decoded.Marshal()
	if err != nil {
		t.Fatalf("re-Marshal: %v", err)
	}
	if !bytes.Equal(encoded, reencoded) {
		t.Errorf("re-encoded bytes differ from original")
	}
}

func TestVariantDictUnknownTypeRejected(t *testing.T) {
	data := []byte{0x01, 0x00, 0xFF, 1, 0, 0, 0, 'A', 0, 0, 0, 0}
	if _, err := UnmarshalVariantDict(data); err == nil {
		t.Fatalf("expected error for unknown variant type")
	}
}

func TestVariantDictTruncated(t *testing.T) {
	if _, err := UnmarshalVariantDict([]byte{0x01}); err == nil {
		t.Fatalf("expected error for truncated dictionary")
	}
}

func TestKDFParamsVariantDictRoundTrip(t *testing.T) {
	params, err := NewAESKDFParams(10)
	if err != nil {
		t.Fatalf("NewAESKDFParams: %v", err)
	}

	d, err := KDFParamsToVariantDict(params)
	if err != nil {
		t.Fatalf("KDFParamsToVariantDict: %v", err)
	}

	encoded, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := UnmarshalVariantDict(encoded)
	if err != nil {
		t.Fatalf("UnmarshalVariantDict: %v", err)
	}

	got, err := VariantDictToKDFParams(decoded)
	if err != nil {
		t.Fatalf("VariantDictToKDFParams: %v", err)
	}

	if got.UUID != params.UUID || got.Rounds != params.Rounds || !bytes.Equal(got.Seed, params.Seed) {
		t.Errorf("round-tripped params = %+v, want %+v", got, params)
	}
}
