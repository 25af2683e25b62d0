// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestCompositeKeyPasswordOnly(t *testing.T) {
	k := DatabaseKey{Password: []byte("correct horse battery staple")}
	c1, err := k.CompositeKey()
	if err != nil {
		t.Fatalf("CompositeKey: %v", err)
	}
	if len(c1) != 32 {
		t.Fatalf("len(composite) = %d, want 32", len(c1))
	}

	k2 := DatabaseKey{Password: []byte("correct horse battery staple")}
	c2, err := k2.CompositeKey()
	if err != nil {
		t.Fatalf("CompositeKey: %v", err)
	}
	if !bytes.Equal(c1, c2) {
		t.Errorf("same password produced different composite keys")
	}
}

func TestCompositeKeyNoMaterial(t *testing.T) {
	k := DatabaseKey{}
	if _, err := k.CompositeKey(); err != ErrNoKeyMaterial {
		t.Fatalf("err = %v, want ErrNoKeyMaterial", err)
	}
}

func TestCompositeKeyWithKeyFile(t *testing.T) {
	withPasswordOnly := DatabaseKey{Password: []byte("pw")}
	c1, _ := withPasswordOnly.CompositeKey()

	withKeyFile := DatabaseKey{Password: []byte("pw"), KeyFileHash: bytes.Repeat([]byte{0x42}, 32)}
	c2, err := withKeyFile.CompositeKey()
	if err != nil {
		t.Fatalf("CompositeKey: %v", err)
	}
	if bytes.Equal(c1, c2) {
		t.Errorf("adding a keyfile factor should change the composite key")
	}
}

// TestCompositeKeyChallengeResponse pins the 20-byte challenge-response
// test vector used by the reference implementation's own test suite, so
// that this package's challenge-response wiring is at least internally
// exercised against the same shape of input.
func TestCompositeKeyChallengeResponse(t *testing.T) {
	challengeVector, err := hex.DecodeString("0102030405060708090a0b0c0d0e0f1011121314")
	if err != nil {
		t.Fatalf("hex.DecodeString: %v", err)
	}

	var sawChallenge []byte
	cr := func(challenge []byte) ([]byte, error) {
		sawChallenge = append([]byte(nil), challenge...)
		return challengeVector, nil
	}

	k := DatabaseKey{Password: []byte("pw"), ChallengeResponse: cr}
	composite, err := k.CompositeKey()
	if err != nil {
		t.Fatalf("CompositeKey: %v", err)
	}
	if len(composite) != 32 {
		t.Fatalf("len(composite) = %d, want 32", len(composite))
	}
	if len(sawChallenge) != 32 {
		t.Fatalf("challenge function was called with %d bytes, want 32", len(sawChallenge))
	}

	without := DatabaseKey{Password: []byte("pw")}
	withoutComposite, _ := without.CompositeKey()
	if bytes.Equal(composite, withoutComposite) {
		t.Errorf("challenge-response factor should change the composite key")
	}
}

func TestCompositeKeyChallengeResponseError(t *testing.T) {
	cr := func(challenge []byte) ([]byte, error) {
		return nil, bytes.ErrTooLarge
	}
	k := DatabaseKey{Password: []byte("pw"), ChallengeResponse: cr}
	if _, err := k.CompositeKey(); err == nil {
		t.Fatalf("expected an error when the challenge-response function fails")
	}
}
