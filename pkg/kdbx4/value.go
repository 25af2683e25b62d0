// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import "github.com/jeremyhahn/go-kdbx/pkg/kdbxcrypt"

// ValueKind distinguishes the three ways an entry field's content can be
// stored, mirroring the XML body's Value element's Protected/Ref
// attributes (spec section 3, "Value").
type ValueKind int

const (
	// KindUnprotected is ordinary UTF-8 text stored in the clear in the
	// XML body (still inside the outer encrypted payload, but not
	// additionally stream-ciphered).
	KindUnprotected ValueKind = iota

	// KindProtected is UTF-8 text that is additionally encrypted with
	// the inner stream cipher and base64-encoded on the wire.
	KindProtected

	// KindBinary is a reference to a HeaderAttachment by index, used for
	// attached files rather than text fields.
	KindBinary
)

// Value is an entry field's content: a small tagged union over plain
// text, stream-ciphered text, and binary-attachment references. The
// three constructors are the only way to build one, so a Value is
// always in exactly one of the three states.
type Value struct {
	kind   ValueKind
	text   string
	secret *kdbxcrypt.Secret
	binRef int
}

// UnprotectedValue returns a Value holding plain text.
func UnprotectedValue(s string) Value {
	return Value{kind: KindUnprotected, text: s}
}

// ProtectedValue returns a Value whose plaintext is held only behind a
// zeroize-on-close Secret; it is revealed via Reveal and is stream
// ciphered whenever the owning Entry is serialized.
func ProtectedValue(s string) Value {
	return Value{kind: KindProtected, secret: kdbxcrypt.NewSecret([]byte(s))}
}

// BinaryRefValue returns a Value that references the HeaderAttachment at
// index ref in the owning Database's HeaderAttachments slice.
func BinaryRefValue(ref int) Value {
	return Value{kind: KindBinary, binRef: ref}
}

// Kind reports which of the three states v is in.
func (v Value) Kind() ValueKind { return v.kind }

// IsProtected reports whether v's content is stream-ciphered on disk.
func (v Value) IsProtected() bool { return v.kind == KindProtected }

// Reveal returns v's plaintext. It panics if v is not KindUnprotected or
// KindProtected; callers should check Kind first when handling fields of
// unknown provenance.
func (v Value) Reveal() string {
	switch v.kind {
	case KindUnprotected:
		return v.text
	case KindProtected:
		if v.secret == nil {
			return ""
		}
		return string(v.secret.Bytes())
	default:
		panic("kdbx4: Reveal called on a binary-reference Value")
	}
}

// BinaryRef returns the HeaderAttachments index v refers to. It panics if
// v is not KindBinary.
func (v Value) BinaryRef() int {
	if v.kind != KindBinary {
		panic("kdbx4: BinaryRef called on a non-binary Value")
	}
	return v.binRef
}

// Close zeroizes v's protected plaintext, if any. Safe to call on any
// Value kind.
func (v Value) Close() {
	if v.secret != nil {
		v.secret.Close()
	}
}
