// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"encoding/hex"
	"encoding/xml"
	"fmt"

	"github.com/jeremyhahn/go-kdbx/pkg/kdbxcrypt"
)

// keyFileXML is the structure of a versioned KeePass keyfile, e.g.:
//
//	<KeyFile>
//	  <Meta>
//	    <Version>2.0</Version>
//	  </Meta>
//	  <Key>
//	    <Data Hash="a1b2c3d4">68656c6c6f...</Data>
//	  </Key>
//	</KeyFile>
//
// Version 1.0 keyfiles omit the Meta block and the Data element's Hash
// attribute, and encode Data as base64 instead of hex.
type keyFileXML struct {
	XMLName xml.Name `xml:"KeyFile"`
	Meta    struct {
		Version string `xml:"Version"`
	} `xml:"Meta"`
	Key struct {
		Data struct {
			Hash  string `xml:"Hash,attr"`
			Value string `xml:",chardata"`
		} `xml:"Data"`
	} `xml:"Key"`
}

// LoadKeyFile computes the 32-byte key hash from the content of a
// keyfile, per the SUPPLEMENTED keyfile format in SPEC_FULL.md section
// 4.4: a versioned XML keyfile takes precedence; failing that, exactly
// 32 raw bytes or 64 hex characters are used directly; anything else is
// hashed as opaque binary.
func LoadKeyFile(content []byte) ([]byte, error) {
	if hash, ok := parseXMLKeyFile(content); ok {
		return hash, nil
	}

	switch {
	case len(content) == 32:
		hash := make([]byte, 32)
		copy(hash, content)
		return hash, nil
	case len(content) == 64 && isHex(content):
		hash, err := hex.DecodeString(string(content))
		if err != nil {
			return nil, &FormatError{Op: "keyfile", Err: fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)}
		}
		return hash, nil
	default:
		return kdbxcrypt.SHA256(content), nil
	}
}

// parseXMLKeyFile attempts to parse content as a versioned KeePass
// keyfile. It returns ok=false (never an error) on anything that doesn't
// look like one, so the caller falls through to the raw-bytes rules.
func parseXMLKeyFile(content []byte) (hash []byte, ok bool) {
	var kf keyFileXML
	if err := xml.Unmarshal(content, &kf); err != nil {
		return nil, false
	}
	if kf.Key.Data.Value == "" {
		return nil, false
	}

	raw, err := decodeKeyFileData(kf.Key.Data.Value)
	if err != nil {
		return nil, false
	}

	if kf.Key.Data.Hash != "" {
		want, err := hex.DecodeString(kf.Key.Data.Hash)
		if err != nil || len(want) > len(raw) {
			return nil, false
		}
		got := kdbxcrypt.SHA256(raw)
		if !kdbxcrypt.ConstantTimeEqual(got[:len(want)], want) {
			return nil, false
		}
	}

	if len(raw) == 32 {
		return raw, true
	}
	full := kdbxcrypt.SHA256(raw)
	return full, true
}

// decodeKeyFileData tries hex first (version 2.0+ keyfiles), then falls
// back to base64 (version 1.0 keyfiles), trimming the whitespace the XML
// chardata decoder leaves around indented content.
func decodeKeyFileData(s string) ([]byte, error) {
	trimmed := trimXMLWhitespace(s)
	if isHex([]byte(trimmed)) {
		if b, err := hex.DecodeString(trimmed); err == nil {
			return b, nil
		}
	}
	return decodeBase64Loose(trimmed)
}

func isHex(b []byte) bool {
	if len(b) == 0 || len(b)%2 != 0 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func trimXMLWhitespace(s string) string {
	start, end := 0, len(s)
	isSpace := func(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}
