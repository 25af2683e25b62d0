// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import "time"

// kdbxEpoch is the KDBX4 wire epoch: timestamps are a base64-encoded
// little-endian int64 count of seconds since 0001-01-01T00:00:00Z,
// instead of KDBX3's ISO-8601 text (spec section 4.7).
var kdbxEpoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Times holds the five timestamp fields and expiry flag carried by every
// Group and Entry.
type Times struct {
	CreationTime         time.Time
	LastModificationTime time.Time
	LastAccessTime       time.Time
	ExpiryTime           time.Time
	LocationChanged      time.Time
	Expires              bool
	UsageCount           int64
}

// NewTimes returns a Times with every timestamp set to now and Expires
// false, as KeePass does when creating a new Group or Entry.
func NewTimes() Times {
	now := time.Now().UTC()
	return Times{
		CreationTime:         now,
		LastModificationTime: now,
		LastAccessTime:       now,
		ExpiryTime:           now,
		LocationChanged:      now,
	}
}

// secondsSinceKDBXEpoch converts t to the wire integer KDBX4 stores.
func secondsSinceKDBXEpoch(t time.Time) int64 {
	return t.Unix() - kdbxEpoch.Unix()
}

// timeFromKDBXSeconds is the inverse of secondsSinceKDBXEpoch.
func timeFromKDBXSeconds(s int64) time.Time {
	return time.Unix(s+kdbxEpoch.Unix(), 0).UTC()
}
