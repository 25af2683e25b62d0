// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

// IconID is one of KeePass's built-in icon indices. The set is closed and
// defined by the reference client; unrecognized values are preserved
// verbatim and simply render as the default icon by whichever client
// doesn't recognize them.
type IconID int

// A handful of the built-in icons referenced elsewhere in this package
// and its tests. The full table runs to 68 entries; callers needing the
// rest can use any IconID value directly since it is only ever treated
// as an opaque index by this library.
const (
	IconKey        IconID = 0
	IconWorld      IconID = 1
	IconFolder     IconID = 48
	IconFolderOpen IconID = 49
	IconTrash      IconID = 43
)
