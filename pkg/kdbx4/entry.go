// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"github.com/google/uuid"
)

// AutoTypeAssociation binds a target window title pattern to an
// auto-type keystroke sequence; an entry may carry several, e.g. one per
// browser.
type AutoTypeAssociation struct {
	Window   string
	Sequence string
}

// AutoType is an entry's auto-type configuration.
type AutoType struct {
	Enabled                 bool
	DataTransferObfuscation int
	DefaultSequence         string
	Associations            []AutoTypeAssociation
}

// History is the list of prior versions of an Entry, most recent last.
// Spec section 4.7 forbids a History entry from itself carrying a
// non-empty History; this package enforces that by failing the parse
// with an XMLError (and PushHistory by returning ErrNestedHistory)
// rather than by making it unrepresentable in
// the type, since round-tripping an already-invalid file still needs
// somewhere to put the violating entry while it is being reported.
type History struct {
	Entries []*Entry
}

// Entry is a single credential record: its fields (Title, UserName,
// Password, URL, Notes, and any custom fields), tags, times, icon,
// display customization, auto-type configuration, and revision history.
// Entry implements Node.
type Entry struct {
	UUID            uuid.UUID
	Fields          Fields
	Tags            []string
	Times           Times
	IconID          IconID
	CustomIconUUID  *uuid.UUID
	ForegroundColor string
	BackgroundColor string
	OverrideURL     string
	QualityCheck    *bool
	AutoType        AutoType
	History         History
	CustomData      CustomData

	parent *Group
}

// NewEntry returns a new Entry with a fresh UUID, Times set to now, and
// empty Title/UserName/Password/URL/Notes fields.
func NewEntry() *Entry {
	fields := NewFields()
	fields.Set(FieldTitle, UnprotectedValue(""))
	fields.Set(FieldUserName, UnprotectedValue(""))
	fields.Set(FieldPassword, ProtectedValue(""))
	fields.Set(FieldURL, UnprotectedValue(""))
	fields.Set(FieldNotes, UnprotectedValue(""))
	return &Entry{
		UUID:       uuid.New(),
		Fields:     fields,
		Times:      NewTimes(),
		IconID:     IconKey,
		CustomData: NewCustomData(),
	}
}

// NodeUUID implements Node.
func (e *Entry) NodeUUID() uuid.UUID { return e.UUID }

// Parent implements Node.
func (e *Entry) Parent() *Group { return e.parent }

func (e *Entry) setParent(p *Group) { e.parent = p }

// Title is a convenience accessor for the entry's Title field.
func (e *Entry) Title() string {
	if v, ok := e.Fields.Get(FieldTitle); ok {
		return v.Reveal()
	}
	return ""
}

// Password is a convenience accessor for the entry's Password field.
func (e *Entry) Password() string {
	if v, ok := e.Fields.Get(FieldPassword); ok {
		return v.Reveal()
	}
	return ""
}

// PushHistory appends snapshot, a caller-made copy of e, to e.History.
// It returns ErrNestedHistory if snapshot itself carries a History (spec
// section 4.7). Callers typically call this immediately before mutating
// e's fields, so the pre-mutation state is preserved.
func (e *Entry) PushHistory(snapshot *Entry) error {
	if snapshot.History.Entries != nil {
		return ErrNestedHistory
	}
	e.History.Entries = append(e.History.Entries, snapshot)
	return nil
}

// Close zeroizes every protected value held directly by e and by its
// history entries.
func (e *Entry) Close() {
	e.Fields.Close()
	for _, h := range e.History.Entries {
		h.Close()
	}
}
