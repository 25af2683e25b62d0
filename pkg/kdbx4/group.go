// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import "github.com/google/uuid"

// Group is a folder in the database tree: it has a name and icon, a
// Times record, and an ordered list of child Groups and Entries. Group
// implements Node so a group can itself be a child of another group.
type Group struct {
	UUID                    uuid.UUID
	Name                    string
	Notes                   string
	IconID                  IconID
	CustomIconUUID          *uuid.UUID
	Times                   Times
	IsExpanded              bool
	DefaultAutoTypeSequence string
	EnableAutoType          *bool
	EnableSearching         *bool
	LastTopVisibleEntry     *uuid.UUID
	CustomData              CustomData
	Children                []Node

	parent *Group
}

// NewGroup returns a new Group named name with a fresh UUID and Times set
// to now.
func NewGroup(name string) *Group {
	return &Group{
		UUID:       uuid.New(),
		Name:       name,
		IconID:     IconFolder,
		Times:      NewTimes(),
		CustomData: NewCustomData(),
	}
}

// NodeUUID implements Node.
func (g *Group) NodeUUID() uuid.UUID { return g.UUID }

// Parent implements Node.
func (g *Group) Parent() *Group { return g.parent }

func (g *Group) setParent(p *Group) { g.parent = p }

// Groups returns g's immediate child groups, in order.
func (g *Group) Groups() []*Group {
	var out []*Group
	for _, c := range g.Children {
		if sub, ok := c.(*Group); ok {
			out = append(out, sub)
		}
	}
	return out
}

// Entries returns g's immediate child entries, in order.
func (g *Group) Entries() []*Entry {
	var out []*Entry
	for _, c := range g.Children {
		if e, ok := c.(*Entry); ok {
			out = append(out, e)
		}
	}
	return out
}

// FindGroupByUUID returns the first descendant group of g (g included)
// with the given UUID, or nil.
func (g *Group) FindGroupByUUID(id uuid.UUID) *Group {
	if n := FindByUUID(g, id); n != nil {
		if sub, ok := n.(*Group); ok {
			return sub
		}
	}
	return nil
}

// FindEntryByUUID returns the first descendant entry of g with the given
// UUID, or nil.
func (g *Group) FindEntryByUUID(id uuid.UUID) *Entry {
	var found *Entry
	Walk(g, func(n Node) bool {
		if e, ok := n.(*Entry); ok && e.UUID == id {
			found = e
			return false
		}
		return true
	})
	return found
}
