// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-kdbx/pkg/kdbxcrypt"
)

// ParseXML reads the KDBX4 XML body from r, decrypting every Protected
// field value with inner in strict document order: this is a streaming,
// single-pass, event-driven parse over encoding/xml.Decoder.Token
// (rather than xml.Unmarshal) specifically so the inner cipher's
// position-sensitive keystream advances exactly once per Protected value
// encountered, in the order they appear on the wire, per spec section
// 4.7.
func ParseXML(r io.Reader, inner kdbxcrypt.InnerCipher) (*Database, error) {
	dec := xml.NewDecoder(r)
	p := &xmlParser{dec: dec, inner: inner}

	if err := p.expectStart("KeePassFile"); err != nil {
		return nil, err
	}

	db := &Database{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Meta":
				meta, err := parseMeta(p)
				if err != nil {
					return nil, err
				}
				db.Meta = *meta
			case "Root":
				root, deleted, err := parseRoot(p)
				if err != nil {
					return nil, err
				}
				db.Root = root
				db.DeletedObjects = deleted
			default:
				if err := p.skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "KeePassFile" {
				if db.Root == nil {
					return nil, &XMLError{Element: "KeePassFile", Err: fmt.Errorf("%w: missing Root", ErrXML)}
				}
				assignParents(db.Root, nil)
				return db, nil
			}
			return nil, &XMLError{Element: t.Name.Local, Err: fmt.Errorf("%w: unexpected close tag", ErrXML)}
		}
	}
}

// xmlParser wraps xml.Decoder with the inner cipher state and small
// convenience helpers used throughout the recursive-descent parse.
type xmlParser struct {
	dec   *xml.Decoder
	inner kdbxcrypt.InnerCipher
}

func (p *xmlParser) next() (xml.Token, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return nil, &XMLError{Element: "", Err: fmt.Errorf("%w: %v", ErrXML, err)}
	}
	return tok, nil
}

func (p *xmlParser) expectStart(name string) error {
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != name {
				return &XMLError{Element: se.Name.Local, Err: fmt.Errorf("%w: expected <%s>", ErrXML, name)}
			}
			return nil
		}
	}
}

// skip consumes tokens until the end of the element whose start tag was
// just read by the caller.
func (p *xmlParser) skip() error {
	depth := 1
	for depth > 0 {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// text reads character data until the matching end element for the
// start element just consumed, concatenating any CharData tokens. It
// tolerates nested elements it doesn't expect, dropping their tags but
// keeping their character data, mirroring the reference parser's
// forward-compatible stance.
func (p *xmlParser) text() (string, error) {
	var sb []byte
	depth := 1
	for depth > 0 {
		tok, err := p.next()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb = append(sb, t...)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return string(sb), nil
}

func parseUUIDText(s string) (uuid.UUID, error) {
	raw, err := decodeBase64Loose(s)
	if err != nil || len(raw) != 16 {
		return uuid.Nil, fmt.Errorf("%w: malformed uuid", ErrXML)
	}
	return uuid.FromBytes(raw)
}

func parseTimeText(s string) (time.Time, error) {
	raw, err := decodeBase64Loose(s)
	if err != nil || len(raw) != 8 {
		// KDBX3-style ISO-8601 text, tolerated on read though this
		// package always writes KDBX4's binary encoding.
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: malformed timestamp", ErrXML)
		}
		return t, nil
	}
	return timeFromKDBXSeconds(int64(readUint64LE(raw))), nil
}

func parseBoolText(s string) bool { return s == "True" || s == "true" || s == "1" }

func parseMeta(p *xmlParser) (*Meta, error) {
	m := &Meta{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Generator":
				m.Generator, err = p.text()
			case "DatabaseName":
				m.DatabaseName, err = p.text()
			case "DatabaseNameChanged":
				m.DatabaseNameChanged, err = parseTimeField(p)
			case "DatabaseDescription":
				m.DatabaseDescription, err = p.text()
			case "DatabaseDescriptionChanged":
				m.DatabaseDescriptionChanged, err = parseTimeField(p)
			case "DefaultUserName":
				m.DefaultUserName, err = p.text()
			case "DefaultUserNameChanged":
				m.DefaultUserNameChanged, err = parseTimeField(p)
			case "MaintenanceHistoryDays":
				var s string
				if s, err = p.text(); err == nil {
					v, perr := strconv.ParseUint(s, 10, 32)
					m.MaintenanceHistoryDays = uint32(v)
					err = perr
				}
			case "Color":
				m.Color, err = p.text()
			case "MasterKeyChanged":
				m.MasterKeyChanged, err = parseTimeField(p)
			case "MasterKeyChangeRec":
				var s string
				if s, err = p.text(); err == nil {
					m.MasterKeyChangeRec, err = strconv.Atoi(s)
				}
			case "MasterKeyChangeForce":
				var s string
				if s, err = p.text(); err == nil {
					m.MasterKeyChangeForce, err = strconv.Atoi(s)
				}
			case "RecycleBinEnabled":
				var s string
				if s, err = p.text(); err == nil {
					m.RecycleBinEnabled = parseBoolText(s)
				}
			case "RecycleBinUUID":
				m.RecycleBinUUID, err = parseUUIDField(p)
			case "RecycleBinChanged":
				m.RecycleBinChanged, err = parseTimeField(p)
			case "EntryTemplatesGroup":
				m.EntryTemplatesGroup, err = parseUUIDField(p)
			case "EntryTemplatesGroupChanged":
				m.EntryTemplatesGroupChanged, err = parseTimeField(p)
			case "LastSelectedGroup":
				m.LastSelectedGroup, err = parseUUIDField(p)
			case "LastTopVisibleGroup":
				m.LastTopVisibleGroup, err = parseUUIDField(p)
			case "CustomData":
				m.CustomData, err = parseCustomData(p)
			default:
				err = p.skip()
			}
			if err != nil {
				return nil, wrapXMLErr(t.Name.Local, err)
			}
		case xml.EndElement:
			if t.Name.Local == "Meta" {
				return m, nil
			}
		}
	}
}

func wrapXMLErr(element string, err error) error {
	if _, ok := err.(*XMLError); ok {
		return err
	}
	return &XMLError{Element: element, Err: fmt.Errorf("%w: %v", ErrXML, err)}
}

func parseTimeField(p *xmlParser) (time.Time, error) {
	s, err := p.text()
	if err != nil {
		return time.Time{}, err
	}
	return parseTimeText(s)
}

func parseUUIDField(p *xmlParser) (uuid.UUID, error) {
	s, err := p.text()
	if err != nil {
		return uuid.Nil, err
	}
	return parseUUIDText(s)
}

func parseCustomData(p *xmlParser) (CustomData, error) {
	cd := NewCustomData()
	for {
		tok, err := p.next()
		if err != nil {
			return cd, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "Item" {
				if err := p.skip(); err != nil {
					return cd, err
				}
				continue
			}
			item, key, err := parseCustomDataItem(p)
			if err != nil {
				return cd, err
			}
			cd.Set(key, item)
		case xml.EndElement:
			if t.Name.Local == "CustomData" {
				return cd, nil
			}
		}
	}
}

func parseCustomDataItem(p *xmlParser) (CustomDataItem, string, error) {
	var item CustomDataItem
	var key string
	for {
		tok, err := p.next()
		if err != nil {
			return item, key, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Key":
				key, err = p.text()
			case "Value":
				item.Value, err = p.text()
			case "LastModificationTime":
				item.LastModified, err = parseTimeField(p)
			default:
				err = p.skip()
			}
			if err != nil {
				return item, key, err
			}
		case xml.EndElement:
			if t.Name.Local == "Item" {
				return item, key, nil
			}
		}
	}
}

func parseTimes(p *xmlParser) (Times, error) {
	var t Times
	for {
		tok, err := p.next()
		if err != nil {
			return t, err
		}
		switch tk := tok.(type) {
		case xml.StartElement:
			switch tk.Name.Local {
			case "CreationTime":
				t.CreationTime, err = parseTimeField(p)
			case "LastModificationTime":
				t.LastModificationTime, err = parseTimeField(p)
			case "LastAccessTime":
				t.LastAccessTime, err = parseTimeField(p)
			case "ExpiryTime":
				t.ExpiryTime, err = parseTimeField(p)
			case "Expires":
				var s string
				if s, err = p.text(); err == nil {
					t.Expires = parseBoolText(s)
				}
			case "UsageCount":
				var s string
				if s, err = p.text(); err == nil {
					t.UsageCount, err = strconv.ParseInt(s, 10, 64)
				}
			case "LocationChanged":
				t.LocationChanged, err = parseTimeField(p)
			default:
				err = p.skip()
			}
			if err != nil {
				return t, wrapXMLErr(tk.Name.Local, err)
			}
		case xml.EndElement:
			if tk.Name.Local == "Times" {
				return t, nil
			}
		}
	}
}

// parseRoot parses the <Root> element: exactly one <Group> (the
// database root) followed by an optional <DeletedObjects>.
func parseRoot(p *xmlParser) (*Group, []DeletedObject, error) {
	var root *Group
	var deleted []DeletedObject
	for {
		tok, err := p.next()
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Group":
				root, err = parseGroup(p)
			case "DeletedObjects":
				deleted, err = parseDeletedObjects(p)
			default:
				err = p.skip()
			}
			if err != nil {
				return nil, nil, err
			}
		case xml.EndElement:
			if t.Name.Local == "Root" {
				return root, deleted, nil
			}
		}
	}
}

func parseDeletedObjects(p *xmlParser) ([]DeletedObject, error) {
	var out []DeletedObject
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "DeletedObject" {
				if err := p.skip(); err != nil {
					return nil, err
				}
				continue
			}
			obj, err := parseDeletedObject(p)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		case xml.EndElement:
			if t.Name.Local == "DeletedObjects" {
				return out, nil
			}
		}
	}
}

func parseDeletedObject(p *xmlParser) (DeletedObject, error) {
	var obj DeletedObject
	for {
		tok, err := p.next()
		if err != nil {
			return obj, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				obj.UUID, err = parseUUIDField(p)
			case "DeletionTime":
				obj.DeletionTime, err = parseTimeField(p)
			default:
				err = p.skip()
			}
			if err != nil {
				return obj, err
			}
		case xml.EndElement:
			if t.Name.Local == "DeletedObject" {
				return obj, nil
			}
		}
	}
}

func parseGroup(p *xmlParser) (*Group, error) {
	g := &Group{CustomData: NewCustomData()}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				g.UUID, err = parseUUIDField(p)
			case "Name":
				g.Name, err = p.text()
			case "Notes":
				g.Notes, err = p.text()
			case "IconID":
				var s string
				if s, err = p.text(); err == nil {
					v, perr := strconv.Atoi(s)
					g.IconID = IconID(v)
					err = perr
				}
			case "CustomIconUUID":
				var id uuid.UUID
				if id, err = parseUUIDField(p); err == nil {
					g.CustomIconUUID = &id
				}
			case "Times":
				g.Times, err = parseTimes(p)
			case "IsExpanded":
				var s string
				if s, err = p.text(); err == nil {
					g.IsExpanded = parseBoolText(s)
				}
			case "DefaultAutoTypeSequence":
				g.DefaultAutoTypeSequence, err = p.text()
			case "EnableAutoType":
				var s string
				if s, err = p.text(); err == nil {
					v := parseBoolText(s)
					g.EnableAutoType = &v
				}
			case "EnableSearching":
				var s string
				if s, err = p.text(); err == nil {
					v := parseBoolText(s)
					g.EnableSearching = &v
				}
			case "LastTopVisibleEntry":
				var id uuid.UUID
				if id, err = parseUUIDField(p); err == nil {
					g.LastTopVisibleEntry = &id
				}
			case "CustomData":
				g.CustomData, err = parseCustomData(p)
			case "Group":
				var sub *Group
				if sub, err = parseGroup(p); err == nil {
					g.Children = append(g.Children, sub)
				}
			case "Entry":
				var e *Entry
				if e, err = parseEntry(p); err == nil {
					g.Children = append(g.Children, e)
				}
			default:
				err = p.skip()
			}
			if err != nil {
				return nil, wrapXMLErr(t.Name.Local, err)
			}
		case xml.EndElement:
			if t.Name.Local == "Group" {
				return g, nil
			}
		}
	}
}

func parseEntry(p *xmlParser) (*Entry, error) {
	e := &Entry{Fields: NewFields(), CustomData: NewCustomData()}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				e.UUID, err = parseUUIDField(p)
			case "Tags":
				var s string
				if s, err = p.text(); err == nil {
					e.Tags = splitTags(s)
				}
			case "String":
				err = parseStringField(p, e)
			case "CustomData":
				e.CustomData, err = parseCustomData(p)
			case "AutoType":
				e.AutoType, err = parseAutoType(p)
			case "Times":
				e.Times, err = parseTimes(p)
			case "IconID":
				var s string
				if s, err = p.text(); err == nil {
					v, perr := strconv.Atoi(s)
					e.IconID = IconID(v)
					err = perr
				}
			case "CustomIconUUID":
				var id uuid.UUID
				if id, err = parseUUIDField(p); err == nil {
					e.CustomIconUUID = &id
				}
			case "ForegroundColor":
				e.ForegroundColor, err = p.text()
			case "BackgroundColor":
				e.BackgroundColor, err = p.text()
			case "OverrideURL":
				e.OverrideURL, err = p.text()
			case "QualityCheck":
				var s string
				if s, err = p.text(); err == nil {
					v := parseBoolText(s)
					e.QualityCheck = &v
				}
			case "History":
				e.History, err = parseHistory(p)
			default:
				err = p.skip()
			}
			if err != nil {
				return nil, wrapXMLErr(t.Name.Local, err)
			}
		case xml.EndElement:
			if t.Name.Local == "Entry" {
				return e, nil
			}
		}
	}
}

// parseValue parses the <Value> element whose start tag is start: a Ref
// attribute yields a binary reference, Protected="True" decrypts the
// content with the inner cipher in the exact order it is encountered,
// and anything else is plain text.
func (p *xmlParser) parseValue(start xml.StartElement) (Value, error) {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Ref" {
			ref, err := strconv.Atoi(attr.Value)
			if err != nil {
				return Value{}, err
			}
			if _, err := p.text(); err != nil {
				return Value{}, err
			}
			return BinaryRefValue(ref), nil
		}
		if attr.Name.Local == "Protected" && parseBoolText(attr.Value) {
			encoded, err := p.text()
			if err != nil {
				return Value{}, err
			}
			ciphertext, err := decodeBase64Loose(encoded)
			if err != nil {
				return Value{}, fmt.Errorf("%w: %v", ErrXML, err)
			}
			plaintext, err := p.inner.Decrypt(ciphertext)
			if err != nil {
				return Value{}, fmt.Errorf("%w: %v", ErrCrypto, err)
			}
			return ProtectedValue(string(plaintext)), nil
		}
	}
	s, err := p.text()
	if err != nil {
		return Value{}, err
	}
	return UnprotectedValue(s), nil
}

func parseStringField(p *xmlParser, e *Entry) error {
	var key string
	var value Value
	haveValue := false
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Key":
				key, err = p.text()
			case "Value":
				value, err = p.parseValue(t)
				haveValue = true
			default:
				err = p.skip()
			}
			if err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "String" {
				if haveValue {
					e.Fields.Set(key, value)
				}
				return nil
			}
		}
	}
}

func parseAutoType(p *xmlParser) (AutoType, error) {
	var at AutoType
	for {
		tok, err := p.next()
		if err != nil {
			return at, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Enabled":
				var s string
				if s, err = p.text(); err == nil {
					at.Enabled = parseBoolText(s)
				}
			case "DataTransferObfuscation":
				var s string
				if s, err = p.text(); err == nil {
					at.DataTransferObfuscation, err = strconv.Atoi(s)
				}
			case "DefaultSequence":
				at.DefaultSequence, err = p.text()
			case "Association":
				var assoc AutoTypeAssociation
				assoc, err = parseAutoTypeAssociation(p)
				at.Associations = append(at.Associations, assoc)
			default:
				err = p.skip()
			}
			if err != nil {
				return at, err
			}
		case xml.EndElement:
			if t.Name.Local == "AutoType" {
				return at, nil
			}
		}
	}
}

func parseAutoTypeAssociation(p *xmlParser) (AutoTypeAssociation, error) {
	var a AutoTypeAssociation
	for {
		tok, err := p.next()
		if err != nil {
			return a, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Window":
				a.Window, err = p.text()
			case "KeystrokeSequence":
				a.Sequence, err = p.text()
			default:
				err = p.skip()
			}
			if err != nil {
				return a, err
			}
		case xml.EndElement:
			if t.Name.Local == "Association" {
				return a, nil
			}
		}
	}
}

func parseHistory(p *xmlParser) (History, error) {
	var h History
	for {
		tok, err := p.next()
		if err != nil {
			return h, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "Entry" {
				if err := p.skip(); err != nil {
					return h, err
				}
				continue
			}
			entry, err := parseEntry(p)
			if err != nil {
				return h, err
			}
			if len(entry.History.Entries) > 0 {
				return h, ErrNestedHistory
			}
			h.Entries = append(h.Entries, entry)
		case xml.EndElement:
			if t.Name.Local == "History" {
				return h, nil
			}
		}
	}
}

// assignParents sets the parent back-reference on every node in the
// tree rooted at g, mirroring the reference parser's post-parse
// "set_parent" pass rather than threading a parent pointer through
// every recursive parse call.
func assignParents(g *Group, parent *Group) {
	g.setParent(parent)
	for _, child := range g.Children {
		switch c := child.(type) {
		case *Group:
			assignParents(c, g)
		case *Entry:
			c.setParent(g)
		}
	}
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ';' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
