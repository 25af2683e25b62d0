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

// WriteXML serializes db as the KDBX4 XML body to w, encrypting every
// Protected field value with inner in strict document order: inner's
// internal stream position after this call reflects every value emitted,
// which is why inner must be freshly constructed (or rewound to the
// start of its key stream) before each call, per spec section 4.7.
func WriteXML(w io.Writer, db *Database, inner kdbxcrypt.InnerCipher) error {
	enc := xml.NewEncoder(w)
	x := &xmlWriter{enc: enc, inner: inner}

	if err := x.start("KeePassFile"); err != nil {
		return err
	}
	if err := dumpMeta(x, &db.Meta); err != nil {
		return err
	}
	if err := x.start("Root"); err != nil {
		return err
	}
	if err := dumpGroup(x, db.Root); err != nil {
		return err
	}
	if err := dumpDeletedObjects(x, db.DeletedObjects); err != nil {
		return err
	}
	if err := x.end("Root"); err != nil {
		return err
	}
	if err := x.end("KeePassFile"); err != nil {
		return err
	}
	return enc.Flush()
}

// xmlWriter is a thin convenience layer over xml.Encoder's token API,
// threading the inner stream cipher through every call so Value.dump can
// reach it without a global.
type xmlWriter struct {
	enc   *xml.Encoder
	inner kdbxcrypt.InnerCipher
	err   error
}

func (x *xmlWriter) start(name string, attrs ...xml.Attr) error {
	if x.err != nil {
		return x.err
	}
	x.err = x.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
	return x.err
}

func (x *xmlWriter) end(name string) error {
	if x.err != nil {
		return x.err
	}
	x.err = x.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
	return x.err
}

func (x *xmlWriter) text(s string) error {
	if x.err != nil {
		return x.err
	}
	x.err = x.enc.EncodeToken(xml.CharData(s))
	return x.err
}

func (x *xmlWriter) simple(name, value string, attrs ...xml.Attr) error {
	if err := x.start(name, attrs...); err != nil {
		return err
	}
	if value != "" {
		if err := x.text(value); err != nil {
			return err
		}
	}
	return x.end(name)
}

func (x *xmlWriter) simpleBool(name string, value bool) error {
	return x.simple(name, boolToXML(value))
}

func (x *xmlWriter) simpleUUID(name string, id uuid.UUID) error {
	return x.simple(name, encodeBase64(id[:]))
}

func (x *xmlWriter) simpleTime(name string, t time.Time) error {
	return x.simple(name, encodeBase64(putUint64LE(uint64(secondsSinceKDBXEpoch(t)))))
}

func boolToXML(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func dumpMeta(x *xmlWriter, m *Meta) error {
	if err := x.start("Meta"); err != nil {
		return err
	}
	if err := x.simple("Generator", m.Generator); err != nil {
		return err
	}
	if err := x.simple("DatabaseName", m.DatabaseName); err != nil {
		return err
	}
	if err := x.simpleTime("DatabaseNameChanged", m.DatabaseNameChanged); err != nil {
		return err
	}
	if err := x.simple("DatabaseDescription", m.DatabaseDescription); err != nil {
		return err
	}
	if err := x.simpleTime("DatabaseDescriptionChanged", m.DatabaseDescriptionChanged); err != nil {
		return err
	}
	if err := x.simple("DefaultUserName", m.DefaultUserName); err != nil {
		return err
	}
	if err := x.simpleTime("DefaultUserNameChanged", m.DefaultUserNameChanged); err != nil {
		return err
	}
	if err := x.simple("MaintenanceHistoryDays", strconv.FormatUint(uint64(m.MaintenanceHistoryDays), 10)); err != nil {
		return err
	}
	if err := x.simple("Color", m.Color); err != nil {
		return err
	}
	if err := x.simpleTime("MasterKeyChanged", m.MasterKeyChanged); err != nil {
		return err
	}
	if err := x.simple("MasterKeyChangeRec", strconv.Itoa(m.MasterKeyChangeRec)); err != nil {
		return err
	}
	if err := x.simple("MasterKeyChangeForce", strconv.Itoa(m.MasterKeyChangeForce)); err != nil {
		return err
	}
	if err := x.simpleBool("RecycleBinEnabled", m.RecycleBinEnabled); err != nil {
		return err
	}
	if err := x.simpleUUID("RecycleBinUUID", m.RecycleBinUUID); err != nil {
		return err
	}
	if err := x.simpleTime("RecycleBinChanged", m.RecycleBinChanged); err != nil {
		return err
	}
	if err := x.simpleUUID("EntryTemplatesGroup", m.EntryTemplatesGroup); err != nil {
		return err
	}
	if err := x.simpleTime("EntryTemplatesGroupChanged", m.EntryTemplatesGroupChanged); err != nil {
		return err
	}
	if err := x.simpleUUID("LastSelectedGroup", m.LastSelectedGroup); err != nil {
		return err
	}
	if err := x.simpleUUID("LastTopVisibleGroup", m.LastTopVisibleGroup); err != nil {
		return err
	}
	if err := dumpCustomData(x, m.CustomData); err != nil {
		return err
	}
	return x.end("Meta")
}

func dumpCustomData(x *xmlWriter, cd CustomData) error {
	if err := x.start("CustomData"); err != nil {
		return err
	}
	for _, k := range cd.Keys() {
		item, _ := cd.Get(k)
		if err := x.start("Item"); err != nil {
			return err
		}
		if err := x.simple("Key", k); err != nil {
			return err
		}
		if err := x.simple("Value", item.Value); err != nil {
			return err
		}
		if !item.LastModified.IsZero() {
			if err := x.simpleTime("LastModificationTime", item.LastModified); err != nil {
				return err
			}
		}
		if err := x.end("Item"); err != nil {
			return err
		}
	}
	return x.end("CustomData")
}

func dumpTimes(x *xmlWriter, t Times) error {
	if err := x.start("Times"); err != nil {
		return err
	}
	if err := x.simpleTime("CreationTime", t.CreationTime); err != nil {
		return err
	}
	if err := x.simpleTime("LastModificationTime", t.LastModificationTime); err != nil {
		return err
	}
	if err := x.simpleTime("LastAccessTime", t.LastAccessTime); err != nil {
		return err
	}
	if err := x.simpleTime("ExpiryTime", t.ExpiryTime); err != nil {
		return err
	}
	if err := x.simpleBool("Expires", t.Expires); err != nil {
		return err
	}
	if err := x.simple("UsageCount", strconv.FormatInt(t.UsageCount, 10)); err != nil {
		return err
	}
	if err := x.simpleTime("LocationChanged", t.LocationChanged); err != nil {
		return err
	}
	return x.end("Times")
}

func dumpGroup(x *xmlWriter, g *Group) error {
	if err := x.start("Group"); err != nil {
		return err
	}
	if err := x.simpleUUID("UUID", g.UUID); err != nil {
		return err
	}
	if err := x.simple("Name", g.Name); err != nil {
		return err
	}
	if err := x.simple("Notes", g.Notes); err != nil {
		return err
	}
	if err := x.simple("IconID", strconv.Itoa(int(g.IconID))); err != nil {
		return err
	}
	if g.CustomIconUUID != nil {
		if err := x.simpleUUID("CustomIconUUID", *g.CustomIconUUID); err != nil {
			return err
		}
	}
	if err := dumpTimes(x, g.Times); err != nil {
		return err
	}
	if err := x.simpleBool("IsExpanded", g.IsExpanded); err != nil {
		return err
	}
	if err := x.simple("DefaultAutoTypeSequence", g.DefaultAutoTypeSequence); err != nil {
		return err
	}
	if g.EnableAutoType != nil {
		if err := x.simpleBool("EnableAutoType", *g.EnableAutoType); err != nil {
			return err
		}
	}
	if g.EnableSearching != nil {
		if err := x.simpleBool("EnableSearching", *g.EnableSearching); err != nil {
			return err
		}
	}
	if g.LastTopVisibleEntry != nil {
		if err := x.simpleUUID("LastTopVisibleEntry", *g.LastTopVisibleEntry); err != nil {
			return err
		}
	}
	if err := dumpCustomData(x, g.CustomData); err != nil {
		return err
	}
	for _, child := range g.Children {
		switch c := child.(type) {
		case *Group:
			if err := dumpGroup(x, c); err != nil {
				return err
			}
		case *Entry:
			if err := dumpEntry(x, c); err != nil {
				return err
			}
		}
	}
	return x.end("Group")
}

// dumpEntry emits an Entry's elements in the canonical order the
// reference implementation uses: UUID, Tags, String fields, CustomData,
// AutoType, Times, IconID, CustomIconUUID, ForegroundColor,
// BackgroundColor, OverrideURL, QualityCheck, History.
func dumpEntry(x *xmlWriter, e *Entry) error {
	if err := x.start("Entry"); err != nil {
		return err
	}
	if err := x.simpleUUID("UUID", e.UUID); err != nil {
		return err
	}
	if err := x.simple("Tags", joinTags(e.Tags)); err != nil {
		return err
	}
	for _, key := range e.Fields.Keys() {
		v, _ := e.Fields.Get(key)
		if err := x.start("String"); err != nil {
			return err
		}
		if err := x.simple("Key", key); err != nil {
			return err
		}
		if err := dumpValue(x, v); err != nil {
			return err
		}
		if err := x.end("String"); err != nil {
			return err
		}
	}
	if err := dumpCustomData(x, e.CustomData); err != nil {
		return err
	}
	if err := dumpAutoType(x, e.AutoType); err != nil {
		return err
	}
	if err := dumpTimes(x, e.Times); err != nil {
		return err
	}
	if err := x.simple("IconID", strconv.Itoa(int(e.IconID))); err != nil {
		return err
	}
	if e.CustomIconUUID != nil {
		if err := x.simpleUUID("CustomIconUUID", *e.CustomIconUUID); err != nil {
			return err
		}
	}
	if err := x.simple("ForegroundColor", e.ForegroundColor); err != nil {
		return err
	}
	if err := x.simple("BackgroundColor", e.BackgroundColor); err != nil {
		return err
	}
	if err := x.simple("OverrideURL", e.OverrideURL); err != nil {
		return err
	}
	if e.QualityCheck != nil {
		if err := x.simpleBool("QualityCheck", *e.QualityCheck); err != nil {
			return err
		}
	}
	if len(e.History.Entries) > 0 {
		if err := x.start("History"); err != nil {
			return err
		}
		for _, h := range e.History.Entries {
			if err := dumpEntry(x, h); err != nil {
				return err
			}
		}
		if err := x.end("History"); err != nil {
			return err
		}
	}
	return x.end("Entry")
}

// dumpValue emits a single entry field's Value element. Protected values
// are encrypted with the inner stream cipher at the moment they are
// emitted, so their position in the keystream is exactly their position
// in the document.
func dumpValue(x *xmlWriter, v Value) error {
	switch v.Kind() {
	case KindBinary:
		return x.simple("Value", strconv.Itoa(v.BinaryRef()), xml.Attr{Name: xml.Name{Local: "Ref"}, Value: strconv.Itoa(v.BinaryRef())})
	case KindProtected:
		ciphertext, err := x.inner.Encrypt([]byte(v.Reveal()))
		if err != nil {
			return &XMLError{Element: "Value", Err: fmt.Errorf("%w: %v", ErrCrypto, err)}
		}
		return x.simple("Value", encodeBase64(ciphertext), xml.Attr{Name: xml.Name{Local: "Protected"}, Value: "True"})
	default:
		return x.simple("Value", v.Reveal())
	}
}

func dumpAutoType(x *xmlWriter, at AutoType) error {
	if err := x.start("AutoType"); err != nil {
		return err
	}
	if err := x.simpleBool("Enabled", at.Enabled); err != nil {
		return err
	}
	if err := x.simple("DataTransferObfuscation", strconv.Itoa(at.DataTransferObfuscation)); err != nil {
		return err
	}
	if err := x.simple("DefaultSequence", at.DefaultSequence); err != nil {
		return err
	}
	for _, assoc := range at.Associations {
		if err := x.start("Association"); err != nil {
			return err
		}
		if err := x.simple("Window", assoc.Window); err != nil {
			return err
		}
		if err := x.simple("KeystrokeSequence", assoc.Sequence); err != nil {
			return err
		}
		if err := x.end("Association"); err != nil {
			return err
		}
	}
	return x.end("AutoType")
}

func dumpDeletedObjects(x *xmlWriter, objs []DeletedObject) error {
	if err := x.start("DeletedObjects"); err != nil {
		return err
	}
	for _, o := range objs {
		if err := x.start("DeletedObject"); err != nil {
			return err
		}
		if err := x.simpleUUID("UUID", o.UUID); err != nil {
			return err
		}
		if err := x.simpleTime("DeletionTime", o.DeletionTime); err != nil {
			return err
		}
		if err := x.end("DeletedObject"); err != nil {
			return err
		}
	}
	return x.end("DeletedObjects")
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ";"
		}
		out += t
	}
	return out
}
