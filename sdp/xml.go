package sdp

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
)

// Attribute ids with special meaning to the database.
const (
	AttrRecordHandle     = 0x0000
	AttrServiceClassList = 0x0001
	AttrServiceName      = 0x0100
)

type xmlRecord struct {
	XMLName    xml.Name       `xml:"record"`
	Attributes []xmlAttribute `xml:"attribute"`
}

type xmlAttribute struct {
	ID    string     `xml:"id,attr"`
	Value []xmlValue `xml:",any"`
}

type xmlValue struct {
	XMLName  xml.Name
	Value    string     `xml:"value,attr"`
	Encoding string     `xml:"encoding,attr"`
	Children []xmlValue `xml:",any"`
}

// parsed is what the database keeps from a record document.
type parsed struct {
	attrs   []uint16
	classes []uuid.UUID
	name    string
}

// parseRecord checks a record document and pulls out the attribute ids,
// service classes and service name.
func parseRecord(doc string) (parsed, error) {
	var r xmlRecord
	d := xml.NewDecoder(strings.NewReader(doc))
	if err := d.Decode(&r); err != nil {
		return parsed{}, errors.Wrap(err, "malformed record")
	}

	var p parsed
	seen := map[uint16]bool{}
	for _, a := range r.Attributes {
		id, err := parseUint16(a.ID)
		if err != nil {
			return parsed{}, errors.Wrapf(err, "attribute id %q", a.ID)
		}
		if seen[id] {
			return parsed{}, errors.Errorf("duplicate attribute 0x%04x", id)
		}
		seen[id] = true
		p.attrs = append(p.attrs, id)

		switch id {
		case AttrServiceClassList:
			for _, v := range a.Value {
				uu, err := collectUUIDs(v)
				if err != nil {
					return parsed{}, err
				}
				p.classes = append(p.classes, uu...)
			}
		case AttrServiceName:
			if len(a.Value) == 1 && a.Value[0].XMLName.Local == "text" {
				p.name = a.Value[0].Value
			}
		}
	}
	return p, nil
}

func collectUUIDs(v xmlValue) ([]uuid.UUID, error) {
	if v.XMLName.Local == "uuid" {
		u, err := parseUUID(v.Value)
		if err != nil {
			return nil, err
		}
		return []uuid.UUID{u}, nil
	}

	var out []uuid.UUID
	for _, c := range v.Children {
		uu, err := collectUUIDs(c)
		if err != nil {
			return nil, err
		}
		out = append(out, uu...)
	}
	return out, nil
}

// parseUUID accepts 16 and 32 bit short forms as well as full UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return uuid.Nil, errors.Wrapf(err, "uuid %q", s)
		}
		return bluez.ShortUUID(uint32(v)), nil
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "uuid %q", s)
	}
	return u, nil
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	return uint16(v), err
}
