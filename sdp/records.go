// Package sdp keeps the service records registered by bus clients.
//
// Records arrive as XML documents. They are checked for well-formedness
// and indexed by handle; the SDP protocol itself is served elsewhere.
package sdp

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
)

// FirstHandle is the first handle given to a client record. Lower
// handles are reserved for the server's own records.
const FirstHandle = 0x10000

// Record is one registered service record.
type Record struct {
	Handle  uint32
	Owner   string
	Local   bluez.Addr
	XML     string
	Attrs   []uint16
	Classes []uuid.UUID
	Name    string
}

// DB is the record database shared by all adapters. It is not safe for
// concurrent use; callers serialize on the event loop.
type DB struct {
	next    uint32
	records map[uint32]*Record
	logger  bluez.Logger
}

// NewDB returns an empty database.
func NewDB() *DB {
	return &DB{
		next:    FirstHandle,
		records: make(map[uint32]*Record),
		logger:  bluez.GetLogger().ChildLogger(map[string]interface{}{"sdp": "db"}),
	}
}

// Add registers doc for owner on the adapter at local and returns its handle.
func (db *DB) Add(owner string, local bluez.Addr, doc string) (uint32, error) {
	p, err := parseRecord(doc)
	if err != nil {
		return 0, bluez.ErrInvalidArguments(errors.Wrap(err, "parsing of XML service record failed").Error())
	}

	h := db.next
	db.next++
	db.records[h] = &Record{
		Handle:  h,
		Owner:   owner,
		Local:   local,
		XML:     doc,
		Attrs:   p.attrs,
		Classes: p.classes,
		Name:    p.name,
	}
	db.logger.Debugf("added record 0x%x for %s", h, owner)
	return h, nil
}

// Update replaces the document of owner's record at handle.
func (db *DB) Update(owner string, handle uint32, doc string) error {
	r, err := db.owned(owner, handle)
	if err != nil {
		return err
	}

	p, err := parseRecord(doc)
	if err != nil {
		return bluez.ErrFailed(errors.Wrap(err, "parsing of XML service record failed").Error())
	}
	r.XML = doc
	r.Attrs = p.attrs
	r.Classes = p.classes
	r.Name = p.name
	db.logger.Debugf("updated record 0x%x", handle)
	return nil
}

// Remove drops owner's record at handle.
func (db *DB) Remove(owner string, handle uint32) error {
	if _, err := db.owned(owner, handle); err != nil {
		return bluez.ErrNotAvailable("Not Available")
	}
	delete(db.records, handle)
	db.logger.Debugf("removed record 0x%x", handle)
	return nil
}

// RemoveOwner drops every record of owner.
func (db *DB) RemoveOwner(owner string) {
	for h, r := range db.records {
		if r.Owner == owner {
			delete(db.records, h)
			db.logger.Debugf("removed record 0x%x of exited %s", h, owner)
		}
	}
}

// Get returns the record at handle.
func (db *DB) Get(handle uint32) (*Record, bool) {
	r, ok := db.records[handle]
	return r, ok
}

// Records returns the records registered on local, ordered by handle.
func (db *DB) Records(local bluez.Addr) []*Record {
	var out []*Record
	for _, r := range db.records {
		if r.Local == local {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func (db *DB) owned(owner string, handle uint32) (*Record, error) {
	r, ok := db.records[handle]
	if !ok {
		return nil, bluez.ErrNotAvailable("Not Available")
	}
	if r.Owner != owner {
		return nil, bluez.ErrNotAuthorized()
	}
	return r, nil
}
