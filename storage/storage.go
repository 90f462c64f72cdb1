// Package storage persists per-adapter state as JSON documents under
// <root>/<adapter address>/.
package storage

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
)

// Config keys.
const (
	KeyName     = "name"
	KeyMode     = "mode"
	KeyOnMode   = "onmode"
	KeyDiscovTo = "discovto"
	KeyClass    = "class"
)

// LinkKey is a stored BR/EDR link key.
type LinkKey struct {
	Key     string `json:"key"`
	Type    uint8  `json:"type"`
	PINLen  uint8  `json:"pinlen,omitempty"`
	Created int64  `json:"created,omitempty"`
}

// Bytes decodes the hex key.
func (k LinkKey) Bytes() ([16]byte, error) {
	var out [16]byte
	b, err := hex.DecodeString(k.Key)
	if err != nil || len(b) != 16 {
		return out, fmt.Errorf("invalid link key %q", k.Key)
	}
	copy(out[:], b)
	return out, nil
}

// NewLinkKey encodes a key received from the controller.
func NewLinkKey(key [16]byte, typ uint8) LinkKey {
	return LinkKey{Key: hex.EncodeToString(key[:]), Type: typ}
}

// Adapter is the persisted state of one adapter.
type Adapter struct {
	dir      string
	config   *file
	linkKeys *file
	profiles *file
	names    *file
}

// Open returns the store of the adapter with address addr, creating
// its directory if needed.
func Open(root string, addr bluez.Addr) (*Adapter, error) {
	dir := filepath.Join(root, addr.String())
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	return &Adapter{
		dir:      dir,
		config:   newFile(filepath.Join(dir, "config")),
		linkKeys: newFile(filepath.Join(dir, "linkkeys")),
		profiles: newFile(filepath.Join(dir, "profiles")),
		names:    newFile(filepath.Join(dir, "names")),
	}, nil
}

// Dir returns the adapter directory.
func (a *Adapter) Dir() string {
	return a.dir
}

// ReadConfig returns the value of key and whether it was present.
func (a *Adapter) ReadConfig(key string) (string, bool, error) {
	m := map[string]string{}
	if err := a.config.read(&m); err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// WriteConfig sets key to value.
func (a *Adapter) WriteConfig(key, value string) error {
	m := map[string]string{}
	return a.config.update(&m, func() error {
		m[key] = value
		return nil
	})
}

// ReadUint reads a numeric config value.
func (a *Adapter) ReadUint(key string) (uint32, bool, error) {
	s, ok, err := a.ReadConfig(key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, false, errors.Wrapf(err, "invalid %s", key)
	}
	return uint32(v), true, nil
}

// WriteUint stores a numeric config value.
func (a *Adapter) WriteUint(key string, v uint32) error {
	return a.WriteConfig(key, strconv.FormatUint(uint64(v), 10))
}

// LinkKey returns the stored key for addr.
func (a *Adapter) LinkKey(addr bluez.Addr) (LinkKey, bool, error) {
	m := map[string]LinkKey{}
	if err := a.linkKeys.read(&m); err != nil {
		return LinkKey{}, false, err
	}
	k, ok := m[addr.String()]
	return k, ok, nil
}

// HasLinkKey reports whether a key is stored for addr. Read errors count as absent.
func (a *Adapter) HasLinkKey(addr bluez.Addr) bool {
	_, ok, err := a.LinkKey(addr)
	return err == nil && ok
}

// StoreLinkKey records a key for addr.
func (a *Adapter) StoreLinkKey(addr bluez.Addr, k LinkKey) error {
	if _, err := k.Bytes(); err != nil {
		return err
	}
	m := map[string]LinkKey{}
	return a.linkKeys.update(&m, func() error {
		m[addr.String()] = k
		return nil
	})
}

// DeleteLinkKey forgets the key for addr.
func (a *Adapter) DeleteLinkKey(addr bluez.Addr) error {
	m := map[string]LinkKey{}
	return a.linkKeys.update(&m, func() error {
		delete(m, addr.String())
		return nil
	})
}

// Profiles returns the service UUIDs recorded for addr.
func (a *Adapter) Profiles(addr bluez.Addr) ([]uuid.UUID, error) {
	m := map[string][]string{}
	if err := a.profiles.read(&m); err != nil {
		return nil, err
	}

	var out []uuid.UUID
	for _, s := range m[addr.String()] {
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid profile for %s", addr)
		}
		out = append(out, u)
	}
	return out, nil
}

// SetProfiles replaces the service UUIDs recorded for addr.
func (a *Adapter) SetProfiles(addr bluez.Addr, uu []uuid.UUID) error {
	ss := make([]string, 0, len(uu))
	for _, u := range uu {
		ss = append(ss, u.String())
	}

	m := map[string][]string{}
	return a.profiles.update(&m, func() error {
		m[addr.String()] = ss
		return nil
	})
}

// DeleteProfiles forgets the service UUIDs of addr.
func (a *Adapter) DeleteProfiles(addr bluez.Addr) error {
	m := map[string][]string{}
	return a.profiles.update(&m, func() error {
		delete(m, addr.String())
		return nil
	})
}

// RemoteName returns the cached name of addr.
func (a *Adapter) RemoteName(addr bluez.Addr) (string, bool) {
	m := map[string]string{}
	if err := a.names.read(&m); err != nil {
		return "", false
	}
	n, ok := m[addr.String()]
	return n, ok
}

// StoreRemoteName caches the name of addr.
func (a *Adapter) StoreRemoteName(addr bluez.Addr, name string) error {
	m := map[string]string{}
	return a.names.update(&m, func() error {
		m[addr.String()] = name
		return nil
	})
}

// Devices returns every address with a stored link key or profile list.
func (a *Adapter) Devices() ([]bluez.Addr, error) {
	seen := map[string]bool{}

	keys := map[string]LinkKey{}
	if err := a.linkKeys.read(&keys); err != nil {
		return nil, err
	}
	for k := range keys {
		seen[k] = true
	}

	profiles := map[string][]string{}
	if err := a.profiles.read(&profiles); err != nil {
		return nil, err
	}
	for k := range profiles {
		seen[k] = true
	}

	ss := make([]string, 0, len(seen))
	for k := range seen {
		ss = append(ss, k)
	}
	sort.Strings(ss)

	out := make([]bluez.Addr, 0, len(ss))
	for _, s := range ss {
		addr, err := bluez.ParseAddr(s)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	return out, nil
}
