// Package manager keeps the set of adapters known to the daemon and
// follows controllers as the kernel registers, powers and removes them.
package manager

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/adapter"
)

// EventType is a controller transition reported by the kernel.
type EventType int

const (
	Registered EventType = iota + 1
	Unregistered
	Up
	Down
)

func (t EventType) String() string {
	switch t {
	case Registered:
		return "registered"
	case Unregistered:
		return "unregistered"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Event is one transition of controller hciN.
type Event struct {
	Type EventType
	ID   int
}

// Bus is the bus side of the manager.
type Bus interface {
	adapter.Bus
	ExportAdapter(a *adapter.Adapter) error
	UnexportAdapter(a *adapter.Adapter)
	EmitManager(member string, args ...interface{})
}

// ControllerFunc opens the controller of hciN.
type ControllerFunc func(id int) (adapter.Controller, error)

type entry struct {
	a   *adapter.Adapter
	ctl adapter.Controller
}

// Manager owns the adapters. Everything but Do runs on the loop.
type Manager struct {
	cfg    bluez.Config
	loop   adapter.Executor
	bus    Bus
	recs   adapter.Records
	newCtl ControllerFunc

	adapters  map[int]*entry
	defaultID int
	logger    bluez.Logger
}

// New returns an empty manager.
func New(cfg bluez.Config, l adapter.Executor, bus Bus, recs adapter.Records, f ControllerFunc) *Manager {
	return &Manager{
		cfg:       cfg,
		loop:      l,
		bus:       bus,
		recs:      recs,
		newCtl:    f,
		adapters:  make(map[int]*entry),
		defaultID: -1,
		logger:    bluez.GetLogger().ChildLogger(map[string]interface{}{"manager": "hcid"}),
	}
}

// HandleEvent applies a controller transition.
func (m *Manager) HandleEvent(e Event) {
	m.logger.Debugf("hci%d %s", e.ID, e.Type)

	var err error
	switch e.Type {
	case Registered:
		err = m.register(e.ID)
	case Up:
		err = m.start(e.ID)
	case Down:
		m.stop(e.ID)
	case Unregistered:
		m.unregister(e.ID)
	}
	if err != nil {
		m.logger.Errorf("hci%d %s: %v", e.ID, e.Type, err)
	}
}

func (m *Manager) register(id int) error {
	if _, ok := m.adapters[id]; ok {
		return nil
	}

	ctl, err := m.newCtl(id)
	if err != nil {
		return errors.Wrapf(err, "can't open hci%d", id)
	}
	a := adapter.New(id, m.cfg, m.loop, ctl, m.bus, m.recs)
	if err := m.bus.ExportAdapter(a); err != nil {
		closeController(ctl)
		return err
	}
	m.adapters[id] = &entry{a: a, ctl: ctl}
	m.bus.EmitManager("AdapterAdded", a.Path())
	m.logger.Infof("adapter %s registered", a.Path())

	if m.defaultID < 0 {
		m.setDefault(id)
	}
	return nil
}

func (m *Manager) start(id int) error {
	if err := m.register(id); err != nil {
		return err
	}
	e := m.adapters[id]
	if err := e.a.Start(); err != nil {
		if errors.Cause(err) == adapter.ErrRawDevice {
			m.logger.Infof("hci%d is in raw mode, ignoring", id)
			return nil
		}
		return err
	}
	return nil
}

func (m *Manager) stop(id int) {
	if e, ok := m.adapters[id]; ok {
		e.a.Stop()
	}
}

func (m *Manager) unregister(id int) {
	e, ok := m.adapters[id]
	if !ok {
		return
	}
	e.a.Stop()
	m.bus.UnexportAdapter(e.a)
	closeController(e.ctl)
	delete(m.adapters, id)

	m.bus.EmitManager("AdapterRemoved", e.a.Path())
	m.logger.Infof("adapter %s removed", e.a.Path())

	if m.defaultID == id {
		m.defaultID = -1
		if ids := m.ids(); len(ids) != 0 {
			m.setDefault(ids[0])
		}
	}
}

func (m *Manager) setDefault(id int) {
	m.defaultID = id
	m.bus.EmitManager("DefaultAdapterChanged", m.adapters[id].a.Path())
}

func closeController(ctl adapter.Controller) {
	if c, ok := ctl.(io.Closer); ok {
		c.Close()
	}
}

func (m *Manager) ids() []int {
	ids := make([]int, 0, len(m.adapters))
	for id := range m.adapters {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Adapter returns the adapter of hciN.
func (m *Manager) Adapter(id int) (*adapter.Adapter, bool) {
	e, ok := m.adapters[id]
	if !ok {
		return nil, false
	}
	return e.a, true
}

// Shutdown stops and forgets every adapter.
func (m *Manager) Shutdown() {
	for _, id := range m.ids() {
		m.unregister(id)
	}
}

// Do posts f with a fresh Call and waits for its reply.
func (m *Manager) Do(sender string, f func(*adapter.Call)) ([]interface{}, *bluez.Error) {
	c := adapter.NewCall(sender)
	m.loop.Post(func() { f(c) })

	select {
	case <-c.Done():
		return c.Result()
	case <-m.loop.Done():
		return nil, bluez.ErrNoSuchAdapter()
	}
}

// DefaultAdapter replies with the path of the default adapter.
func (m *Manager) DefaultAdapter(c *adapter.Call) {
	e, ok := m.adapters[m.defaultID]
	if !ok {
		c.Fail(bluez.ErrNoSuchAdapter())
		return
	}
	c.Return(e.a.Path())
}

// FindAdapter replies with the adapter matching pattern: "any", hciN or
// a controller address.
func (m *Manager) FindAdapter(c *adapter.Call, pattern string) {
	if pattern == "any" {
		m.DefaultAdapter(c)
		return
	}

	for _, id := range m.ids() {
		a := m.adapters[id].a
		if pattern == fmt.Sprintf("hci%d", id) {
			c.Return(a.Path())
			return
		}
		if a.IsUp() && strings.EqualFold(pattern, a.Address().String()) {
			c.Return(a.Path())
			return
		}
	}
	c.Fail(bluez.ErrNoSuchAdapter())
}

// ListAdapters replies with the paths of all adapters, by device index.
func (m *Manager) ListAdapters(c *adapter.Call) {
	paths := []adapter.ObjectPath{}
	for _, id := range m.ids() {
		paths = append(paths, m.adapters[id].a.Path())
	}
	c.Return(paths)
}
