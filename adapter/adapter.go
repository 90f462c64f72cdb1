// Package adapter implements the control core of one Bluetooth
// controller: mode, discovery, bonding and pending authentication.
//
// All state is owned by a single Executor. Methods taking a *Call, the
// event handler and every watch or timer callback run on it; nothing in
// this package locks.
package adapter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
	"github.com/thentenaar/bluez-dinovo/storage"
)

// BasePath is the object path prefix of adapters.
const BasePath = "/org/bluez"

// Executor runs tasks and timers serially. loop.Loop implements it.
type Executor interface {
	Post(f func())
	AddTimeout(d time.Duration, f func() bool) uint
	RemoveTimeout(id uint) bool
	Done() <-chan struct{}
}

// Cond is a readiness condition of a RawConn.
type Cond int

const (
	CondOut Cond = 1 << iota
	CondErr
	CondHup
	CondNval
)

// RawConn is an outbound baseband link opened for bonding.
type RawConn interface {
	// Watch calls f once, from any goroutine, when one of cond or an
	// error condition is signalled. The returned func cancels it.
	Watch(cond Cond, f func(Cond)) func()
	SockError() error
	Handle() (uint16, error)
	Close() error
}

// DevInfo is the controller state reported by the kernel.
type DevInfo struct {
	Addr     bluez.Addr
	Up       bool
	Raw      bool
	Inquiry  bool
	Features [8]byte
}

// ConnInfo is one entry of the kernel connection table.
type ConnInfo struct {
	Handle uint16
	Addr   bluez.Addr
}

// Controller is the command channel to one controller plus the device
// level operations that bypass HCI.
type Controller interface {
	Send(c hci.Command, r hci.CommandRP) error
	SetEventHandler(f hci.EventHandler)
	DevUp() error
	DevDown() error
	DevInfo() (DevInfo, error)
	Connections() ([]ConnInfo, error)
	DialRaw(local, remote bluez.Addr) (RawConn, error)
}

// ObjectPath is a bus object path.
type ObjectPath string

// Variant wraps a property value of unspecified type.
type Variant struct {
	Value interface{}
}

// Bus carries signals, peer disconnect watches and agent proxies.
type Bus interface {
	Emit(path ObjectPath, member string, args ...interface{})
	// WatchName calls f, from any goroutine, once name leaves the bus.
	WatchName(name string, f func()) uint
	UnwatchName(id uint)
	NewAgent(name string, path ObjectPath, ioc bluez.IOCapability) Agent
	ExportDevice(a *Adapter, d *Device) error
	UnexportDevice(d *Device)
}

// Records is the service record database.
type Records interface {
	Add(owner string, local bluez.Addr, xml string) (uint32, error)
	Update(owner string, handle uint32, xml string) error
	Remove(owner string, handle uint32) error
	RemoveOwner(owner string)
}

// Discovery type flags.
const (
	discoverStdInquiry = 1 << iota
	discoverPeriodicInquiry
	discoverResolveName
)

// Adapter is one controller and everything in flight on it.
type Adapter struct {
	id     int
	path   ObjectPath
	addr   bluez.Addr
	cfg    bluez.Config
	loop   Executor
	ctl    Controller
	bus    Bus
	recs   Records
	store  *storage.Adapter
	logger bluez.Logger

	up         bool
	mode       bluez.Mode
	globalMode bluez.Mode
	onMode     bluez.Mode
	scanMode   uint8

	discovTimeout uint32
	discovTimer   uint

	discovType          int
	discovActive        bool
	pdiscovActive       bool
	pdiscovResolveNames bool
	discovRequestor     string
	discovWatch         uint
	pdiscovRequestor    string
	pdiscovWatch        uint
	discovCancel        *Call

	found []*foundDevice
	oor   []bluez.Addr

	sessions []*session
	confirms []*modeConfirm
	auths    []*PendingAuth
	conns    []activeConn
	bonding  *bonding
	devices  []*Device

	agent      Agent
	agentWatch uint

	recordOwners map[string]uint
	watches      map[uint]struct{}

	name     string
	class    uint32
	version  uint8
	revision uint16
	manuf    uint16
	subver   uint16
	features [8]byte
	sspMode  uint8
}

// New returns the adapter of hciN. It is not started.
func New(id int, cfg bluez.Config, l Executor, ctl Controller, bus Bus, recs Records) *Adapter {
	path := ObjectPath(fmt.Sprintf("%s/hci%d", BasePath, id))
	a := &Adapter{
		id:           id,
		path:         path,
		cfg:          cfg,
		loop:         l,
		ctl:          ctl,
		bus:          bus,
		recs:         recs,
		mode:         bluez.ModeOff,
		globalMode:   bluez.ModeOff,
		onMode:       bluez.ModeConnectable,
		recordOwners: make(map[string]uint),
		watches:      make(map[uint]struct{}),
		logger:       bluez.GetLogger().ChildLogger(map[string]interface{}{"adapter": fmt.Sprintf("hci%d", id)}),
	}

	ctl.SetEventHandler(func(code int, params []byte) {
		l.Post(func() { a.handleEvent(code, params) })
	})
	return a
}

// ID returns the device index.
func (a *Adapter) ID() int { return a.id }

// Path returns the object path.
func (a *Adapter) Path() ObjectPath { return a.path }

// Address returns the controller address; it is known once started.
func (a *Adapter) Address() bluez.Addr { return a.addr }

// IsUp reports whether the adapter has been started.
func (a *Adapter) IsUp() bool { return a.up }

// Mode returns the current mode.
func (a *Adapter) Mode() bluez.Mode { return a.mode }

// Do posts f with a fresh Call and waits for its reply.
func (a *Adapter) Do(sender string, f func(*Call)) ([]interface{}, *bluez.Error) {
	c := NewCall(sender)
	a.loop.Post(func() { f(c) })

	select {
	case <-c.Done():
		return c.Result()
	case <-a.loop.Done():
		return nil, bluez.ErrNoSuchAdapter()
	}
}

// watchName registers f for when name leaves the bus. f runs on the loop
// and only if the watch is still registered at that point.
func (a *Adapter) watchName(name string, f func()) uint {
	var id uint
	id = a.bus.WatchName(name, func() {
		a.loop.Post(func() {
			if _, ok := a.watches[id]; !ok {
				return
			}
			delete(a.watches, id)
			f()
		})
	})
	a.watches[id] = struct{}{}
	return id
}

func (a *Adapter) unwatch(id uint) {
	if id == 0 {
		return
	}
	if _, ok := a.watches[id]; ok {
		delete(a.watches, id)
		a.bus.UnwatchName(id)
	}
}

func (a *Adapter) emit(member string, args ...interface{}) {
	a.bus.Emit(a.path, member, args...)
}

func (a *Adapter) propertyChanged(name string, value interface{}) {
	a.emit("PropertyChanged", name, Variant{value})
}

// commandError converts a gateway failure to a reply.
func commandError(err error) *bluez.Error {
	if errors.Cause(err) == hci.ErrClosed {
		return bluez.ErrNoSuchAdapter()
	}
	return bluez.ErrFailed(hci.Strerror(err))
}

func devicePath(base ObjectPath, addr bluez.Addr) ObjectPath {
	return ObjectPath(fmt.Sprintf("%s/dev_%s", base, strings.Replace(addr.String(), ":", "_", -1)))
}
