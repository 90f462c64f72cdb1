// Package bus puts adapters, devices and the manager on the D-Bus
// system bus and proxies client side agents.
package bus

import (
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/adapter"
)

// Well known names and interfaces.
const (
	ServiceName      = "org.bluez"
	ManagerPath      = "/"
	ManagerInterface = "org.bluez.Manager"
	AdapterInterface = "org.bluez.Adapter"
	DeviceInterface  = "org.bluez.Device"
	AgentInterface   = "org.bluez.Agent"

	dbusInterface   = "org.freedesktop.DBus"
	nameOwnerChange = "NameOwnerChanged"
)

type nameWatch struct {
	name string
	f    func()
}

// Bus is the daemon's connection to the system bus.
type Bus struct {
	conn   *dbus.Conn
	logger bluez.Logger

	mu      sync.Mutex
	watches map[uint]nameWatch
	next    uint

	signals chan *dbus.Signal
}

// Connect opens a private system bus connection and claims the service name.
func Connect() (*Bus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "can't connect to system bus")
	}

	rp, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "can't request %s", ServiceName)
	}
	if rp != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, errors.Errorf("%s is already owned", ServiceName)
	}

	b, err := New(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// New wraps an open connection and starts tracking peers leaving the bus.
func New(conn *dbus.Conn) (*Bus, error) {
	b := newBus(conn)
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(dbusInterface),
		dbus.WithMatchMember(nameOwnerChange),
	); err != nil {
		return nil, errors.Wrap(err, "can't watch name owners")
	}

	b.signals = make(chan *dbus.Signal, 16)
	conn.Signal(b.signals)
	go b.signalLoop()
	return b, nil
}

func newBus(conn *dbus.Conn) *Bus {
	return &Bus{
		conn:    conn,
		watches: make(map[uint]nameWatch),
		logger:  bluez.GetLogger().ChildLogger(map[string]interface{}{"bus": ServiceName}),
	}
}

// Close drops the connection.
func (b *Bus) Close() error {
	if b.signals != nil {
		b.conn.RemoveSignal(b.signals)
	}
	return b.conn.Close()
}

func (b *Bus) signalLoop() {
	for sig := range b.signals {
		b.handleSignal(sig)
	}
}

func (b *Bus) handleSignal(sig *dbus.Signal) {
	if sig.Name != dbusInterface+"."+nameOwnerChange || len(sig.Body) != 3 {
		return
	}
	name, _ := sig.Body[0].(string)
	newOwner, _ := sig.Body[2].(string)
	if name == "" || newOwner != "" {
		return
	}
	b.nameLost(name)
}

// nameLost fires and drops every watch on name.
func (b *Bus) nameLost(name string) {
	var fire []func()
	b.mu.Lock()
	for id, w := range b.watches {
		if w.name == name {
			fire = append(fire, w.f)
			delete(b.watches, id)
		}
	}
	b.mu.Unlock()

	if len(fire) != 0 {
		b.logger.Debugf("%s left the bus", name)
	}
	for _, f := range fire {
		f()
	}
}

// WatchName calls f once name leaves the bus. A name that is already
// gone fires at once, on another goroutine.
func (b *Bus) WatchName(name string, f func()) uint {
	b.mu.Lock()
	b.next++
	id := b.next
	b.watches[id] = nameWatch{name: name, f: f}
	b.mu.Unlock()

	if b.conn != nil {
		go b.checkOwner(id, name)
	}
	return id
}

func (b *Bus) checkOwner(id uint, name string) {
	var has bool
	err := b.conn.BusObject().Call(dbusInterface+".NameHasOwner", 0, name).Store(&has)
	if err != nil {
		b.logger.Debugf("NameHasOwner %s: %v", name, err)
		return
	}
	if has {
		return
	}

	b.mu.Lock()
	w, ok := b.watches[id]
	delete(b.watches, id)
	b.mu.Unlock()
	if ok {
		w.f()
	}
}

// UnwatchName drops a watch that has not fired.
func (b *Bus) UnwatchName(id uint) {
	b.mu.Lock()
	delete(b.watches, id)
	b.mu.Unlock()
}

// Emit sends an adapter signal.
func (b *Bus) Emit(path adapter.ObjectPath, member string, args ...interface{}) {
	b.emit(dbus.ObjectPath(path), AdapterInterface+"."+member, args...)
}

// EmitManager sends a manager signal.
func (b *Bus) EmitManager(member string, args ...interface{}) {
	b.emit(ManagerPath, ManagerInterface+"."+member, args...)
}

func (b *Bus) emit(path dbus.ObjectPath, name string, args ...interface{}) {
	vals := make([]interface{}, len(args))
	for i, a := range args {
		vals[i] = toDBus(a)
	}
	if err := b.conn.Emit(path, name, vals...); err != nil {
		b.logger.Warnf("can't emit %s on %s: %v", name, path, err)
	}
}

// NewAgent returns a proxy for the agent object at path owned by name.
func (b *Bus) NewAgent(name string, path adapter.ObjectPath, ioc bluez.IOCapability) adapter.Agent {
	return newAgent(b.conn.Object(name, dbus.ObjectPath(path)), name, path, ioc)
}
