package adapter

import (
	"encoding/binary"
	"testing"
	"time"

	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
)

// fakeLoop runs posted work only when the test drains it.
type fakeLoop struct {
	queue  []func()
	timers map[uint]func() bool
	next   uint
	done   chan struct{}
}

func newFakeLoop() *fakeLoop {
	return &fakeLoop{timers: map[uint]func() bool{}, done: make(chan struct{})}
}

func (l *fakeLoop) Post(f func()) { l.queue = append(l.queue, f) }

func (l *fakeLoop) AddTimeout(d time.Duration, f func() bool) uint {
	l.next++
	l.timers[l.next] = f
	return l.next
}

func (l *fakeLoop) RemoveTimeout(id uint) bool {
	_, ok := l.timers[id]
	delete(l.timers, id)
	return ok
}

func (l *fakeLoop) Done() <-chan struct{} { return l.done }

func (l *fakeLoop) run() {
	for len(l.queue) != 0 {
		f := l.queue[0]
		l.queue = l.queue[1:]
		f()
	}
}

func (l *fakeLoop) fire(id uint) {
	f, ok := l.timers[id]
	if !ok {
		return
	}
	if !f() {
		delete(l.timers, id)
	}
	l.run()
}

// fakeConn is a bonding link driven by the test.
type fakeConn struct {
	cond    Cond
	f       func(Cond)
	handle  uint16
	sockErr error
	closed  bool
}

func (c *fakeConn) Watch(cond Cond, f func(Cond)) func() {
	c.cond, c.f = cond, f
	return func() { c.f = nil }
}

func (c *fakeConn) SockError() error        { return c.sockErr }
func (c *fakeConn) Handle() (uint16, error) { return c.handle, nil }
func (c *fakeConn) Close() error            { c.closed = true; return nil }

func (c *fakeConn) signal(cond Cond) {
	if f := c.f; f != nil {
		c.f = nil
		f(cond)
	}
}

// fakeController records commands and answers them from canned replies.
type fakeController struct {
	sent    []hci.Command
	errs    map[int]error
	replies map[int]func(hci.CommandRP)
	handler hci.EventHandler

	info    DevInfo
	conns   []ConnInfo
	conn    *fakeConn
	dialErr error
	ups     int
	downs   int
}

func newFakeController(addr bluez.Addr) *fakeController {
	return &fakeController{
		errs:    map[int]error{},
		replies: map[int]func(hci.CommandRP){},
		info:    DevInfo{Addr: addr, Up: true},
	}
}

func (c *fakeController) Send(cmd hci.Command, rp hci.CommandRP) error {
	c.sent = append(c.sent, cmd)
	if err := c.errs[cmd.OpCode()]; err != nil {
		return err
	}
	if f := c.replies[cmd.OpCode()]; f != nil && rp != nil {
		f(rp)
	}
	return nil
}

func (c *fakeController) SetEventHandler(f hci.EventHandler) { c.handler = f }
func (c *fakeController) DevUp() error                       { c.ups++; return nil }
func (c *fakeController) DevDown() error                     { c.downs++; return nil }
func (c *fakeController) DevInfo() (DevInfo, error)          { return c.info, nil }
func (c *fakeController) Connections() ([]ConnInfo, error)   { return c.conns, nil }

func (c *fakeController) DialRaw(local, remote bluez.Addr) (RawConn, error) {
	if c.dialErr != nil {
		return nil, c.dialErr
	}
	c.conn = &fakeConn{handle: 0x002a}
	return c.conn, nil
}

// count returns how many commands with the opcode of cmd were sent.
func (c *fakeController) count(cmd hci.Command) int {
	n := 0
	for _, s := range c.sent {
		if s.OpCode() == cmd.OpCode() {
			n++
		}
	}
	return n
}

// last returns the last command sent with the opcode of cmd.
func (c *fakeController) last(cmd hci.Command) hci.Command {
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].OpCode() == cmd.OpCode() {
			return c.sent[i]
		}
	}
	return nil
}

func (c *fakeController) reset() { c.sent = nil }

type signal struct {
	path   ObjectPath
	member string
	args   []interface{}
}

type nameWatch struct {
	name string
	f    func()
}

// fakeBus records signals and lets the test drop peers off the bus.
type fakeBus struct {
	signals    []signal
	watches    map[uint]nameWatch
	next       uint
	agents     []*fakeAgent
	exported   map[ObjectPath]bool
	unexported []ObjectPath
}

func newFakeBus() *fakeBus {
	return &fakeBus{watches: map[uint]nameWatch{}, exported: map[ObjectPath]bool{}}
}

func (b *fakeBus) Emit(path ObjectPath, member string, args ...interface{}) {
	b.signals = append(b.signals, signal{path, member, args})
}

func (b *fakeBus) WatchName(name string, f func()) uint {
	b.next++
	b.watches[b.next] = nameWatch{name, f}
	return b.next
}

func (b *fakeBus) UnwatchName(id uint) { delete(b.watches, id) }

func (b *fakeBus) NewAgent(name string, path ObjectPath, ioc bluez.IOCapability) Agent {
	ag := &fakeAgent{name: name, path: path, ioc: ioc}
	b.agents = append(b.agents, ag)
	return ag
}

func (b *fakeBus) ExportDevice(a *Adapter, d *Device) error {
	b.exported[d.Path] = true
	return nil
}

func (b *fakeBus) UnexportDevice(d *Device) {
	delete(b.exported, d.Path)
	b.unexported = append(b.unexported, d.Path)
}

// drop simulates name leaving the bus.
func (b *fakeBus) drop(name string) {
	for id, w := range b.watches {
		if w.name == name {
			delete(b.watches, id)
			w.f()
		}
	}
}

func (b *fakeBus) count(member string) int {
	n := 0
	for _, s := range b.signals {
		if s.member == member {
			n++
		}
	}
	return n
}

// property returns the value of the last PropertyChanged for name.
func (b *fakeBus) property(name string) (interface{}, bool) {
	for i := len(b.signals) - 1; i >= 0; i-- {
		s := b.signals[i]
		if s.member == "PropertyChanged" && s.args[0] == name {
			return s.args[1].(Variant).Value, true
		}
	}
	return nil, false
}

func (b *fakeBus) reset() { b.signals = nil }

// fakeAgent keeps the callbacks of requests so the test can answer them.
type fakeAgent struct {
	name string
	path ObjectPath
	ioc  bluez.IOCapability

	confirm  func(*bluez.Error)
	pin      func(string, *bluez.Error)
	passkey  func(uint32, *bluez.Error)
	confirms func(*bluez.Error)
	shown    []uint32
	cancels  int
	released bool
}

func (a *fakeAgent) Name() string                   { return a.name }
func (a *fakeAgent) Path() ObjectPath               { return a.path }
func (a *fakeAgent) Capability() bluez.IOCapability { return a.ioc }

func (a *fakeAgent) ConfirmModeChange(mode string, cb func(*bluez.Error)) { a.confirm = cb }

func (a *fakeAgent) RequestPinCode(dev ObjectPath, cb func(string, *bluez.Error)) { a.pin = cb }

func (a *fakeAgent) RequestPasskey(dev ObjectPath, cb func(uint32, *bluez.Error)) { a.passkey = cb }

func (a *fakeAgent) RequestConfirmation(dev ObjectPath, passkey uint32, cb func(*bluez.Error)) {
	a.confirms = cb
}

func (a *fakeAgent) DisplayPasskey(dev ObjectPath, passkey uint32) {
	a.shown = append(a.shown, passkey)
}

// Cancel drops the request in flight; its answer never arrives.
func (a *fakeAgent) Cancel() {
	a.cancels++
	a.confirm = nil
	a.pin = nil
	a.passkey = nil
	a.confirms = nil
}

func (a *fakeAgent) Release() {
	a.Cancel()
	a.released = true
}

// fakeRecords is an in-memory service record store.
type fakeRecords struct {
	next   uint32
	owners map[uint32]string
}

func (r *fakeRecords) Add(owner string, local bluez.Addr, xml string) (uint32, error) {
	if r.owners == nil {
		r.owners = map[uint32]string{}
	}
	r.next++
	r.owners[r.next] = owner
	return r.next, nil
}

func (r *fakeRecords) Update(owner string, handle uint32, xml string) error {
	if r.owners[handle] != owner {
		return bluez.ErrNotAvailable("Not available")
	}
	return nil
}

func (r *fakeRecords) Remove(owner string, handle uint32) error {
	if r.owners[handle] != owner {
		return bluez.ErrNotAvailable("Not available")
	}
	delete(r.owners, handle)
	return nil
}

func (r *fakeRecords) RemoveOwner(owner string) {
	for h, o := range r.owners {
		if o == owner {
			delete(r.owners, h)
		}
	}
}

var errNotSupported = hci.ErrCommand(0x11)

var (
	localAddr  = bluez.MustParseAddr("00:0A:95:9D:68:16")
	remoteAddr = bluez.MustParseAddr("00:11:22:33:44:55")
)

type testAdapter struct {
	*Adapter
	loop *fakeLoop
	ctl  *fakeController
	bus  *fakeBus
	recs *fakeRecords
}

func newTestAdapter(t *testing.T, opts ...bluez.Option) *testAdapter {
	t.Helper()
	opts = append([]bluez.Option{
		bluez.OptStorageDir(t.TempDir()),
		bluez.OptDiscoverableTimeout(0),
	}, opts...)
	cfg, err := bluez.NewConfig(opts...)
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	ta := &testAdapter{
		loop: newFakeLoop(),
		ctl:  newFakeController(localAddr),
		bus:  newFakeBus(),
		recs: &fakeRecords{},
	}
	ta.Adapter = New(0, cfg, ta.loop, ta.ctl, ta.bus, ta.recs)
	return ta
}

func startTestAdapter(t *testing.T, opts ...bluez.Option) *testAdapter {
	t.Helper()
	ta := newTestAdapter(t, opts...)
	if err := ta.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ta.loop.run()
	ta.ctl.reset()
	ta.bus.reset()
	return ta
}

// call runs f as a method call from sender and drains the loop.
func (ta *testAdapter) call(sender string, f func(*Call)) *Call {
	c := NewCall(sender)
	f(c)
	ta.loop.run()
	return c
}

// event feeds a controller event through the installed handler.
func (ta *testAdapter) event(code int, params []byte) {
	ta.ctl.handler(code, params)
	ta.loop.run()
}

func (ta *testAdapter) registerAgent(t *testing.T, sender string) *fakeAgent {
	t.Helper()
	c := ta.call(sender, func(c *Call) { ta.RegisterAgent(c, "/agent", "DisplayYesNo") })
	expectOK(t, c)
	return ta.bus.agents[len(ta.bus.agents)-1]
}

func expectOK(t *testing.T, c *Call) []interface{} {
	t.Helper()
	if !c.Replied() {
		t.Fatalf("call not answered")
	}
	vals, err := c.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return vals
}

func expectError(t *testing.T, c *Call, name string) {
	t.Helper()
	if !c.Replied() {
		t.Fatalf("call not answered")
	}
	_, err := c.Result()
	if err == nil {
		t.Fatalf("expected %s, got success", name)
	}
	if err.Name != bluez.ErrorInterface+"."+name {
		t.Fatalf("expected %s, got %s", name, err.Name)
	}
}

func wire(a bluez.Addr) []byte {
	b := a.Wire()
	return b[:]
}

func addrEvent(a bluez.Addr, extra ...byte) []byte {
	return append(wire(a), extra...)
}

func inquiryResultRSSI(a bluez.Addr, class uint32, rssi int8) []byte {
	b := make([]byte, 15)
	b[0] = 1
	copy(b[1:], wire(a))
	b[1+6] = 0x01
	b[1+8] = byte(class)
	b[1+9] = byte(class >> 8)
	b[1+10] = byte(class >> 16)
	b[1+13] = byte(rssi)
	return b
}

func remoteNameComplete(status uint8, a bluez.Addr, name string) []byte {
	b := append([]byte{status}, wire(a)...)
	n := make([]byte, 248)
	copy(n, name)
	return append(b, n...)
}

func connectionComplete(status uint8, handle uint16, a bluez.Addr) []byte {
	b := []byte{status, 0, 0}
	binary.LittleEndian.PutUint16(b[1:], handle)
	b = append(b, wire(a)...)
	return append(b, 0x01, 0x00)
}

func handleStatus(status uint8, handle uint16, extra ...byte) []byte {
	b := []byte{status, 0, 0}
	binary.LittleEndian.PutUint16(b[1:], handle)
	return append(b, extra...)
}
