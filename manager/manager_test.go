package manager

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/adapter"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
)

type fakeLoop struct {
	queue []func()
	done  chan struct{}
}

func (l *fakeLoop) Post(f func())                                  { l.queue = append(l.queue, f) }
func (l *fakeLoop) AddTimeout(d time.Duration, f func() bool) uint { return 1 }
func (l *fakeLoop) RemoveTimeout(id uint) bool                     { return true }
func (l *fakeLoop) Done() <-chan struct{}                          { return l.done }

type fakeController struct {
	info   adapter.DevInfo
	closed bool
}

func (c *fakeController) Send(hci.Command, hci.CommandRP) error    { return nil }
func (c *fakeController) SetEventHandler(hci.EventHandler)         {}
func (c *fakeController) DevUp() error                             { return nil }
func (c *fakeController) DevDown() error                           { return nil }
func (c *fakeController) DevInfo() (adapter.DevInfo, error)        { return c.info, nil }
func (c *fakeController) Connections() ([]adapter.ConnInfo, error) { return nil, nil }
func (c *fakeController) Close() error                             { c.closed = true; return nil }

func (c *fakeController) DialRaw(local, remote bluez.Addr) (adapter.RawConn, error) {
	return nil, errors.New("not supported")
}

type managerSignal struct {
	member string
	path   adapter.ObjectPath
}

type fakeBus struct {
	signals  []managerSignal
	exported map[adapter.ObjectPath]bool
}

func (b *fakeBus) Emit(adapter.ObjectPath, string, ...interface{}) {}
func (b *fakeBus) WatchName(string, func()) uint                   { return 1 }
func (b *fakeBus) UnwatchName(uint)                                {}
func (b *fakeBus) NewAgent(string, adapter.ObjectPath, bluez.IOCapability) adapter.Agent {
	return nil
}
func (b *fakeBus) ExportDevice(*adapter.Adapter, *adapter.Device) error { return nil }
func (b *fakeBus) UnexportDevice(*adapter.Device)                       {}

func (b *fakeBus) ExportAdapter(a *adapter.Adapter) error {
	b.exported[a.Path()] = true
	return nil
}

func (b *fakeBus) UnexportAdapter(a *adapter.Adapter) { delete(b.exported, a.Path()) }

func (b *fakeBus) EmitManager(member string, args ...interface{}) {
	b.signals = append(b.signals, managerSignal{member, args[0].(adapter.ObjectPath)})
}

type testManager struct {
	*Manager
	bus  *fakeBus
	ctls map[int]*fakeController
}

func newTestManager(t *testing.T) *testManager {
	cfg, err := bluez.NewConfig(bluez.OptStorageDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	tm := &testManager{
		bus:  &fakeBus{exported: map[adapter.ObjectPath]bool{}},
		ctls: map[int]*fakeController{},
	}
	open := func(id int) (adapter.Controller, error) {
		c, ok := tm.ctls[id]
		if !ok {
			return nil, errors.Errorf("no hci%d", id)
		}
		return c, nil
	}
	tm.Manager = New(cfg, &fakeLoop{done: make(chan struct{})}, tm.bus, nil, open)
	return tm
}

func (tm *testManager) add(id int, addr string) *fakeController {
	c := &fakeController{info: adapter.DevInfo{Addr: bluez.MustParseAddr(addr), Up: true}}
	tm.ctls[id] = c
	return c
}

func result(t *testing.T, f func(*adapter.Call)) (interface{}, *bluez.Error) {
	t.Helper()
	c := adapter.NewCall(":1.1")
	f(c)
	if !c.Replied() {
		t.Fatalf("call not answered")
	}
	vals, err := c.Result()
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

func TestRegister(t *testing.T) {
	tm := newTestManager(t)
	tm.add(0, "00:0A:95:9D:68:16")
	tm.add(1, "00:0A:95:9D:68:17")

	if _, err := result(t, tm.DefaultAdapter); err == nil || err.Name != "org.bluez.Error.NoSuchAdapter" {
		t.Fatalf("expected NoSuchAdapter, got %v", err)
	}

	tm.HandleEvent(Event{Type: Registered, ID: 0})
	tm.HandleEvent(Event{Type: Registered, ID: 1})
	tm.HandleEvent(Event{Type: Registered, ID: 1})

	want := []managerSignal{
		{"AdapterAdded", "/org/bluez/hci0"},
		{"DefaultAdapterChanged", "/org/bluez/hci0"},
		{"AdapterAdded", "/org/bluez/hci1"},
	}
	if len(tm.bus.signals) != len(want) {
		t.Fatalf("unexpected signals %v", tm.bus.signals)
	}
	for i := range want {
		if tm.bus.signals[i] != want[i] {
			t.Fatalf("signal %d: expected %v, got %v", i, want[i], tm.bus.signals[i])
		}
	}
	if !tm.bus.exported["/org/bluez/hci1"] {
		t.Fatalf("adapter not exported")
	}

	v, _ := result(t, tm.ListAdapters)
	paths := v.([]adapter.ObjectPath)
	if len(paths) != 2 || paths[0] != "/org/bluez/hci0" || paths[1] != "/org/bluez/hci1" {
		t.Fatalf("unexpected adapters %v", paths)
	}
	if v, _ := result(t, tm.DefaultAdapter); v != adapter.ObjectPath("/org/bluez/hci0") {
		t.Fatalf("unexpected default %v", v)
	}
}

func TestRegisterFailure(t *testing.T) {
	tm := newTestManager(t)
	tm.HandleEvent(Event{Type: Registered, ID: 3})
	tm.HandleEvent(Event{Type: Up, ID: 3})
	if len(tm.bus.signals) != 0 {
		t.Fatalf("unexpected signals %v", tm.bus.signals)
	}
	if _, ok := tm.Adapter(3); ok {
		t.Fatalf("adapter without controller kept")
	}
}

func TestUpDown(t *testing.T) {
	tm := newTestManager(t)
	tm.add(0, "00:0A:95:9D:68:16")

	tm.HandleEvent(Event{Type: Up, ID: 0})
	a, ok := tm.Adapter(0)
	if !ok || !a.IsUp() {
		t.Fatalf("adapter not started")
	}
	if a.Mode() != bluez.ModeConnectable {
		t.Fatalf("expected connectable, got %s", a.Mode())
	}

	tm.HandleEvent(Event{Type: Down, ID: 0})
	if a.IsUp() {
		t.Fatalf("adapter not stopped")
	}
	if _, ok := tm.Adapter(0); !ok {
		t.Fatalf("adapter forgotten on down")
	}
}

func TestRawDevice(t *testing.T) {
	tm := newTestManager(t)
	c := tm.add(0, "00:0A:95:9D:68:16")
	c.info.Raw = true

	tm.HandleEvent(Event{Type: Up, ID: 0})
	a, ok := tm.Adapter(0)
	if !ok || a.IsUp() {
		t.Fatalf("raw device started")
	}
}

func TestFindAdapter(t *testing.T) {
	tm := newTestManager(t)
	tm.add(0, "00:0A:95:9D:68:16")
	tm.add(1, "00:0A:95:9D:68:17")
	tm.HandleEvent(Event{Type: Up, ID: 0})
	tm.HandleEvent(Event{Type: Registered, ID: 1})

	for _, tt := range []struct {
		pattern string
		want    adapter.ObjectPath
	}{
		{"any", "/org/bluez/hci0"},
		{"hci1", "/org/bluez/hci1"},
		{"00:0a:95:9d:68:16", "/org/bluez/hci0"},
		{"00:0A:95:9D:68:17", ""},
		{"hci7", ""},
	} {
		v, err := result(t, func(c *adapter.Call) { tm.FindAdapter(c, tt.pattern) })
		if tt.want == "" {
			if err == nil || err.Name != "org.bluez.Error.NoSuchAdapter" {
				t.Errorf("%s: expected NoSuchAdapter, got %v %v", tt.pattern, v, err)
			}
			continue
		}
		if err != nil || v != tt.want {
			t.Errorf("%s: expected %s, got %v %v", tt.pattern, tt.want, v, err)
		}
	}
}

func TestUnregister(t *testing.T) {
	tm := newTestManager(t)
	c0 := tm.add(0, "00:0A:95:9D:68:16")
	tm.add(1, "00:0A:95:9D:68:17")
	tm.HandleEvent(Event{Type: Up, ID: 0})
	tm.HandleEvent(Event{Type: Registered, ID: 1})
	tm.bus.signals = nil

	a, _ := tm.Adapter(0)
	tm.HandleEvent(Event{Type: Unregistered, ID: 0})
	if a.IsUp() || !c0.closed {
		t.Fatalf("adapter not torn down")
	}
	if tm.bus.exported["/org/bluez/hci0"] {
		t.Fatalf("adapter still exported")
	}
	if len(tm.bus.signals) != 2 ||
		tm.bus.signals[0] != (managerSignal{"AdapterRemoved", "/org/bluez/hci0"}) ||
		tm.bus.signals[1] != (managerSignal{"DefaultAdapterChanged", "/org/bluez/hci1"}) {
		t.Fatalf("unexpected signals %v", tm.bus.signals)
	}

	tm.Shutdown()
	if _, err := result(t, tm.DefaultAdapter); err == nil {
		t.Fatalf("default adapter left after shutdown")
	}
}
