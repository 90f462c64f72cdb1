package bus

import (
	"context"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	bluez "github.com/thentenaar/bluez-dinovo"
)

// fakeObject answers agent calls from the test.
type fakeObject struct {
	dbus.BusObject
	calls    chan *dbus.Call
	notified []string
}

func newFakeObject() *fakeObject {
	return &fakeObject{calls: make(chan *dbus.Call, 4)}
}

func (o *fakeObject) GoWithContext(ctx context.Context, method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call {
	c := &dbus.Call{Method: method, Args: args, Done: ch}
	o.calls <- c
	return c
}

func (o *fakeObject) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	o.notified = append(o.notified, method)
	return &dbus.Call{Method: method}
}

func (o *fakeObject) next(t *testing.T) *dbus.Call {
	t.Helper()
	select {
	case c := <-o.calls:
		return c
	case <-time.After(time.Second):
		t.Fatalf("no call made")
		return nil
	}
}

func TestAgentRequestPinCode(t *testing.T) {
	obj := newFakeObject()
	ag := newAgent(obj, ":1.5", "/agent", bluez.DisplayYesNo)

	got := make(chan string, 1)
	ag.RequestPinCode("/org/bluez/hci0/dev_00_11_22_33_44_55", func(pin string, err *bluez.Error) {
		if err != nil {
			t.Errorf("unexpected error %v", err)
		}
		got <- pin
	})

	c := obj.next(t)
	if c.Method != AgentInterface+".RequestPinCode" || c.Args[0] != dbus.ObjectPath("/org/bluez/hci0/dev_00_11_22_33_44_55") {
		t.Fatalf("unexpected call %s %v", c.Method, c.Args)
	}
	c.Body = []interface{}{"0000"}
	c.Done <- c

	select {
	case pin := <-got:
		if pin != "0000" {
			t.Fatalf("expected 0000, got %q", pin)
		}
	case <-time.After(time.Second):
		t.Fatalf("callback not called")
	}
}

func TestAgentRejects(t *testing.T) {
	obj := newFakeObject()
	ag := newAgent(obj, ":1.5", "/agent", bluez.DisplayYesNo)

	got := make(chan *bluez.Error, 1)
	ag.ConfirmModeChange("off", func(err *bluez.Error) { got <- err })

	c := obj.next(t)
	if c.Args[0] != "off" {
		t.Fatalf("unexpected args %v", c.Args)
	}
	c.Err = dbus.Error{Name: "org.bluez.Error.Rejected", Body: []interface{}{"Mode change rejected"}}
	c.Done <- c

	select {
	case err := <-got:
		if err == nil || err.Name != "org.bluez.Error.Rejected" {
			t.Fatalf("unexpected %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("callback not called")
	}
}

func TestAgentCancel(t *testing.T) {
	obj := newFakeObject()
	ag := newAgent(obj, ":1.5", "/agent", bluez.DisplayYesNo)

	called := make(chan struct{}, 1)
	ag.RequestPasskey("/dev", func(uint32, *bluez.Error) { called <- struct{}{} })
	c := obj.next(t)

	ag.Cancel()
	if len(obj.notified) != 1 || obj.notified[0] != AgentInterface+".Cancel" {
		t.Fatalf("Cancel not sent: %v", obj.notified)
	}

	c.Body = []interface{}{uint32(1234)}
	c.Done <- c
	select {
	case <-called:
		t.Fatalf("cancelled request answered")
	case <-time.After(50 * time.Millisecond):
	}

	// nothing in flight: only Release goes out
	ag.Release()
	if len(obj.notified) != 2 || obj.notified[1] != AgentInterface+".Release" {
		t.Fatalf("unexpected notifications %v", obj.notified)
	}
}

func TestAgentDisplayPasskey(t *testing.T) {
	obj := newFakeObject()
	ag := newAgent(obj, ":1.5", "/agent", bluez.DisplayOnly)
	ag.DisplayPasskey("/dev", 123456)
	if len(obj.notified) != 1 || obj.notified[0] != AgentInterface+".DisplayPasskey" {
		t.Fatalf("unexpected notifications %v", obj.notified)
	}
	if ag.Capability() != bluez.DisplayOnly || ag.Name() != ":1.5" || ag.Path() != "/agent" {
		t.Fatalf("unexpected identity")
	}
}
