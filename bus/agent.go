package bus

import (
	"context"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/adapter"
)

// agentTimeout bounds every question put to an agent.
const agentTimeout = 60 * time.Second

type agentRequest struct {
	method   string
	cancel   context.CancelFunc
	canceled bool
}

// agent is the proxy of a client side org.bluez.Agent object. It has
// at most one question in flight.
type agent struct {
	obj  dbus.BusObject
	name string
	path adapter.ObjectPath
	ioc  bluez.IOCapability

	mu      sync.Mutex
	pending *agentRequest
	logger  bluez.Logger
}

func newAgent(obj dbus.BusObject, name string, path adapter.ObjectPath, ioc bluez.IOCapability) *agent {
	return &agent{
		obj:    obj,
		name:   name,
		path:   path,
		ioc:    ioc,
		logger: bluez.GetLogger().ChildLogger(map[string]interface{}{"agent": name + string(path)}),
	}
}

func (a *agent) Name() string                   { return a.name }
func (a *agent) Path() adapter.ObjectPath       { return a.path }
func (a *agent) Capability() bluez.IOCapability { return a.ioc }

// request calls method and hands the reply to done unless the request
// was cancelled meanwhile.
func (a *agent) request(method string, done func(*dbus.Call), args ...interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), agentTimeout)
	req := &agentRequest{method: method, cancel: cancel}

	a.mu.Lock()
	if a.pending != nil {
		a.logger.Debugf("%s replaces pending %s", method, a.pending.method)
	}
	a.pending = req
	a.mu.Unlock()

	ch := make(chan *dbus.Call, 1)
	a.obj.GoWithContext(ctx, AgentInterface+"."+method, 0, ch, args...)
	go func() {
		call := <-ch
		cancel()

		a.mu.Lock()
		dropped := req.canceled
		if a.pending == req {
			a.pending = nil
		}
		a.mu.Unlock()

		if dropped {
			return
		}
		if call.Err != nil {
			a.logger.Debugf("%s: %v", method, call.Err)
		}
		done(call)
	}()
}

func (a *agent) notify(method string, args ...interface{}) {
	if call := a.obj.Call(AgentInterface+"."+method, dbus.FlagNoReplyExpected, args...); call.Err != nil {
		a.logger.Warnf("%s: %v", method, call.Err)
	}
}

func (a *agent) ConfirmModeChange(mode string, cb func(*bluez.Error)) {
	a.request("ConfirmModeChange", func(call *dbus.Call) {
		cb(agentError(call.Err))
	}, mode)
}

func (a *agent) RequestPinCode(dev adapter.ObjectPath, cb func(string, *bluez.Error)) {
	a.request("RequestPinCode", func(call *dbus.Call) {
		var pin string
		if err := call.Store(&pin); err != nil {
			cb("", agentError(err))
			return
		}
		cb(pin, nil)
	}, dbus.ObjectPath(dev))
}

func (a *agent) RequestPasskey(dev adapter.ObjectPath, cb func(uint32, *bluez.Error)) {
	a.request("RequestPasskey", func(call *dbus.Call) {
		var passkey uint32
		if err := call.Store(&passkey); err != nil {
			cb(0, agentError(err))
			return
		}
		cb(passkey, nil)
	}, dbus.ObjectPath(dev))
}

func (a *agent) RequestConfirmation(dev adapter.ObjectPath, passkey uint32, cb func(*bluez.Error)) {
	a.request("RequestConfirmation", func(call *dbus.Call) {
		cb(agentError(call.Err))
	}, dbus.ObjectPath(dev), passkey)
}

func (a *agent) DisplayPasskey(dev adapter.ObjectPath, passkey uint32) {
	a.notify("DisplayPasskey", dbus.ObjectPath(dev), passkey)
}

// Cancel drops the question in flight; its answer is never delivered.
func (a *agent) Cancel() {
	a.mu.Lock()
	req := a.pending
	a.pending = nil
	if req != nil {
		req.canceled = true
		req.cancel()
	}
	a.mu.Unlock()

	if req != nil {
		a.notify("Cancel")
	}
}

func (a *agent) Release() {
	a.Cancel()
	a.notify("Release")
}
