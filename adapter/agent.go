package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
)

// Agent is a client side authority for mode changes and pairing.
// Callbacks may run on any goroutine; the adapter reposts them.
type Agent interface {
	Name() string
	Path() ObjectPath
	Capability() bluez.IOCapability

	ConfirmModeChange(mode string, cb func(*bluez.Error))
	RequestPinCode(dev ObjectPath, cb func(string, *bluez.Error))
	RequestPasskey(dev ObjectPath, cb func(uint32, *bluez.Error))
	RequestConfirmation(dev ObjectPath, passkey uint32, cb func(*bluez.Error))
	DisplayPasskey(dev ObjectPath, passkey uint32)

	// Cancel aborts the request in flight, if any.
	Cancel()
	// Release tells the agent it is no longer used.
	Release()
}

func agentMatches(ag Agent, name string, path ObjectPath) bool {
	return ag != nil && ag.Name() == name && ag.Path() == path
}

// RegisterAgent makes the caller's object the default agent.
func (a *Adapter) RegisterAgent(c *Call, path ObjectPath, capability string) {
	if a.agent != nil {
		c.Fail(bluez.ErrAlreadyExists("Agent already exists"))
		return
	}

	ioc := bluez.ParseIOCapability(capability)
	if ioc == bluez.InvalidIOCapability {
		c.Fail(bluez.ErrInvalidArguments("Invalid capability"))
		return
	}

	ag := a.bus.NewAgent(c.Sender, path, ioc)
	a.agent = ag
	a.agentWatch = a.watchName(c.Sender, func() {
		a.logger.Infof("agent %s%s exited", ag.Name(), ag.Path())
		a.agentWatch = 0
		a.agentRemoved(ag)
	})
	c.Return()
}

// UnregisterAgent drops the default agent if the caller owns it.
func (a *Adapter) UnregisterAgent(c *Call, path ObjectPath) {
	if !agentMatches(a.agent, c.Sender, path) {
		c.Fail(bluez.ErrDoesNotExist("No such agent"))
		return
	}

	ag := a.agent
	a.unwatch(a.agentWatch)
	a.agentWatch = 0
	a.agentRemoved(ag)
	ag.Release()
	c.Return()
}

func (a *Adapter) agentRemoved(ag Agent) {
	if a.agent == ag {
		a.agent = nil
	}
	a.failConfirms(ag)
	for _, auth := range a.auths {
		if auth.agent == ag {
			auth.agent = nil
		}
	}
}
