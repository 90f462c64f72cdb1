package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci/cmd"
)

// Inquiry parameters.
const (
	inquiryLength    = 0x08 // 10.24 s
	periodMaxLength  = 24
	periodMinLength  = 16
	unlimitedResults = 0x00
)

// DiscoverDevices starts a general inquiry owned by the caller.
func (a *Adapter) DiscoverDevices(c *Call) {
	if !a.up {
		c.Fail(bluez.ErrNotReady())
		return
	}
	if a.discovActive || a.pdiscovActive {
		c.Fail(bluez.ErrInProgress("Discover in progress"))
		return
	}

	a.cancelNameRequest()

	if a.bonding != nil {
		c.Fail(bluez.ErrInProgress("Bonding in progress"))
		return
	}

	inq := &cmd.Inquiry{
		LAP:           cmd.LAP(cmd.GIAC),
		InquiryLength: inquiryLength,
		NumResponses:  unlimitedResults,
	}
	if err := a.ctl.Send(inq, nil); err != nil {
		a.logger.Errorf("can't start inquiry: %v", err)
		c.Fail(commandError(err))
		return
	}

	a.discovType |= discoverStdInquiry | discoverResolveName
	a.discovRequestor = c.Sender
	a.discovWatch = a.watchName(c.Sender, func() {
		a.discovWatch = 0
		a.logger.Debugf("discovery requestor %s exited", c.Sender)
		a.abortDiscovery()
	})
	a.discovActive = true
	a.emit("DiscoveryStarted")
	c.Return()
}

// CancelDiscovery stops the caller's inquiry. The reply follows
// DiscoveryCompleted.
func (a *Adapter) CancelDiscovery(c *Call) {
	if !a.up {
		c.Fail(bluez.ErrNotReady())
		return
	}
	if !a.discovActive || a.discovCancel != nil || a.discovRequestor != c.Sender {
		c.Fail(bluez.ErrNotAuthorized())
		return
	}

	if err := a.sendDiscoveryCancel(); err != nil {
		c.Fail(commandError(err))
		return
	}

	a.discovCancel = c
	a.discoveryComplete()
}

// abortDiscovery is the requestor exit path: same teardown as an
// explicit cancel, without a caller to answer.
func (a *Adapter) abortDiscovery() {
	if !a.discovActive {
		a.clearDiscovRequestor()
		return
	}
	if err := a.sendDiscoveryCancel(); err != nil {
		a.logger.Warnf("can't cancel discovery: %v", err)
	}
	a.discoveryComplete()
}

// sendDiscoveryCancel stops whichever stage the inquiry is in.
func (a *Adapter) sendDiscoveryCancel() error {
	if d := a.requestedName(); d != nil {
		return a.ctl.Send(&cmd.RemoteNameRequestCancel{BDADDR: d.addr.Wire()}, nil)
	}
	return a.ctl.Send(&cmd.InquiryCancel{}, nil)
}

// inquiryComplete handles the end of an inquiry round.
func (a *Adapter) inquiryComplete() {
	if a.pdiscovActive && !a.discovActive {
		a.reportOutOfRange()
	}

	if a.pdiscovActive && a.pdiscovResolveNames {
		a.discovType |= discoverResolveName
	}

	if a.discovType&discoverResolveName != 0 && a.requestNextName() {
		// completion follows the last name
		return
	}
	a.roundComplete()
}

// roundComplete runs once an inquiry round and its name lookups are over.
func (a *Adapter) roundComplete() {
	if a.pdiscovActive && !a.discovActive {
		a.clearFound()
		return
	}
	a.discoveryComplete()
}

// discoveryComplete ends a standard discovery: signal, then the deferred
// cancel reply, then requestor cleanup.
func (a *Adapter) discoveryComplete() {
	if a.discovActive {
		a.emit("DiscoveryCompleted")
		a.discovActive = false
	}
	a.clearFound()

	if a.discovRequestor != "" {
		a.clearDiscovRequestor()
		if a.discovCancel != nil {
			a.discovCancel.Return()
			a.discovCancel = nil
		}
		a.discovType &^= discoverStdInquiry
		if a.pdiscovRequestor == "" {
			a.discovType &^= discoverResolveName
		}
	}
}

func (a *Adapter) clearDiscovRequestor() {
	a.unwatch(a.discovWatch)
	a.discovWatch = 0
	a.discovRequestor = ""
}

func (a *Adapter) clearPdiscovRequestor() {
	a.unwatch(a.pdiscovWatch)
	a.pdiscovWatch = 0
	a.pdiscovRequestor = ""
}

// StartPeriodicDiscovery starts periodic inquiry owned by the caller.
func (a *Adapter) StartPeriodicDiscovery(c *Call) {
	if !a.up {
		c.Fail(bluez.ErrNotReady())
		return
	}
	if a.discovActive || a.pdiscovActive {
		c.Fail(bluez.ErrInProgress("Discover in progress"))
		return
	}

	a.cancelNameRequest()

	if a.bonding != nil {
		c.Fail(bluez.ErrInProgress("Bonding in progress"))
		return
	}

	pinq := &cmd.PeriodicInquiryMode{
		MaxPeriodLength: periodMaxLength,
		MinPeriodLength: periodMinLength,
		LAP:             cmd.LAP(cmd.GIAC),
		InquiryLength:   inquiryLength,
		NumResponses:    unlimitedResults,
	}
	if err := a.ctl.Send(pinq, &cmd.PeriodicInquiryModeRP{}); err != nil {
		a.logger.Errorf("can't start periodic inquiry: %v", err)
		c.Fail(commandError(err))
		return
	}

	a.pdiscovRequestor = c.Sender
	a.discovType = discoverPeriodicInquiry
	if a.pdiscovResolveNames {
		a.discovType |= discoverResolveName
	}
	a.pdiscovWatch = a.watchName(c.Sender, func() {
		a.pdiscovWatch = 0
		a.logger.Debugf("periodic discovery requestor %s exited", c.Sender)
		if err := a.sendPeriodicCancel(); err != nil {
			a.logger.Warnf("can't stop periodic inquiry: %v", err)
		}
		a.periodicExit()
	})
	a.pdiscovActive = true
	a.propertyChanged("PeriodicDiscovery", true)
	c.Return()
}

// StopPeriodicDiscovery stops the caller's periodic inquiry.
func (a *Adapter) StopPeriodicDiscovery(c *Call) {
	if !a.up {
		c.Fail(bluez.ErrNotReady())
		return
	}
	if !a.pdiscovActive || a.pdiscovRequestor != c.Sender {
		c.Fail(bluez.ErrNotAuthorized())
		return
	}

	if err := a.sendPeriodicCancel(); err != nil {
		c.Fail(commandError(err))
		return
	}
	a.periodicExit()
	c.Return()
}

func (a *Adapter) sendPeriodicCancel() error {
	if d := a.requestedName(); d != nil {
		if err := a.ctl.Send(&cmd.RemoteNameRequestCancel{BDADDR: d.addr.Wire()}, nil); err != nil {
			return err
		}
	}
	return a.ctl.Send(&cmd.ExitPeriodicInquiryMode{}, nil)
}

// periodicExit tears down periodic discovery state.
func (a *Adapter) periodicExit() {
	a.clearFound()
	a.oor = nil
	a.clearPdiscovRequestor()

	if a.discovActive {
		a.emit("DiscoveryCompleted")
		a.discovActive = false
	}
	a.discovType &^= discoverPeriodicInquiry | discoverResolveName
	if a.pdiscovActive {
		a.pdiscovActive = false
		a.propertyChanged("PeriodicDiscovery", false)
	}
}

// setPeriodicProperty handles SetProperty("PeriodicDiscovery").
func (a *Adapter) setPeriodicProperty(c *Call, on bool) {
	if on {
		a.StartPeriodicDiscovery(c)
	} else {
		a.StopPeriodicDiscovery(c)
	}
}
