package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
	"github.com/thentenaar/bluez-dinovo/linux/hci/cmd"
	"golang.org/x/sys/unix"
)

// bonding is the single pairing attempt in flight.
type bonding struct {
	addr       bluez.Addr
	call       *Call
	conn       RawConn
	stopWatch  func()
	watch      uint
	handle     uint16
	authActive bool
	hciStatus  uint8
}

// CreatePairedDevice connects to address and authenticates the link.
// The reply carries the device path once the link key is established.
func (a *Adapter) CreatePairedDevice(c *Call, address string, agentPath ObjectPath, capability string) {
	addr, err := bluez.ParseAddr(address)
	if err != nil {
		c.Fail(bluez.ErrInvalidArguments("Invalid address"))
		return
	}
	ioc := bluez.ParseIOCapability(capability)
	if ioc == bluez.InvalidIOCapability {
		c.Fail(bluez.ErrInvalidArguments("Invalid capability"))
		return
	}
	a.createBonding(c, addr, agentPath, ioc)
}

func (a *Adapter) createBonding(c *Call, addr bluez.Addr, agentPath ObjectPath, ioc bluez.IOCapability) {
	if !a.up {
		c.Fail(bluez.ErrNotReady())
		return
	}
	if a.discovActive || a.pdiscovActive {
		c.Fail(bluez.ErrInProgress("Discover in progress"))
		return
	}

	a.cancelNameRequest()

	if a.bonding != nil || a.findAuth(addr) != nil {
		c.Fail(bluez.ErrInProgress("Bonding in progress"))
		return
	}
	if a.store != nil && a.store.HasLinkKey(addr) {
		c.Fail(bluez.ErrAlreadyExists("Bonding already exists"))
		return
	}

	conn, err := a.ctl.DialRaw(a.addr, addr)
	if err != nil {
		a.logger.Errorf("can't connect to %s: %v", addr, err)
		c.Fail(bluez.ErrConnectionAttemptFailed("Connection attempt failed"))
		return
	}

	d := a.getDevice(addr)
	if agentPath != "" {
		a.destroyDeviceAgent(d)
		d.agent = a.bus.NewAgent(c.Sender, agentPath, ioc)
	}

	b := &bonding{addr: addr, call: c, conn: conn}
	a.bonding = b
	b.watch = a.watchName(c.Sender, func() {
		b.watch = 0
		a.logger.Debugf("bonding requestor %s exited", c.Sender)
		a.bondingRequestorExit(b)
	})
	b.stopWatch = conn.Watch(CondOut|CondErr|CondHup|CondNval, a.connWatcher(b))
}

// connWatcher reposts readiness of b's link onto the loop.
func (a *Adapter) connWatcher(b *bonding) func(Cond) {
	return func(cond Cond) {
		a.loop.Post(func() {
			if a.bonding != b {
				return
			}
			a.bondingConnEvent(b, cond)
		})
	}
}

func (a *Adapter) bondingConnEvent(b *bonding, cond Cond) {
	b.stopWatch = nil

	if cond&CondNval != 0 {
		b.call.Fail(authenticationError(uint8(hci.ErrConnLimit)))
		a.clearBonding()
		return
	}

	if cond&(CondHup|CondErr) != 0 {
		a.logger.Debugf("hangup or error on bonding link to %s", b.addr)
		if !b.authActive {
			b.call.Fail(bluez.ErrConnectionAttemptFailed(unix.ENETDOWN.Error()))
		} else {
			b.call.Fail(a.authenticationFailure(b))
		}
		a.failBonding()
		return
	}

	if err := b.conn.SockError(); err != nil {
		if b.authActive {
			b.call.Fail(a.authenticationFailure(b))
		} else {
			b.call.Fail(bluez.ErrConnectionAttemptFailed(hci.Strerror(err)))
		}
		a.failBonding()
		return
	}

	handle, err := b.conn.Handle()
	if err != nil {
		a.logger.Errorf("can't get handle of link to %s: %v", b.addr, err)
		b.call.Fail(bluez.ErrFailed(hci.Strerror(err)))
		a.failBonding()
		return
	}
	b.handle = handle

	if err := a.ctl.Send(&cmd.AuthenticationRequested{ConnectionHandle: handle}, nil); err != nil {
		a.logger.Errorf("authentication requested for %s: %v", b.addr, err)
		b.call.Fail(commandError(err))
		a.failBonding()
		return
	}

	b.authActive = true
	b.stopWatch = b.conn.Watch(CondErr|CondHup|CondNval, a.connWatcher(b))
}

func (a *Adapter) authenticationFailure(b *bonding) *bluez.Error {
	st := b.hciStatus
	if st == 0 {
		st = uint8(hci.ErrAuth)
	}
	return authenticationError(st)
}

// failBonding drops the link and the temporary device, then frees the bonding.
func (a *Adapter) failBonding() {
	b := a.bonding
	if b == nil {
		return
	}
	a.closeBondingConn(b)
	a.removePendingDevice(b.addr)
	a.clearBonding()
}

func (a *Adapter) closeBondingConn(b *bonding) {
	if b.stopWatch != nil {
		b.stopWatch()
		b.stopWatch = nil
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			a.logger.Debugf("close bonding link: %v", err)
		}
		b.conn = nil
	}
}

// clearBonding frees the bonding record and everything it holds.
func (a *Adapter) clearBonding() {
	b := a.bonding
	if b == nil {
		return
	}
	a.unwatch(b.watch)
	b.watch = 0
	a.closeBondingConn(b)

	if d := a.findDevice(b.addr); d != nil {
		a.destroyDeviceAgent(d)
	}
	a.bonding = nil
}

func (a *Adapter) removePendingDevice(addr bluez.Addr) {
	if d := a.findDevice(addr); d != nil && d.Temporary {
		a.removeDevice(d)
	}
}

// bondingRequestorExit cancels b on behalf of a vanished caller.
func (a *Adapter) bondingRequestorExit(b *bonding) {
	if a.bonding != b {
		return
	}

	if auth := a.findAuth(b.addr); auth != nil {
		a.cancelAuth(auth)
		if auth.agent != nil {
			auth.agent.Cancel()
		}
		a.removeAuth(b.addr)
	}
	a.removePendingDevice(b.addr)
	a.clearBonding()
}

// bondingComplete handles Authentication Complete for addr.
func (a *Adapter) bondingComplete(addr bluez.Addr, status uint8) {
	if status == 0 {
		if d := a.findDevice(addr); d != nil && d.Temporary {
			d.Temporary = false
			a.emit("DeviceCreated", d.Path)
		}
	}

	if auth := a.findAuth(addr); auth != nil {
		if auth.agent != nil && !auth.Replied {
			auth.agent.Cancel()
		}
		a.removeAuth(addr)
	}

	b := a.bonding
	if b == nil || b.addr != addr {
		return
	}

	if status == 0 {
		d := a.getDevice(addr)
		b.call.Return(d.Path)
	} else {
		b.call.Fail(authenticationError(status))
		a.removePendingDevice(addr)
	}
	a.clearBonding()
}

// authenticationError maps an authentication outcome to a reply.
func authenticationError(status uint8) *bluez.Error {
	switch hci.ErrCommand(status) {
	case hci.ErrPageTimeout:
		return bluez.ErrConnectionAttemptFailed("Page Timeout")
	case hci.ErrConnTimeout:
		return bluez.ErrConnectionAttemptFailed("Connection Timeout")
	case hci.ErrHostTimeout, hci.ErrLMPResponseTimeout, hci.ErrInstantPassed:
		return bluez.ErrAuthenticationTimeout()
	case hci.ErrRepeatedAttempts:
		return bluez.ErrRepeatedAttempts()
	case hci.ErrPINMissing, hci.ErrPairingNotAllowed:
		return bluez.ErrAuthenticationRejected()
	case hci.ErrMemCapExceeded, hci.ErrConnLimit, hci.ErrSCOConnLimit, hci.ErrLimitedResources,
		hci.ErrRemoteUser, hci.ErrRemoteLowResources, hci.ErrLocalHost:
		return bluez.ErrAuthenticationCanceled()
	default:
		return bluez.ErrAuthenticationFailed()
	}
}
