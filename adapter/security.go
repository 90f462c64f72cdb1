package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
	"github.com/thentenaar/bluez-dinovo/linux/hci/cmd"
	"github.com/thentenaar/bluez-dinovo/storage"
)

// Authentication requirements of IO Capability Request Reply.
const (
	authDedicatedBonding = 0x02
	authGeneralBonding   = 0x04
	authMITM             = 0x01
	maxPasskey           = 999999
)

// authAgent picks the agent answering for addr: the one attached to the
// device by a bonding, else the default agent.
func (a *Adapter) authAgent(d *Device) Agent {
	if d != nil && d.agent != nil {
		return d.agent
	}
	return a.agent
}

// newAuth starts tracking a request, replacing a stale entry for addr.
func (a *Adapter) newAuth(addr bluez.Addr, t AuthType, ag Agent) *PendingAuth {
	if old := a.findAuth(addr); old != nil {
		a.logger.Debugf("replacing %s request of %s", old.Type, addr)
		a.removeAuth(addr)
	}
	auth := a.registerAuth(addr, t)
	auth.agent = ag
	return auth
}

// answerable returns the entry an agent answer for addr applies to.
func (a *Adapter) answerable(addr bluez.Addr, t AuthType) *PendingAuth {
	auth := a.findAuth(addr)
	if auth == nil || auth.Type != t || auth.Replied {
		return nil
	}
	return auth
}

func (a *Adapter) reply(c hci.Command) {
	if err := a.ctl.Send(c, &cmd.ReplyRP{}); err != nil {
		a.logger.Errorf("can't send %v: %v", c, err)
	}
}

func (a *Adapter) pinCodeRequest(addr bluez.Addr) {
	d := a.getDevice(addr)
	ag := a.authAgent(d)
	if ag == nil {
		a.logger.Infof("no agent for PIN request of %s", addr)
		a.reply(&cmd.PINCodeRequestNegativeReply{BDADDR: addr.Wire()})
		return
	}

	a.newAuth(addr, AuthPINCode, ag)
	ag.RequestPinCode(d.Path, func(pin string, err *bluez.Error) {
		a.loop.Post(func() { a.pinCodeReply(addr, pin, err) })
	})
}

func (a *Adapter) pinCodeReply(addr bluez.Addr, pin string, err *bluez.Error) {
	auth := a.answerable(addr, AuthPINCode)
	if auth == nil {
		return
	}

	if err != nil || len(pin) == 0 || len(pin) > 16 {
		a.reply(&cmd.PINCodeRequestNegativeReply{BDADDR: addr.Wire()})
	} else {
		c := &cmd.PINCodeRequestReply{BDADDR: addr.Wire(), PINCodeLength: uint8(len(pin))}
		copy(c.PINCode[:], pin)
		a.reply(c)
		auth.pinLen = uint8(len(pin))
	}
	a.markAuthReplied(addr)
}

func (a *Adapter) userConfirmationRequest(addr bluez.Addr, passkey uint32) {
	d := a.getDevice(addr)
	ag := a.authAgent(d)
	if ag == nil {
		a.reply(&cmd.UserConfirmationRequestNegativeReply{BDADDR: addr.Wire()})
		return
	}

	a.newAuth(addr, AuthConfirm, ag)
	ag.RequestConfirmation(d.Path, passkey, func(err *bluez.Error) {
		a.loop.Post(func() {
			if a.answerable(addr, AuthConfirm) == nil {
				return
			}
			if err != nil {
				a.reply(&cmd.UserConfirmationRequestNegativeReply{BDADDR: addr.Wire()})
			} else {
				a.reply(&cmd.UserConfirmationRequestReply{BDADDR: addr.Wire()})
			}
			a.markAuthReplied(addr)
		})
	})
}

func (a *Adapter) userPasskeyRequest(addr bluez.Addr) {
	d := a.getDevice(addr)
	ag := a.authAgent(d)
	if ag == nil {
		a.reply(&cmd.UserPasskeyRequestNegativeReply{BDADDR: addr.Wire()})
		return
	}

	a.newAuth(addr, AuthPasskey, ag)
	ag.RequestPasskey(d.Path, func(passkey uint32, err *bluez.Error) {
		a.loop.Post(func() {
			if a.answerable(addr, AuthPasskey) == nil {
				return
			}
			if err != nil || passkey > maxPasskey {
				a.reply(&cmd.UserPasskeyRequestNegativeReply{BDADDR: addr.Wire()})
			} else {
				a.reply(&cmd.UserPasskeyRequestReply{BDADDR: addr.Wire(), NumericValue: passkey})
			}
			a.markAuthReplied(addr)
		})
	})
}

func (a *Adapter) userPasskeyNotification(addr bluez.Addr, passkey uint32) {
	d := a.getDevice(addr)
	ag := a.authAgent(d)
	if ag == nil {
		return
	}
	a.newAuth(addr, AuthNotify, ag)
	ag.DisplayPasskey(d.Path, passkey)
}

func (a *Adapter) ioCapabilityRequest(addr bluez.Addr) {
	ag := a.authAgent(a.findDevice(addr))
	if ag == nil {
		a.logger.Infof("no agent for IO capability request of %s", addr)
		a.reply(&cmd.IOCapabilityRequestNegativeReply{BDADDR: addr.Wire(), Reason: uint8(hci.ErrPairingNotAllowed)})
		return
	}

	ioc := ag.Capability()
	auth := uint8(authGeneralBonding)
	if a.bonding != nil && a.bonding.addr == addr {
		auth = authDedicatedBonding
	}
	if ioc != bluez.NoInputNoOutput {
		auth |= authMITM
	}

	a.reply(&cmd.IOCapabilityRequestReply{
		BDADDR:                     addr.Wire(),
		IOCapability:               uint8(ioc),
		AuthenticationRequirements: auth,
	})
}

func (a *Adapter) linkKeyRequest(addr bluez.Addr) {
	if a.store != nil {
		if k, ok, err := a.store.LinkKey(addr); err == nil && ok {
			if key, err := k.Bytes(); err == nil {
				a.reply(&cmd.LinkKeyRequestReply{BDADDR: addr.Wire(), LinkKey: key})
				return
			}
		}
	}
	a.reply(&cmd.LinkKeyRequestNegativeReply{BDADDR: addr.Wire()})
}

// linkKeyNotification persists a new link key; this is what makes a
// device paired.
func (a *Adapter) linkKeyNotification(addr bluez.Addr, key [16]byte, typ uint8) {
	if a.store == nil {
		return
	}

	k := storage.NewLinkKey(key, typ)
	if auth := a.findAuth(addr); auth != nil {
		k.PINLen = auth.pinLen
	}
	if err := a.store.StoreLinkKey(addr, k); err != nil {
		a.logger.Errorf("can't store link key of %s: %v", addr, err)
		return
	}

	if d := a.findDevice(addr); d != nil {
		d.Paired = true
	}
}
