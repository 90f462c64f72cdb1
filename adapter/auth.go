package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
	"github.com/thentenaar/bluez-dinovo/linux/hci/cmd"
)

// AuthType is the kind of answer a pending authentication expects.
type AuthType int

const (
	AuthPINCode AuthType = iota
	AuthConfirm
	AuthPasskey
	AuthNotify
)

func (t AuthType) String() string {
	switch t {
	case AuthPINCode:
		return "pincode"
	case AuthConfirm:
		return "confirm"
	case AuthPasskey:
		return "passkey"
	case AuthNotify:
		return "notify"
	default:
		return "unknown"
	}
}

// PendingAuth is an authentication request from the controller that
// has not been completed yet. There is at most one per address.
type PendingAuth struct {
	Addr    bluez.Addr
	Type    AuthType
	Replied bool

	agent  Agent
	pinLen uint8
}

// registerAuth records a request for addr. Callers make sure no entry
// for addr exists.
func (a *Adapter) registerAuth(addr bluez.Addr, t AuthType) *PendingAuth {
	auth := &PendingAuth{Addr: addr, Type: t}
	a.auths = append(a.auths, auth)

	if a.bonding != nil && a.bonding.addr == addr {
		a.bonding.authActive = true
	}
	return auth
}

func (a *Adapter) findAuth(addr bluez.Addr) *PendingAuth {
	for _, auth := range a.auths {
		if auth.Addr == addr {
			return auth
		}
	}
	return nil
}

func (a *Adapter) removeAuth(addr bluez.Addr) {
	for i, auth := range a.auths {
		if auth.Addr == addr {
			a.auths = append(a.auths[:i], a.auths[i+1:]...)
			return
		}
	}
}

func (a *Adapter) markAuthReplied(addr bluez.Addr) {
	if auth := a.findAuth(addr); auth != nil {
		auth.Replied = true
	}
}

// cancelAuth sends the negative reply matching the request type unless
// an answer went out already. The entry stays registered.
func (a *Adapter) cancelAuth(auth *PendingAuth) {
	if auth.Replied {
		return
	}

	var c hci.Command
	bdaddr := auth.Addr.Wire()
	switch auth.Type {
	case AuthPINCode:
		c = &cmd.PINCodeRequestNegativeReply{BDADDR: bdaddr}
	case AuthConfirm:
		c = &cmd.UserConfirmationRequestNegativeReply{BDADDR: bdaddr}
	case AuthPasskey:
		c = &cmd.UserPasskeyRequestNegativeReply{BDADDR: bdaddr}
	case AuthNotify:
		// nothing to answer
	}

	if c != nil {
		if err := a.ctl.Send(c, &cmd.ReplyRP{}); err != nil {
			a.logger.Warnf("can't reject %s request of %s: %v", auth.Type, auth.Addr, err)
		}
	}
	auth.Replied = true
}
