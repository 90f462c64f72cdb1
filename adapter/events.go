package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/eir"
	"github.com/thentenaar/bluez-dinovo/linux/hci/evt"
)

// handleEvent routes one controller event. It runs on the loop.
func (a *Adapter) handleEvent(code int, p []byte) {
	if !a.up {
		return
	}

	var err error
	switch code {
	case evt.InquiryCompleteCode:
		a.inquiryComplete()

	case evt.InquiryResultCode:
		err = a.handleInquiryResult(evt.InquiryResult(p))

	case evt.InquiryResultWithRSSICode:
		err = a.handleInquiryResultWithRSSI(evt.InquiryResultWithRSSI(p))

	case evt.ExtendedInquiryResultCode:
		err = a.handleExtendedInquiryResult(evt.ExtendedInquiryResult(p))

	case evt.RemoteNameRequestCompleteCode:
		err = a.handleRemoteName(evt.RemoteNameRequestComplete(p))

	case evt.ConnectionCompleteCode:
		err = a.handleConnectionComplete(evt.ConnectionComplete(p))

	case evt.DisconnectionCompleteCode:
		err = a.handleDisconnectionComplete(evt.DisconnectionComplete(p))

	case evt.AuthenticationCompleteCode:
		err = a.handleAuthenticationComplete(evt.AuthenticationComplete(p))

	case evt.PINCodeRequestCode:
		var b [6]byte
		if b, err = evt.PINCodeRequest(p).BDADDRWErr(); err == nil {
			a.pinCodeRequest(bluez.AddrFromWire(b))
		}

	case evt.LinkKeyRequestCode:
		var b [6]byte
		if b, err = evt.LinkKeyRequest(p).BDADDRWErr(); err == nil {
			a.linkKeyRequest(bluez.AddrFromWire(b))
		}

	case evt.LinkKeyNotificationCode:
		err = a.handleLinkKeyNotification(evt.LinkKeyNotification(p))

	case evt.IOCapabilityRequestCode:
		var b [6]byte
		if b, err = evt.IOCapabilityRequest(p).BDADDRWErr(); err == nil {
			a.ioCapabilityRequest(bluez.AddrFromWire(b))
		}

	case evt.UserConfirmationRequestCode:
		e := evt.UserConfirmationRequest(p)
		var b [6]byte
		var v uint32
		if b, err = e.BDADDRWErr(); err == nil {
			if v, err = e.NumericValueWErr(); err == nil {
				a.userConfirmationRequest(bluez.AddrFromWire(b), v)
			}
		}

	case evt.UserPasskeyRequestCode:
		var b [6]byte
		if b, err = evt.UserPasskeyRequest(p).BDADDRWErr(); err == nil {
			a.userPasskeyRequest(bluez.AddrFromWire(b))
		}

	case evt.UserPasskeyNotificationCode:
		e := evt.UserPasskeyNotification(p)
		var b [6]byte
		var v uint32
		if b, err = e.BDADDRWErr(); err == nil {
			if v, err = e.PasskeyWErr(); err == nil {
				a.userPasskeyNotification(bluez.AddrFromWire(b), v)
			}
		}

	case evt.SimplePairingCompleteCode:
		err = a.handleSimplePairingComplete(evt.SimplePairingComplete(p))

	default:
		a.logger.Debugf("unhandled event 0x%02X: [% X]", code, p)
	}

	if err != nil {
		a.logger.Warnf("malformed event 0x%02X [% X]: %v", code, p, err)
	}
}

func (a *Adapter) handleInquiryResult(e evt.InquiryResult) error {
	n, err := e.NumResponsesWErr()
	if err != nil {
		return err
	}
	for i := 0; i < int(n); i++ {
		b, err := e.BDADDRWErr(i)
		if err != nil {
			return err
		}
		class, err := e.ClassOfDeviceWErr(i)
		if err != nil {
			return err
		}
		// no RSSI in this format
		a.deviceFound(bluez.AddrFromWire(b), class, 0, nil)
	}
	return nil
}

func (a *Adapter) handleInquiryResultWithRSSI(e evt.InquiryResultWithRSSI) error {
	n, err := e.NumResponsesWErr()
	if err != nil {
		return err
	}
	for i := 0; i < int(n); i++ {
		b, err := e.BDADDRWErr(i)
		if err != nil {
			return err
		}
		class, err := e.ClassOfDeviceWErr(i)
		if err != nil {
			return err
		}
		rssi, err := e.RSSIWErr(i)
		if err != nil {
			return err
		}
		a.deviceFound(bluez.AddrFromWire(b), class, rssi, nil)
	}
	return nil
}

func (a *Adapter) handleExtendedInquiryResult(e evt.ExtendedInquiryResult) error {
	b, err := e.BDADDRWErr()
	if err != nil {
		return err
	}
	class, err := e.ClassOfDeviceWErr()
	if err != nil {
		return err
	}
	rssi, err := e.RSSIWErr()
	if err != nil {
		return err
	}
	raw, err := e.DataWErr()
	if err != nil {
		return err
	}

	var data *eir.Data
	if len(raw) > 0 {
		if data, err = eir.Parse(raw); err != nil {
			a.logger.Debugf("eir from %s: %v", bluez.AddrFromWire(b), err)
		}
	}
	a.deviceFound(bluez.AddrFromWire(b), class, rssi, data)
	return nil
}

func (a *Adapter) handleRemoteName(e evt.RemoteNameRequestComplete) error {
	st, err := e.StatusWErr()
	if err != nil {
		return err
	}
	b, err := e.BDADDRWErr()
	if err != nil {
		return err
	}
	name, err := e.NameWErr()
	if err != nil {
		return err
	}
	a.remoteName(st, bluez.AddrFromWire(b), name)
	return nil
}

func (a *Adapter) handleConnectionComplete(e evt.ConnectionComplete) error {
	st, err := e.StatusWErr()
	if err != nil {
		return err
	}
	h, err := e.ConnectionHandleWErr()
	if err != nil {
		return err
	}
	b, err := e.BDADDRWErr()
	if err != nil {
		return err
	}
	addr := bluez.AddrFromWire(b)

	if st != 0 {
		if a.bonding != nil && a.bonding.addr == addr {
			a.bonding.hciStatus = st
		}
		return nil
	}
	a.addConn(addr, h)
	return nil
}

func (a *Adapter) handleDisconnectionComplete(e evt.DisconnectionComplete) error {
	st, err := e.StatusWErr()
	if err != nil {
		return err
	}
	h, err := e.ConnectionHandleWErr()
	if err != nil {
		return err
	}
	reason, err := e.ReasonWErr()
	if err != nil {
		return err
	}
	if st != 0 {
		return nil
	}

	c, ok := a.findConnByHandle(h)
	if !ok {
		return nil
	}
	a.removeConn(h)

	if auth := a.findAuth(c.addr); auth != nil {
		if auth.agent != nil && !auth.Replied {
			auth.agent.Cancel()
		}
		a.removeAuth(c.addr)
	}

	if a.bonding != nil && a.bonding.addr == c.addr {
		// the link watch reports the failure
		a.bonding.hciStatus = reason
		return nil
	}
	a.removePendingDevice(c.addr)
	return nil
}

func (a *Adapter) handleAuthenticationComplete(e evt.AuthenticationComplete) error {
	st, err := e.StatusWErr()
	if err != nil {
		return err
	}
	h, err := e.ConnectionHandleWErr()
	if err != nil {
		return err
	}

	var addr bluez.Addr
	if a.bonding != nil && a.bonding.authActive && a.bonding.handle == h {
		addr = a.bonding.addr
	} else if c, ok := a.findConnByHandle(h); ok {
		addr = c.addr
	} else {
		a.logger.Debugf("authentication complete for unknown handle 0x%04X", h)
		return nil
	}
	a.bondingComplete(addr, st)
	return nil
}

func (a *Adapter) handleLinkKeyNotification(e evt.LinkKeyNotification) error {
	b, err := e.BDADDRWErr()
	if err != nil {
		return err
	}
	key, err := e.LinkKeyWErr()
	if err != nil {
		return err
	}
	typ, err := e.KeyTypeWErr()
	if err != nil {
		return err
	}
	a.linkKeyNotification(bluez.AddrFromWire(b), key, typ)
	return nil
}

func (a *Adapter) handleSimplePairingComplete(e evt.SimplePairingComplete) error {
	st, err := e.StatusWErr()
	if err != nil {
		return err
	}
	b, err := e.BDADDRWErr()
	if err != nil {
		return err
	}
	addr := bluez.AddrFromWire(b)
	if st != 0 && a.bonding != nil && a.bonding.addr == addr {
		a.bonding.hciStatus = st
	}
	return nil
}
