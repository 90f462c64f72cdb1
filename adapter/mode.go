package adapter

import (
	"time"

	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
	"github.com/thentenaar/bluez-dinovo/linux/hci/cmd"
	"github.com/thentenaar/bluez-dinovo/storage"
)

// classLimited is the limited discoverable mode bit of the class of device.
const classLimited = 0x002000

func (a *Adapter) parseMode(s string) bluez.Mode {
	return bluez.ParseMode(s, a.onMode)
}

// setMode moves the controller to mode and persists it.
func (a *Adapter) setMode(mode bluez.Mode) *bluez.Error {
	if mode == bluez.ModeUnknown {
		return bluez.ErrInvalidArguments("Invalid mode")
	}
	scan := mode.Scan()
	devDown := a.cfg.OffMode == bluez.OffModeDevDown

	switch {
	case !a.up && (!devDown || scan != bluez.ScanDisabled):
		// the rest happens once the device reports up
		if err := a.ctl.DevUp(); err != nil {
			a.logger.Errorf("can't init device: %v", err)
			return bluez.ErrFailed(hci.Strerror(err))
		}

	case !a.up:
		// off while already down

	case scan == bluez.ScanDisabled && devDown:
		if err := a.ctl.DevDown(); err != nil {
			return bluez.ErrFailed(hci.Strerror(err))
		}

	default:
		if err := a.setLimitedDiscoverable(mode == bluez.ModeLimited); err != nil {
			return commandError(err)
		}

		if a.scanMode != scan {
			if err := a.ctl.Send(&cmd.WriteScanEnable{ScanEnable: scan}, nil); err != nil {
				a.logger.Errorf("can't write scan enable: %v", err)
				return commandError(err)
			}
			a.modeChanged(scan, mode == bluez.ModeLimited)
		} else if scan&bluez.ScanInquiry != 0 && mode != a.mode {
			// discoverable <-> limited keeps the scan bits
			a.mode = mode
			a.propertyChanged("Mode", mode.String())
			a.startDiscovTimer()
		}
	}

	a.storeMode(mode)
	a.mode = mode
	return nil
}

func (a *Adapter) storeMode(mode bluez.Mode) {
	if a.store == nil {
		return
	}
	if err := a.store.WriteConfig(storage.KeyMode, mode.String()); err != nil {
		a.logger.Warnf("can't store mode: %v", err)
	}
}

// setLimitedDiscoverable selects the inquiry access codes answered and
// flips the limited bit of the class.
func (a *Adapter) setLimitedDiscoverable(limited bool) error {
	laps := [][3]byte{cmd.LAP(cmd.GIAC)}
	if limited {
		laps = append(laps, cmd.LAP(cmd.LIAC))
	}
	if err := a.ctl.Send(&cmd.WriteCurrentIACLAP{IACLAP: laps}, nil); err != nil {
		return errors.Wrap(err, "can't write current IAC LAP")
	}

	class := a.class &^ classLimited
	if limited {
		class |= classLimited
	}
	if class == a.class {
		return nil
	}

	if err := a.ctl.Send(&cmd.WriteClassOfDevice{ClassOfDevice: cmd.Class(class)}, nil); err != nil {
		return errors.Wrap(err, "can't write class of device")
	}
	a.class = class
	return nil
}

// modeChanged records a new scan enable value written to the controller.
func (a *Adapter) modeChanged(scan uint8, limited bool) {
	a.removeDiscovTimer()

	switch scan {
	case bluez.ScanDisabled, bluez.ScanPage, bluez.ScanPage | bluez.ScanInquiry:
	default:
		// inquiry scan without page scan is never written by us
		a.scanMode = scan
		return
	}

	a.scanMode = scan
	a.mode = bluez.ModeFromScan(scan, limited)
	if scan&bluez.ScanInquiry != 0 {
		a.startDiscovTimer()
	}
	a.propertyChanged("Mode", a.mode.String())
}

// startDiscovTimer (re)arms the discoverable timeout. Sessions keep the
// adapter discoverable for as long as they last.
func (a *Adapter) startDiscovTimer() {
	a.removeDiscovTimer()
	if a.discovTimeout == 0 || len(a.sessions) != 0 {
		return
	}
	d := time.Duration(a.discovTimeout) * time.Second
	a.discovTimer = a.loop.AddTimeout(d, a.discovTimeoutExpired)
}

func (a *Adapter) removeDiscovTimer() {
	if a.discovTimer != 0 {
		a.loop.RemoveTimeout(a.discovTimer)
		a.discovTimer = 0
	}
}

func (a *Adapter) discovTimeoutExpired() bool {
	scan := a.scanMode &^ bluez.ScanInquiry
	if err := a.ctl.Send(&cmd.WriteScanEnable{ScanEnable: scan}, nil); err != nil {
		a.logger.Errorf("can't leave discoverable mode: %v", err)
		if errors.Cause(err) == hci.ErrClosed {
			a.discovTimer = 0
			return false
		}
		return true
	}
	a.discovTimer = 0

	if a.mode == bluez.ModeLimited {
		if err := a.setLimitedDiscoverable(false); err != nil {
			a.logger.Warnf("can't leave limited mode: %v", err)
		}
	}
	a.modeChanged(scan, false)
	return false
}

// setDiscoverableTimeout reschedules the timeout and persists it.
func (a *Adapter) setDiscoverableTimeout(secs uint32) {
	a.removeDiscovTimer()
	a.discovTimeout = secs
	if secs != 0 && a.scanMode&bluez.ScanInquiry != 0 {
		a.startDiscovTimer()
	}

	if a.store != nil {
		if err := a.store.WriteUint(storage.KeyDiscovTo, secs); err != nil {
			a.logger.Warnf("can't store discoverable timeout: %v", err)
		}
	}
	a.propertyChanged("DiscoverableTimeout", secs)
}

// setModeProperty handles SetProperty("Mode").
func (a *Adapter) setModeProperty(c *Call, value string) {
	mode := a.parseMode(value)
	if mode == bluez.ModeUnknown {
		c.Fail(bluez.ErrInvalidArguments("Invalid mode"))
		return
	}

	a.globalMode = mode
	if a.mode == mode {
		c.Return()
		return
	}

	// lowering below what sessions hold needs the agent's consent
	if len(a.sessions) != 0 && mode < a.mode {
		a.confirmMode(c, mode, nil)
		return
	}

	if err := a.setMode(mode); err != nil {
		c.Fail(err)
		return
	}
	c.Return()
}
