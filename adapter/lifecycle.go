package adapter

import (
	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/eir"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
	"github.com/thentenaar/bluez-dinovo/linux/hci/cmd"
	"github.com/thentenaar/bluez-dinovo/storage"
)

// ErrRawDevice is returned by Start for controllers in raw mode; they are
// left alone.
var ErrRawDevice = errors.New("raw device")

// Base event mask; feature dependent bits are added in setupEventMask.
var defaultEventMask = [8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x1f, 0x00, 0x00}

// Longest name carried in the local extended inquiry response.
const eirMaxName = 48

// Start reads the controller identity, configures it and brings the
// adapter up. It runs on the loop.
func (a *Adapter) Start() error {
	if a.up {
		return nil
	}

	di, err := a.ctl.DevInfo()
	if err != nil {
		return errors.Wrap(err, "can't get device info")
	}
	if di.Raw {
		return ErrRawDevice
	}

	a.addr = di.Addr
	if a.addr == (bluez.Addr{}) {
		rp := &cmd.ReadBDADDRRP{}
		if err := a.ctl.Send(&cmd.ReadBDADDR{}, rp); err != nil {
			return errors.Wrap(err, "can't read address")
		}
		a.addr = bluez.AddrFromWire(rp.BDADDR)
	}
	a.logger = a.logger.ChildLogger(map[string]interface{}{"addr": a.addr.String()})

	if a.store == nil {
		st, err := storage.Open(a.cfg.StorageDir, a.addr)
		if err != nil {
			return errors.Wrap(err, "can't open storage")
		}
		a.store = st
	}

	if err := a.readIdentity(); err != nil {
		return err
	}
	a.setup()
	a.goUp()

	// an inquiry someone else started is still running
	a.discovActive = di.Inquiry

	a.logger.Infof("adapter %s has been enabled", a.path)
	return nil
}

// readIdentity fetches version, features, class, name and simple pairing mode.
func (a *Adapter) readIdentity() error {
	ver := &cmd.ReadLocalVersionInformationRP{}
	if err := a.ctl.Send(&cmd.ReadLocalVersionInformation{}, ver); err != nil {
		return errors.Wrap(err, "can't read version info")
	}
	a.version = ver.HCIVersion
	a.revision = ver.HCIRevision
	a.manuf = ver.ManufacturerName
	a.subver = ver.LMPPALSubversion

	feat := &cmd.ReadLocalSupportedFeaturesRP{}
	if err := a.ctl.Send(&cmd.ReadLocalSupportedFeatures{}, feat); err != nil {
		return errors.Wrap(err, "can't read features")
	}
	a.features = feat.LMPFeatures

	class := &cmd.ReadClassOfDeviceRP{}
	if err := a.ctl.Send(&cmd.ReadClassOfDevice{}, class); err != nil {
		return errors.Wrap(err, "can't read class of device")
	}
	a.class = cmd.ClassValue(class.ClassOfDevice)

	name := &cmd.ReadLocalNameRP{}
	if err := a.ctl.Send(&cmd.ReadLocalName{}, name); err != nil {
		return errors.Wrap(err, "can't read local name")
	}
	a.name = name.Name()

	if !cmd.HasFeature(a.features, cmd.FeatureSimplePair) {
		return nil
	}

	ssp := &cmd.ReadSimplePairingModeRP{}
	if err := a.ctl.Send(&cmd.ReadSimplePairingMode{}, ssp); err != nil {
		return errors.Wrap(err, "can't read simple pairing mode")
	}
	a.sspMode = ssp.SimplePairingMode
	if a.sspMode == 0 {
		if err := a.ctl.Send(&cmd.WriteSimplePairingMode{SimplePairingMode: 1}, nil); err != nil {
			a.logger.Warnf("can't enable simple pairing: %v", err)
		} else {
			a.sspMode = 1
		}
	}
	return nil
}

// setup writes the event mask, stored name and class, EIR and inquiry mode.
// Failures here leave the adapter usable and are only logged.
func (a *Adapter) setup() {
	if a.revision > 1 {
		mask := eventMask(a.features)
		if err := a.ctl.Send(&cmd.SetEventMask{EventMask: mask}, nil); err != nil {
			a.logger.Warnf("can't set event mask: %v", err)
		}
	}

	if name, ok, err := a.store.ReadConfig(storage.KeyName); err == nil && ok {
		if err := a.writeLocalName(name); err != nil {
			a.logger.Warnf("can't write local name: %v", err)
		} else {
			a.name = name
		}
	} else if a.name == "" && a.cfg.Name != "" {
		if err := a.writeLocalName(a.cfg.Name); err == nil {
			a.name = a.cfg.Name
		}
	}

	if class, ok, err := a.store.ReadUint(storage.KeyClass); err == nil && ok && class != a.class {
		if err := a.ctl.Send(&cmd.WriteClassOfDevice{ClassOfDevice: cmd.Class(class)}, nil); err != nil {
			a.logger.Warnf("can't write class of device: %v", err)
		} else {
			a.class = class
		}
	}

	a.updateEIR()

	if m := inquiryMode(a.features, a.manuf, a.revision, a.subver); m != 0 {
		if err := a.ctl.Send(&cmd.WriteInquiryMode{InquiryMode: m}, nil); err != nil {
			a.logger.Warnf("can't write inquiry mode: %v", err)
		}
	}

	if s, ok, err := a.store.ReadConfig(storage.KeyOnMode); err == nil && ok {
		if m := bluez.ParseMode(s, bluez.ModeConnectable); m != bluez.ModeUnknown && m != bluez.ModeOff {
			a.onMode = m
		}
	} else if m := bluez.ParseMode(a.cfg.OnMode, bluez.ModeConnectable); m != bluez.ModeUnknown && m != bluez.ModeOff {
		a.onMode = m
	}
}

// goUp applies the startup mode and loads what is already there.
func (a *Adapter) goUp() {
	a.up = true
	a.discovType = 0
	a.discovTimeout = a.cfg.DiscoverableTimeout
	if v, ok, err := a.store.ReadUint(storage.KeyDiscovTo); err == nil && ok {
		a.discovTimeout = v
	}

	mode := a.startupMode()
	scan := mode.Scan()
	if err := a.ctl.Send(&cmd.WriteScanEnable{ScanEnable: scan}, nil); err != nil {
		a.logger.Errorf("can't write scan enable: %v", err)
	}
	if mode == bluez.ModeLimited {
		if err := a.setLimitedDiscoverable(true); err != nil {
			a.logger.Warnf("can't set limited discoverable: %v", err)
		}
	}
	a.scanMode = scan
	a.mode = mode
	a.globalMode = mode
	if scan&bluez.ScanInquiry != 0 {
		a.startDiscovTimer()
	}

	a.loadConns()
	a.propertyChanged("Mode", a.mode.String())
	a.loadDevices()
}

func (a *Adapter) startupMode() bluez.Mode {
	mode := bluez.ModeUnknown
	if s, ok, err := a.store.ReadConfig(storage.KeyMode); err == nil && ok {
		mode = a.parseMode(s)
	}
	if mode == bluez.ModeUnknown {
		mode = a.parseMode(a.cfg.StartupMode)
	}
	if mode == bluez.ModeUnknown {
		mode = bluez.ModeConnectable
	}
	return mode
}

// Stop tears the adapter down after the controller went away or down.
func (a *Adapter) Stop() {
	if !a.up {
		return
	}

	a.removeDiscovTimer()
	a.replyPendingRequests()

	a.clearDiscovRequestor()
	a.clearPdiscovRequestor()

	a.clearFound()
	a.oor = nil
	a.auths = nil
	a.conns = nil

	a.propertyChanged("Mode", bluez.ModeOff.String())

	a.up = false
	a.scanMode = bluez.ScanDisabled
	a.mode = bluez.ModeOff
	a.discovActive = false
	a.pdiscovActive = false
	a.discovType = 0

	a.logger.Infof("adapter %s has been disabled", a.path)
}

func (a *Adapter) replyPendingRequests() {
	if b := a.bonding; b != nil {
		b.call.Fail(authenticationError(uint8(hci.ErrRemoteUser)))
		a.removePendingDevice(b.addr)
		a.clearBonding()
	}

	if c := a.discovCancel; c != nil {
		a.discovCancel = nil
		c.Return()
	}

	if a.discovActive {
		a.emit("DiscoveryCompleted")
		if a.discovRequestor != "" {
			if err := a.sendDiscoveryCancel(); err != nil {
				a.logger.Debugf("cancel discovery: %v", err)
			}
		}
	}

	if a.pdiscovActive && a.pdiscovRequestor != "" {
		if err := a.sendPeriodicCancel(); err != nil {
			a.logger.Debugf("cancel periodic discovery: %v", err)
		}
	}
}

// writeLocalName sends name to the controller.
func (a *Adapter) writeLocalName(name string) error {
	c := &cmd.WriteLocalName{}
	copy(c.LocalName[:], name)
	return a.ctl.Send(c, nil)
}

// updateEIR refreshes the extended inquiry response with the local name.
func (a *Adapter) updateEIR() {
	if !cmd.HasFeature(a.features, cmd.FeatureExtInquiry) {
		return
	}
	c := &cmd.WriteExtendedInquiryResponse{}
	if a.sspMode > 0 {
		c.ExtendedInquiryResponse = eirData(a.name)
	}
	if err := a.ctl.Send(c, nil); err != nil {
		a.logger.Warnf("can't write extended inquiry response: %v", err)
	}
}

func eirData(name string) [cmd.EIRLength]byte {
	var b [cmd.EIRLength]byte
	d := eir.Data{Name: name, NameComplete: true}
	if len(name) > eirMaxName {
		d.Name = name[:eirMaxName]
		d.NameComplete = false
	}
	d.MarshalTo(b[:])
	return b
}

func eventMask(features [8]byte) [8]byte {
	m := defaultEventMask
	if cmd.HasFeature(features, cmd.FeatureSniffSubrate) {
		m[5] |= 0x20
	}
	if cmd.HasFeature(features, cmd.FeaturePauseEncrypt) {
		m[5] |= 0x80
	}
	if cmd.HasFeature(features, cmd.FeatureExtInquiry) {
		m[5] |= 0x40
	}
	if cmd.HasFeature(features, cmd.FeatureNFLUSH) {
		m[7] |= 0x01
	}
	if cmd.HasFeature(features, cmd.FeatureLSTO) {
		m[6] |= 0x80
	}
	if cmd.HasFeature(features, cmd.FeatureSimplePair) {
		// IO capability request/response, user confirmation, user
		// passkey, remote OOB data and simple pairing complete
		m[6] |= 0x3f
		// passkey and keypress notification, remote host features
		m[7] |= 0x1c
	}
	return m
}

// inquiryMode picks the richest inquiry result format the controller
// handles, including controllers known to send RSSI results without
// advertising it.
func inquiryMode(features [8]byte, manuf, rev, subver uint16) uint8 {
	switch {
	case cmd.HasFeature(features, cmd.FeatureExtInquiry):
		return 2
	case cmd.HasFeature(features, cmd.FeatureRSSIInquiry):
		return 1
	}

	quirks := []struct{ manuf, rev, subver uint16 }{
		{11, 0x00, 0x0757},
		{15, 0x03, 0x6963},
		{15, 0x09, 0x6963},
		{15, 0x00, 0x6965},
		{31, 0x2005, 0x1805},
	}
	for _, q := range quirks {
		if q.manuf == manuf && q.rev == rev && q.subver == subver {
			return 1
		}
	}
	return 0
}
