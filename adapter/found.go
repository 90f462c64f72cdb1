package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/eir"
	"github.com/thentenaar/bluez-dinovo/linux/hci/cmd"
)

type nameStatus int

const (
	nameAny nameStatus = iota
	nameNotRequired
	nameRequired
	nameRequested
)

// pscanRepMode R2 is assumed for name requests.
const pscanRepMode = 0x02

// foundDevice is a device reported during the current inquiry.
type foundDevice struct {
	addr   bluez.Addr
	class  uint32
	rssi   int8
	status nameStatus
}

func (a *Adapter) findFound(addr bluez.Addr) *foundDevice {
	for _, d := range a.found {
		if d.addr == addr {
			return d
		}
	}
	return nil
}

func (a *Adapter) findFoundByStatus(st nameStatus) *foundDevice {
	for _, d := range a.found {
		if d.status == st {
			return d
		}
	}
	return nil
}

func (a *Adapter) removeFound(addr bluez.Addr) {
	for i, d := range a.found {
		if d.addr == addr {
			a.found = append(a.found[:i], a.found[i+1:]...)
			return
		}
	}
}

func (a *Adapter) clearFound() {
	a.found = nil
}

func (a *Adapter) requestedName() *foundDevice {
	return a.findFoundByStatus(nameRequested)
}

func (a *Adapter) cachedName(addr bluez.Addr) (string, bool) {
	if a.store == nil {
		return "", false
	}
	return a.store.RemoteName(addr)
}

// deviceFound records one inquiry response and reports it. data is the
// decoded extended inquiry response, if the controller sent one.
func (a *Adapter) deviceFound(addr bluez.Addr, class uint32, rssi int8, data *eir.Data) {
	if a.pdiscovActive {
		a.removeOutOfRange(addr)
	}

	name, cached := a.cachedName(addr)
	if data != nil && data.Name != "" && (data.NameComplete || !cached) {
		if a.store != nil && data.NameComplete && data.Name != name {
			if err := a.store.StoreRemoteName(addr, data.Name); err != nil {
				a.logger.Warnf("can't store name of %s: %v", addr, err)
			}
		}
		name, cached = data.Name, data.NameComplete
	}

	if d := a.findFound(addr); d != nil {
		d.class = class
		d.rssi = rssi
		if cached && d.status == nameRequired {
			d.status = nameNotRequired
		}
	} else {
		st := nameNotRequired
		if a.discovType&discoverResolveName != 0 && !cached {
			st = nameRequired
		}
		a.found = append(a.found, &foundDevice{addr: addr, class: class, rssi: rssi, status: st})
	}

	if d := a.findDevice(addr); d != nil {
		d.Class = class
	}

	props := map[string]interface{}{
		"Address": addr.String(),
		"Class":   class,
		"RSSI":    int16(rssi),
	}
	if name != "" {
		props["Name"] = name
	}
	if data != nil && len(data.Services) > 0 {
		uu := make([]string, len(data.Services))
		for i, u := range data.Services {
			uu[i] = u.String()
		}
		props["UUIDs"] = uu
	}
	a.emit("DeviceFound", addr.String(), props)
}

// requestNextName asks the controller for the next unresolved name.
// It reports whether a request is now outstanding.
func (a *Adapter) requestNextName() bool {
	for {
		d := a.findFoundByStatus(nameRequired)
		if d == nil {
			return false
		}

		d.status = nameRequested
		err := a.ctl.Send(&cmd.RemoteNameRequest{
			BDADDR:                 d.addr.Wire(),
			PageScanRepetitionMode: pscanRepMode,
		}, nil)
		if err == nil {
			return true
		}

		a.logger.Errorf("remote name request %s: %v", d.addr, err)
		a.removeFound(d.addr)
	}
}

// cancelNameRequest aborts a pending name lookup and drops the results
// of the finished inquiry.
func (a *Adapter) cancelNameRequest() {
	d := a.requestedName()
	if d == nil {
		return
	}
	if err := a.ctl.Send(&cmd.RemoteNameRequestCancel{BDADDR: d.addr.Wire()}, nil); err != nil {
		a.logger.Warnf("can't cancel name request %s: %v", d.addr, err)
	}
	a.clearFound()
}

// remoteName handles the end of a name lookup.
func (a *Adapter) remoteName(status uint8, addr bluez.Addr, name string) {
	if status == 0 {
		if a.store != nil {
			if err := a.store.StoreRemoteName(addr, name); err != nil {
				a.logger.Warnf("can't store name of %s: %v", addr, err)
			}
		}
		if d := a.findDevice(addr); d != nil {
			d.Name = name
		}
	}

	d := a.findFound(addr)
	if d == nil || d.status != nameRequested {
		// lookup made by someone else, or cancelled
		return
	}

	if status == 0 {
		a.emit("DeviceFound", addr.String(), map[string]interface{}{
			"Address": addr.String(),
			"Class":   d.class,
			"RSSI":    int16(d.rssi),
			"Name":    name,
		})
	}
	a.removeFound(addr)

	if a.requestNextName() {
		return
	}
	a.roundComplete()
}

// reportOutOfRange signals devices missing from the finished periodic
// round, then remembers this round's devices for the next one.
func (a *Adapter) reportOutOfRange() {
	for _, addr := range a.oor {
		a.emit("DeviceDisappeared", addr.String())
	}

	a.oor = make([]bluez.Addr, 0, len(a.found))
	for _, d := range a.found {
		a.oor = append(a.oor, d.addr)
	}
}

func (a *Adapter) removeOutOfRange(addr bluez.Addr) {
	for i, x := range a.oor {
		if x == addr {
			a.oor = append(a.oor[:i], a.oor[i+1:]...)
			return
		}
	}
}
