package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
	"github.com/thentenaar/bluez-dinovo/linux/hci/cmd"
)

// Device is a remote device known to the adapter.
type Device struct {
	Addr bluez.Addr
	Path ObjectPath

	// Temporary devices exist only while a bonding or an incoming
	// pairing needs them.
	Temporary bool
	// Busy is set while a device level operation is running.
	Busy   bool
	Paired bool
	Name   string
	Class  uint32

	agent Agent
}

func (a *Adapter) findDevice(addr bluez.Addr) *Device {
	for _, d := range a.devices {
		if d.Addr == addr {
			return d
		}
	}
	return nil
}

func (a *Adapter) findDeviceByPath(path ObjectPath) *Device {
	for _, d := range a.devices {
		if d.Path == path {
			return d
		}
	}
	return nil
}

func (a *Adapter) createDevice(addr bluez.Addr, temporary bool) *Device {
	d := &Device{
		Addr:      addr,
		Path:      devicePath(a.path, addr),
		Temporary: temporary,
	}
	if a.store != nil {
		d.Name, _ = a.store.RemoteName(addr)
		d.Paired = a.store.HasLinkKey(addr)
	}

	if err := a.bus.ExportDevice(a, d); err != nil {
		a.logger.Errorf("can't export %s: %v", d.Path, err)
	}
	a.devices = append(a.devices, d)
	return d
}

// getDevice returns the device for addr, creating a temporary one.
func (a *Adapter) getDevice(addr bluez.Addr) *Device {
	if d := a.findDevice(addr); d != nil {
		return d
	}
	return a.createDevice(addr, true)
}

func (a *Adapter) destroyDeviceAgent(d *Device) {
	if d.agent == nil {
		return
	}
	a.agentRemoved(d.agent)
	d.agent.Release()
	d.agent = nil
}

// removeDevice forgets d along with its stored bonding and profiles.
func (a *Adapter) removeDevice(d *Device) {
	if a.store != nil {
		if err := a.store.DeleteProfiles(d.Addr); err != nil {
			a.logger.Warnf("can't delete profiles of %s: %v", d.Addr, err)
		}
	}
	a.removeBonding(d.Addr)

	if !d.Temporary {
		a.emit("DeviceRemoved", d.Path)
	}
	a.destroyDeviceAgent(d)

	for i, x := range a.devices {
		if x == d {
			a.devices = append(a.devices[:i], a.devices[i+1:]...)
			break
		}
	}
	a.bus.UnexportDevice(d)
}

// removeBonding deletes the link key of addr everywhere and drops its link.
func (a *Adapter) removeBonding(addr bluez.Addr) {
	if a.store != nil {
		if err := a.store.DeleteLinkKey(addr); err != nil {
			a.logger.Warnf("can't delete link key of %s: %v", addr, err)
		}
	}
	if !a.up {
		return
	}

	if err := a.ctl.Send(&cmd.DeleteStoredLinkKey{BDADDR: addr.Wire()}, nil); err != nil {
		a.logger.Debugf("delete stored link key %s: %v", addr, err)
	}
	if c, ok := a.findConn(addr); ok {
		err := a.ctl.Send(&cmd.Disconnect{ConnectionHandle: c.handle, Reason: uint8(hci.ErrRemoteUser)}, nil)
		if err != nil {
			a.logger.Errorf("disconnect %s: %v", addr, err)
		}
	}
}

func (a *Adapter) loadDevices() {
	if a.store == nil {
		return
	}
	addrs, err := a.store.Devices()
	if err != nil {
		a.logger.Errorf("can't load devices: %v", err)
		return
	}
	for _, addr := range addrs {
		if a.findDevice(addr) == nil {
			a.createDevice(addr, false)
		}
	}
}

// ListDevices returns the paths of all permanent devices.
func (a *Adapter) ListDevices(c *Call) {
	paths := []ObjectPath{}
	for _, d := range a.devices {
		if !d.Temporary {
			paths = append(paths, d.Path)
		}
	}
	c.Return(paths)
}

// CreateDevice adds a permanent device for address.
func (a *Adapter) CreateDevice(c *Call, address string) {
	addr, err := bluez.ParseAddr(address)
	if err != nil {
		c.Fail(bluez.ErrInvalidArguments("Invalid address"))
		return
	}
	if a.findDevice(addr) != nil {
		c.Fail(bluez.ErrAlreadyExists("Device already exists"))
		return
	}

	d := a.createDevice(addr, false)
	a.emit("DeviceCreated", d.Path)
	c.Return(d.Path)
}

// RemoveDevice forgets the device at path.
func (a *Adapter) RemoveDevice(c *Call, path ObjectPath) {
	d := a.findDeviceByPath(path)
	if d == nil {
		c.Fail(bluez.ErrDoesNotExist("Device does not exist"))
		return
	}
	if d.Temporary || d.Busy {
		c.Fail(bluez.ErrDoesNotExist("Device creation in progress"))
		return
	}

	a.removeDevice(d)
	c.Return()
}

// FindDevice returns the path of the permanent device with address.
func (a *Adapter) FindDevice(c *Call, address string) {
	addr, err := bluez.ParseAddr(address)
	if err != nil {
		c.Fail(bluez.ErrInvalidArguments("Invalid address"))
		return
	}

	d := a.findDevice(addr)
	if d == nil || d.Temporary {
		c.Fail(bluez.ErrDoesNotExist("Device does not exist"))
		return
	}
	c.Return(d.Path)
}

// DeviceProperties returns the properties of the device at path.
func (a *Adapter) DeviceProperties(c *Call, path ObjectPath) {
	d := a.findDeviceByPath(path)
	if d == nil {
		c.Fail(bluez.ErrDoesNotExist("Device does not exist"))
		return
	}

	props := map[string]interface{}{
		"Address": d.Addr.String(),
		"Class":   d.Class,
		"Paired":  d.Paired,
		"Adapter": a.path,
	}
	if d.Name != "" {
		props["Name"] = d.Name
	}
	c.Return(props)
}
