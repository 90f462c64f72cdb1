package bus

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/adapter"
)

var adapterSignals = []introspect.Signal{
	{Name: "PropertyChanged", Args: []introspect.Arg{{Name: "name", Type: "s"}, {Name: "value", Type: "v"}}},
	{Name: "DiscoveryStarted"},
	{Name: "DiscoveryCompleted"},
	{Name: "DeviceCreated", Args: []introspect.Arg{{Name: "device", Type: "o"}}},
	{Name: "DeviceRemoved", Args: []introspect.Arg{{Name: "device", Type: "o"}}},
	{Name: "DeviceFound", Args: []introspect.Arg{{Name: "address", Type: "s"}, {Name: "values", Type: "a{sv}"}}},
	{Name: "DeviceDisappeared", Args: []introspect.Arg{{Name: "address", Type: "s"}}},
}

var managerSignals = []introspect.Signal{
	{Name: "AdapterAdded", Args: []introspect.Arg{{Name: "adapter", Type: "o"}}},
	{Name: "AdapterRemoved", Args: []introspect.Arg{{Name: "adapter", Type: "o"}}},
	{Name: "DefaultAdapterChanged", Args: []introspect.Arg{{Name: "adapter", Type: "o"}}},
}

// export puts v at path under iface along with its introspection data.
func (b *Bus) export(v interface{}, path dbus.ObjectPath, iface string, signals []introspect.Signal) error {
	if err := b.conn.Export(v, path, iface); err != nil {
		return errors.Wrapf(err, "can't export %s on %s", iface, path)
	}

	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: iface, Methods: introspect.Methods(v), Signals: signals},
		},
	}
	if err := b.conn.Export(introspect.NewIntrospectable(node), path, introspect.IntrospectData.Name); err != nil {
		return errors.Wrapf(err, "can't export introspection on %s", path)
	}
	return nil
}

func (b *Bus) unexport(path dbus.ObjectPath, iface string) {
	if err := b.conn.Export(nil, path, iface); err != nil {
		b.logger.Debugf("unexport %s: %v", path, err)
	}
	if err := b.conn.Export(nil, path, introspect.IntrospectData.Name); err != nil {
		b.logger.Debugf("unexport introspection of %s: %v", path, err)
	}
}

// ExportAdapter puts a on the bus at its path.
func (b *Bus) ExportAdapter(a *adapter.Adapter) error {
	return b.export(&adapterObject{a}, dbus.ObjectPath(a.Path()), AdapterInterface, adapterSignals)
}

// UnexportAdapter takes a off the bus.
func (b *Bus) UnexportAdapter(a *adapter.Adapter) {
	b.unexport(dbus.ObjectPath(a.Path()), AdapterInterface)
}

// ExportDevice puts d on the bus below a.
func (b *Bus) ExportDevice(a *adapter.Adapter, d *adapter.Device) error {
	return b.export(&deviceObject{a: a, path: d.Path}, dbus.ObjectPath(d.Path), DeviceInterface, nil)
}

// UnexportDevice takes d off the bus.
func (b *Bus) UnexportDevice(d *adapter.Device) {
	b.unexport(dbus.ObjectPath(d.Path), DeviceInterface)
}

// Manager is what the manager object forwards to.
type Manager interface {
	Do(sender string, f func(*adapter.Call)) ([]interface{}, *bluez.Error)
	DefaultAdapter(c *adapter.Call)
	FindAdapter(c *adapter.Call, pattern string)
	ListAdapters(c *adapter.Call)
}

// ExportManager puts m on the bus at ManagerPath.
func (b *Bus) ExportManager(m Manager) error {
	return b.export(&managerObject{m}, ManagerPath, ManagerInterface, managerSignals)
}

type adapterObject struct {
	a *adapter.Adapter
}

func (o *adapterObject) call(sender dbus.Sender, f func(*adapter.Call)) *dbus.Error {
	_, err := o.a.Do(string(sender), f)
	return dbusError(err)
}

func (o *adapterObject) GetProperties(sender dbus.Sender) (map[string]dbus.Variant, *dbus.Error) {
	v, err := reply(o.a.Do(string(sender), o.a.GetProperties))
	if err != nil {
		return nil, err
	}
	props, _ := v.(map[string]dbus.Variant)
	return props, nil
}

func (o *adapterObject) SetProperty(sender dbus.Sender, name string, value dbus.Variant) *dbus.Error {
	return o.call(sender, func(c *adapter.Call) { o.a.SetProperty(c, name, fromVariant(value)) })
}

func (o *adapterObject) RequestMode(sender dbus.Sender, mode string) *dbus.Error {
	return o.call(sender, func(c *adapter.Call) { o.a.RequestMode(c, mode) })
}

func (o *adapterObject) ReleaseMode(sender dbus.Sender) *dbus.Error {
	return o.call(sender, o.a.ReleaseMode)
}

func (o *adapterObject) DiscoverDevices(sender dbus.Sender) *dbus.Error {
	return o.call(sender, o.a.DiscoverDevices)
}

func (o *adapterObject) CancelDiscovery(sender dbus.Sender) *dbus.Error {
	return o.call(sender, o.a.CancelDiscovery)
}

func (o *adapterObject) StartPeriodicDiscovery(sender dbus.Sender) *dbus.Error {
	return o.call(sender, o.a.StartPeriodicDiscovery)
}

func (o *adapterObject) StopPeriodicDiscovery(sender dbus.Sender) *dbus.Error {
	return o.call(sender, o.a.StopPeriodicDiscovery)
}

func (o *adapterObject) ListDevices(sender dbus.Sender) ([]dbus.ObjectPath, *dbus.Error) {
	v, err := reply(o.a.Do(string(sender), o.a.ListDevices))
	if err != nil {
		return nil, err
	}
	paths, _ := v.([]dbus.ObjectPath)
	return paths, nil
}

func (o *adapterObject) path(sender dbus.Sender, f func(*adapter.Call)) (dbus.ObjectPath, *dbus.Error) {
	v, err := reply(o.a.Do(string(sender), f))
	if err != nil {
		return "", err
	}
	p, _ := v.(dbus.ObjectPath)
	return p, nil
}

func (o *adapterObject) CreateDevice(sender dbus.Sender, address string) (dbus.ObjectPath, *dbus.Error) {
	return o.path(sender, func(c *adapter.Call) { o.a.CreateDevice(c, address) })
}

func (o *adapterObject) CreatePairedDevice(sender dbus.Sender, address string, agent dbus.ObjectPath, capability string) (dbus.ObjectPath, *dbus.Error) {
	return o.path(sender, func(c *adapter.Call) {
		o.a.CreatePairedDevice(c, address, adapter.ObjectPath(agent), capability)
	})
}

func (o *adapterObject) RemoveDevice(sender dbus.Sender, device dbus.ObjectPath) *dbus.Error {
	return o.call(sender, func(c *adapter.Call) { o.a.RemoveDevice(c, adapter.ObjectPath(device)) })
}

func (o *adapterObject) FindDevice(sender dbus.Sender, address string) (dbus.ObjectPath, *dbus.Error) {
	return o.path(sender, func(c *adapter.Call) { o.a.FindDevice(c, address) })
}

func (o *adapterObject) RegisterAgent(sender dbus.Sender, agent dbus.ObjectPath, capability string) *dbus.Error {
	return o.call(sender, func(c *adapter.Call) { o.a.RegisterAgent(c, adapter.ObjectPath(agent), capability) })
}

func (o *adapterObject) UnregisterAgent(sender dbus.Sender, agent dbus.ObjectPath) *dbus.Error {
	return o.call(sender, func(c *adapter.Call) { o.a.UnregisterAgent(c, adapter.ObjectPath(agent)) })
}

func (o *adapterObject) AddServiceRecord(sender dbus.Sender, record string) (uint32, *dbus.Error) {
	v, err := reply(o.a.Do(string(sender), func(c *adapter.Call) { o.a.AddServiceRecord(c, record) }))
	if err != nil {
		return 0, err
	}
	h, _ := v.(uint32)
	return h, nil
}

func (o *adapterObject) UpdateServiceRecord(sender dbus.Sender, handle uint32, record string) *dbus.Error {
	return o.call(sender, func(c *adapter.Call) { o.a.UpdateServiceRecord(c, handle, record) })
}

func (o *adapterObject) RemoveServiceRecord(sender dbus.Sender, handle uint32) *dbus.Error {
	return o.call(sender, func(c *adapter.Call) { o.a.RemoveServiceRecord(c, handle) })
}

type deviceObject struct {
	a    *adapter.Adapter
	path adapter.ObjectPath
}

func (o *deviceObject) GetProperties(sender dbus.Sender) (map[string]dbus.Variant, *dbus.Error) {
	v, err := reply(o.a.Do(string(sender), func(c *adapter.Call) { o.a.DeviceProperties(c, o.path) }))
	if err != nil {
		return nil, err
	}
	props, _ := v.(map[string]dbus.Variant)
	return props, nil
}

type managerObject struct {
	m Manager
}

func (o *managerObject) path(sender dbus.Sender, f func(*adapter.Call)) (dbus.ObjectPath, *dbus.Error) {
	v, err := reply(o.m.Do(string(sender), f))
	if err != nil {
		return "", err
	}
	p, _ := v.(dbus.ObjectPath)
	return p, nil
}

func (o *managerObject) DefaultAdapter(sender dbus.Sender) (dbus.ObjectPath, *dbus.Error) {
	return o.path(sender, o.m.DefaultAdapter)
}

func (o *managerObject) FindAdapter(sender dbus.Sender, pattern string) (dbus.ObjectPath, *dbus.Error) {
	return o.path(sender, func(c *adapter.Call) { o.m.FindAdapter(c, pattern) })
}

func (o *managerObject) ListAdapters(sender dbus.Sender) ([]dbus.ObjectPath, *dbus.Error) {
	v, err := reply(o.m.Do(string(sender), o.m.ListAdapters))
	if err != nil {
		return nil, err
	}
	paths, _ := v.([]dbus.ObjectPath)
	return paths, nil
}
