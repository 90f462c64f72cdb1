package adapter

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/storage"
)

// GetProperties returns the adapter properties.
func (a *Adapter) GetProperties(c *Call) {
	if a.addr == bluez.AddrAny {
		c.Fail(bluez.ErrNotReady())
		return
	}

	props := map[string]interface{}{
		"Address":             a.addr.String(),
		"Name":                a.name,
		"Mode":                a.mode.String(),
		"DiscoverableTimeout": a.discovTimeout,
		"PeriodicDiscovery":   a.pdiscovActive,
	}
	c.Return(props)
}

// SetProperty changes one writable property.
func (a *Adapter) SetProperty(c *Call, name string, value interface{}) {
	switch name {
	case "Name":
		s, ok := value.(string)
		if !ok {
			c.Fail(bluez.ErrInvalidArguments("Invalid arguments in method call"))
			return
		}
		a.setName(c, s)

	case "Mode":
		s, ok := value.(string)
		if !ok {
			c.Fail(bluez.ErrInvalidArguments("Invalid arguments in method call"))
			return
		}
		a.setModeProperty(c, s)

	case "DiscoverableTimeout":
		v, ok := value.(uint32)
		if !ok {
			c.Fail(bluez.ErrInvalidArguments("Invalid arguments in method call"))
			return
		}
		a.setDiscoverableTimeout(v)
		c.Return()

	case "PeriodicDiscovery":
		on, ok := value.(bool)
		if !ok {
			c.Fail(bluez.ErrInvalidArguments("Invalid arguments in method call"))
			return
		}
		a.setPeriodicProperty(c, on)

	case "PeriodicDiscoveryNameResolving":
		on, ok := value.(bool)
		if !ok {
			c.Fail(bluez.ErrInvalidArguments("Invalid arguments in method call"))
			return
		}
		a.pdiscovResolveNames = on
		c.Return()

	default:
		c.Fail(bluez.ErrInvalidArguments("Property not found"))
	}
}

func (a *Adapter) setName(c *Call, name string) {
	if !utf8.ValidString(name) {
		a.logger.Errorf("name change failed: supplied name isn't valid UTF-8")
		c.Fail(bluez.ErrInvalidArguments("Invalid arguments in method call"))
		return
	}

	if a.store != nil {
		if err := a.store.WriteConfig(storage.KeyName, name); err != nil {
			c.Fail(bluez.ErrFailed(err.Error()))
			return
		}
	}

	if a.up && a.name != name {
		if err := a.writeLocalName(name); err != nil {
			a.logger.Errorf("can't write local name: %v", err)
			c.Fail(commandError(err))
			return
		}
		a.name = name
		a.updateEIR()
	} else {
		a.name = name
	}

	a.propertyChanged("Name", name)
	c.Return()
}

// AddServiceRecord registers an XML service record owned by the caller.
// Its records go away when the caller leaves the bus.
func (a *Adapter) AddServiceRecord(c *Call, xml string) {
	handle, err := a.recs.Add(c.Sender, a.addr, xml)
	if err != nil {
		a.logger.Errorf("can't add service record: %v", err)
		c.Fail(bluez.ErrFailed("Failed to register SDP record"))
		return
	}

	if _, ok := a.recordOwners[c.Sender]; !ok {
		owner := c.Sender
		a.recordOwners[owner] = a.watchName(owner, func() {
			delete(a.recordOwners, owner)
			a.recs.RemoveOwner(owner)
		})
	}
	c.Return(handle)
}

// UpdateServiceRecord replaces the record at handle.
func (a *Adapter) UpdateServiceRecord(c *Call, handle uint32, xml string) {
	if err := a.recs.Update(c.Sender, handle, xml); err != nil {
		c.Fail(recordError(err))
		return
	}
	c.Return()
}

// RemoveServiceRecord drops the caller's record at handle.
func (a *Adapter) RemoveServiceRecord(c *Call, handle uint32) {
	if err := a.recs.Remove(c.Sender, handle); err != nil {
		c.Fail(recordError(err))
		return
	}
	c.Return()
}

// recordError passes through *bluez.Error causes from the record store.
func recordError(err error) *bluez.Error {
	if e, ok := errors.Cause(err).(*bluez.Error); ok {
		return e
	}
	return bluez.ErrFailed(err.Error())
}
