package bus

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/adapter"
)

// toDBus converts adapter values to their wire types.
func toDBus(v interface{}) interface{} {
	switch v := v.(type) {
	case adapter.ObjectPath:
		return dbus.ObjectPath(v)
	case []adapter.ObjectPath:
		out := make([]dbus.ObjectPath, len(v))
		for i, p := range v {
			out[i] = dbus.ObjectPath(p)
		}
		return out
	case adapter.Variant:
		return dbus.MakeVariant(toDBus(v.Value))
	case map[string]interface{}:
		return variantMap(v)
	default:
		return v
	}
}

func variantMap(m map[string]interface{}) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, len(m))
	for k, v := range m {
		out[k] = dbus.MakeVariant(toDBus(v))
	}
	return out
}

// fromVariant unwraps a property value received from a client.
func fromVariant(v dbus.Variant) interface{} {
	switch x := v.Value().(type) {
	case dbus.ObjectPath:
		return adapter.ObjectPath(x)
	default:
		return x
	}
}

// dbusError converts a reply error to the wire.
func dbusError(e *bluez.Error) *dbus.Error {
	if e == nil {
		return nil
	}
	return dbus.NewError(e.Name, []interface{}{e.Message})
}

// agentError converts the outcome of an agent request. Errors returned by
// the agent keep their name.
func agentError(err error) *bluez.Error {
	if err == nil {
		return nil
	}

	var name string
	var body []interface{}
	switch e := errors.Cause(err).(type) {
	case dbus.Error:
		name, body = e.Name, e.Body
	case *dbus.Error:
		name, body = e.Name, e.Body
	default:
		if errors.Cause(err) == context.DeadlineExceeded {
			return bluez.ErrAuthenticationTimeout()
		}
		return bluez.ErrFailed(err.Error())
	}

	msg := name
	if len(body) > 0 {
		if s, ok := body[0].(string); ok {
			msg = s
		}
	}
	return &bluez.Error{Name: name, Message: msg}
}

// reply unpacks the single value of a method reply.
func reply(vals []interface{}, err *bluez.Error) (interface{}, *dbus.Error) {
	if err != nil {
		return nil, dbusError(err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return toDBus(vals[0]), nil
}
