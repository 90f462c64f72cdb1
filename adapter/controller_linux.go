//go:build linux
// +build linux

package adapter

import (
	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
	"github.com/thentenaar/bluez-dinovo/linux/hci/socket"
)

// HCIController drives hciN through the kernel: commands over an HCI
// socket, device level requests through ioctls.
type HCIController struct {
	*hci.HCI
	id int
}

// NewHCIController opens the command channel of hciN. opts override the
// default HCI socket transport.
func NewHCIController(id int, opts ...hci.Option) (*HCIController, error) {
	opts = append([]hci.Option{hci.OptTransportHCISocket(id)}, opts...)
	h, err := hci.NewHCI(opts...)
	if err != nil {
		return nil, err
	}
	if err := h.Init(); err != nil {
		return nil, errors.Wrapf(err, "can't init hci%d", id)
	}
	return &HCIController{HCI: h, id: id}, nil
}

// DevUp brings hciN up.
func (c *HCIController) DevUp() error { return socket.DeviceUp(c.id) }

// DevDown brings hciN down.
func (c *HCIController) DevDown() error { return socket.DeviceDown(c.id) }

// DevInfo returns the kernel's view of hciN.
func (c *HCIController) DevInfo() (DevInfo, error) {
	di, err := socket.DeviceInfo(c.id)
	if err != nil {
		return DevInfo{}, err
	}
	return DevInfo{
		Addr:     bluez.Addr(di.Addr),
		Up:       di.Has(socket.FlagUp),
		Raw:      di.Has(socket.FlagRaw),
		Inquiry:  di.Has(socket.FlagInquiry),
		Features: di.Features,
	}, nil
}

// Connections returns the baseband links of hciN.
func (c *HCIController) Connections() ([]ConnInfo, error) {
	cc, err := socket.Connections(c.id)
	if err != nil {
		return nil, err
	}
	out := make([]ConnInfo, 0, len(cc))
	for _, ci := range cc {
		out = append(out, ConnInfo{Handle: ci.Handle, Addr: bluez.Addr(ci.Addr)})
	}
	return out, nil
}

// DialRaw starts a baseband connection from local to remote.
func (c *HCIController) DialRaw(local, remote bluez.Addr) (RawConn, error) {
	l, err := socket.DialL2Raw(local, remote)
	if err != nil {
		return nil, err
	}
	return &l2RawConn{l}, nil
}

type l2RawConn struct {
	*socket.L2Conn
}

var condMap = []struct {
	c Cond
	p int16
}{
	{CondOut, socket.CondOut},
	{CondErr, socket.CondErr},
	{CondHup, socket.CondHup},
	{CondNval, socket.CondNval},
}

func (r *l2RawConn) Watch(cond Cond, f func(Cond)) func() {
	var events int16
	for _, m := range condMap {
		if cond&m.c != 0 {
			events |= m.p
		}
	}
	return r.L2Conn.Watch(events, func(revents int16) {
		var got Cond
		for _, m := range condMap {
			if revents&m.p != 0 {
				got |= m.c
			}
		}
		f(got)
	})
}

func (r *l2RawConn) Handle() (uint16, error) {
	h, _, err := r.ConnInfo()
	return h, err
}
