package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
)

// activeConn mirrors one entry of the controller connection table.
type activeConn struct {
	addr   bluez.Addr
	handle uint16
}

func (a *Adapter) addConn(addr bluez.Addr, handle uint16) {
	for i := range a.conns {
		if a.conns[i].addr == addr {
			a.conns[i].handle = handle
			return
		}
	}
	a.conns = append(a.conns, activeConn{addr: addr, handle: handle})
}

func (a *Adapter) findConn(addr bluez.Addr) (activeConn, bool) {
	for _, c := range a.conns {
		if c.addr == addr {
			return c, true
		}
	}
	return activeConn{}, false
}

func (a *Adapter) findConnByHandle(handle uint16) (activeConn, bool) {
	for _, c := range a.conns {
		if c.handle == handle {
			return c, true
		}
	}
	return activeConn{}, false
}

func (a *Adapter) removeConn(handle uint16) {
	for i, c := range a.conns {
		if c.handle == handle {
			a.conns = append(a.conns[:i], a.conns[i+1:]...)
			return
		}
	}
}

// loadConns snapshots the kernel connection table.
func (a *Adapter) loadConns() {
	cc, err := a.ctl.Connections()
	if err != nil {
		a.logger.Errorf("can't get connection list: %v", err)
		return
	}
	for _, c := range cc {
		a.addConn(c.Addr, c.Handle)
	}
}
