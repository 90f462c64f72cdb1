package adapter

import (
	bluez "github.com/thentenaar/bluez-dinovo"
)

// session is one client's claim on a minimum mode.
type session struct {
	owner string
	mode  bluez.Mode
	watch uint
}

func (a *Adapter) findSession(owner string) *session {
	for _, s := range a.sessions {
		if s.owner == owner {
			return s
		}
	}
	return nil
}

// RequestMode holds the adapter at mode or above until ReleaseMode or
// until the caller leaves the bus.
func (a *Adapter) RequestMode(c *Call, value string) {
	mode := a.parseMode(value)
	if mode != bluez.ModeConnectable && mode != bluez.ModeDiscoverable {
		c.Fail(bluez.ErrInvalidArguments("Invalid mode"))
		return
	}
	if a.agent == nil {
		c.Fail(bluez.ErrFailed("No agent registered"))
		return
	}
	if a.findSession(c.Sender) != nil {
		c.Fail(bluez.ErrFailed("Mode already requested"))
		return
	}

	s := &session{owner: c.Sender, mode: mode}
	s.watch = a.watchName(c.Sender, func() {
		s.watch = 0
		a.logger.Debugf("mode requestor %s exited", s.owner)
		a.endSession(s)
	})

	if len(a.sessions) == 0 {
		a.globalMode = a.mode
	}
	a.sessions = append(a.sessions, s)

	if a.mode >= mode {
		c.Return()
		return
	}
	a.confirmMode(c, mode, s)
}

// ReleaseMode ends the caller's session.
func (a *Adapter) ReleaseMode(c *Call) {
	s := a.findSession(c.Sender)
	if s == nil {
		c.Fail(bluez.ErrFailed("No Mode to release"))
		return
	}
	a.endSession(s)
	c.Return()
}

// endSession removes s. It is a no-op if s is already gone.
func (a *Adapter) endSession(s *session) {
	i := -1
	for j, x := range a.sessions {
		if x == s {
			i = j
			break
		}
	}
	if i < 0 {
		return
	}
	a.sessions = append(a.sessions[:i], a.sessions[i+1:]...)
	a.unwatch(s.watch)
	s.watch = 0

	if len(a.sessions) != 0 {
		return
	}

	a.logger.Debugf("falling back to %s mode", a.globalMode)
	if a.mode != a.globalMode {
		if err := a.setMode(a.globalMode); err != nil {
			a.logger.Errorf("can't restore %s mode: %v", a.globalMode, err)
		}
	} else if a.scanMode&bluez.ScanInquiry != 0 {
		// sessions suspended the timeout
		a.startDiscovTimer()
	}
}

// modeConfirm is a mode change waiting for the agent's answer.
type modeConfirm struct {
	call  *Call
	mode  bluez.Mode
	s     *session
	agent Agent
}

// confirmMode asks the agent before moving to mode. s is the session the
// request belongs to, or nil. Without an agent the change is declined
// silently.
func (a *Adapter) confirmMode(c *Call, mode bluez.Mode, s *session) {
	ag := a.agent
	if ag == nil {
		c.Return()
		return
	}

	mc := &modeConfirm{call: c, mode: mode, s: s, agent: ag}
	a.confirms = append(a.confirms, mc)
	ag.ConfirmModeChange(mode.String(), func(err *bluez.Error) {
		a.loop.Post(func() { a.confirmModeDone(mc, err) })
	})
}

func (a *Adapter) confirmModeDone(mc *modeConfirm, err *bluez.Error) {
	if !a.removeConfirm(mc) {
		return
	}

	if err != nil {
		mc.call.Fail(err)
		if mc.s != nil {
			a.endSession(mc.s)
		}
		return
	}

	if err := a.setMode(mc.mode); err != nil {
		mc.call.Fail(err)
		return
	}
	mc.call.Return()
}

func (a *Adapter) removeConfirm(mc *modeConfirm) bool {
	for i, x := range a.confirms {
		if x == mc {
			a.confirms = append(a.confirms[:i], a.confirms[i+1:]...)
			return true
		}
	}
	return false
}

// failConfirms answers every confirmation still waiting on ag.
func (a *Adapter) failConfirms(ag Agent) {
	var left []*modeConfirm
	var failed []*modeConfirm
	for _, mc := range a.confirms {
		if mc.agent == ag {
			failed = append(failed, mc)
		} else {
			left = append(left, mc)
		}
	}
	a.confirms = left

	for _, mc := range failed {
		mc.call.Fail(bluez.ErrFailed("Agent removed"))
		if mc.s != nil {
			a.endSession(mc.s)
		}
	}
}
