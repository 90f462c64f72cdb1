package adapter

import (
	"sync"

	bluez "github.com/thentenaar/bluez-dinovo"
)

// Call is a method invocation awaiting its reply. The first Return or
// Fail wins; later ones are dropped.
type Call struct {
	Sender string

	once sync.Once
	done chan struct{}
	vals []interface{}
	err  *bluez.Error
}

// NewCall returns a call made by sender.
func NewCall(sender string) *Call {
	return &Call{Sender: sender, done: make(chan struct{})}
}

// Return replies with vals.
func (c *Call) Return(vals ...interface{}) {
	c.once.Do(func() {
		c.vals = vals
		close(c.done)
	})
}

// Fail replies with err.
func (c *Call) Fail(err *bluez.Error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Done is closed once the call has been answered.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Replied reports whether the call has been answered.
func (c *Call) Replied() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Result returns the reply. It is only meaningful after Done.
func (c *Call) Result() ([]interface{}, *bluez.Error) {
	return c.vals, c.err
}
