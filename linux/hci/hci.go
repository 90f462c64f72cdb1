package hci

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci/evt"
)

// Command is an HCI command packet body.
type Command interface {
	OpCode() int
	Len() int
	Marshal([]byte) error
}

// CommandRP decodes the return parameters of a command.
type CommandRP interface {
	Unmarshal(b []byte) error
}

// EventHandler receives every event except Command Complete and Command
// Status. It runs on the packet processing goroutine and must not block.
type EventHandler func(code int, params []byte)

// request is a command waiting for its reply.
type request struct {
	op    int
	reply chan []byte
}

// NewHCI returns a command gateway; call Init to open the transport.
func NewHCI(opts ...Option) (*HCI, error) {
	h := &HCI{
		credits:    make(chan []byte, maxCredits),
		pending:    make(map[int]*request),
		cmdTimeout: defaultCmdTimeout,
		done:       make(chan bool),
		rx:         make(chan []byte, rxQueueSize),
		logger:     bluez.GetLogger().ChildLogger(map[string]interface{}{"pkg": "hci"}),
	}
	if err := h.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}
	return h, nil
}

// HCI is the synchronous command channel to one controller.
type HCI struct {
	transport transport
	rw        io.ReadWriteCloser

	// one buffer per command the controller accepts [Vol 2, Part E, 4.4]
	credits   chan []byte
	muPending sync.Mutex
	pending   map[int]*request

	muEvt sync.RWMutex
	evth  EventHandler

	cmdTimeout   time.Duration
	errorHandler func(error)

	muErr sync.Mutex
	err   error

	muClose sync.Mutex
	done    chan bool

	rx     chan []byte
	logger bluez.Logger
}

// Init opens the transport and starts the packet loops.
func (h *HCI) Init() error {
	if h.rw == nil {
		rw, err := getTransport(h.transport)
		if err != nil {
			return err
		}
		h.rw = rw
	}

	h.grantCredits(1)

	go h.readLoop()
	go h.dispatchLoop()
	return nil
}

// SetEventHandler installs the receiver for asynchronous events.
func (h *HCI) SetEventHandler(f EventHandler) {
	h.muEvt.Lock()
	h.evth = f
	h.muEvt.Unlock()
}

// Close stops the gateway and closes the transport. It is safe to call
// more than once.
func (h *HCI) Close() error {
	h.muClose.Lock()
	defer h.muClose.Unlock()

	if !h.isOpen() {
		return nil
	}
	close(h.done)

	if h.rw == nil {
		return nil
	}
	return h.rw.Close()
}

// Done is closed once the gateway stops.
func (h *HCI) Done() <-chan bool {
	return h.done
}

// Error returns the error that stopped the gateway, if any.
func (h *HCI) Error() error {
	h.muErr.Lock()
	defer h.muErr.Unlock()
	return h.err
}

func (h *HCI) setErr(err error) {
	h.muErr.Lock()
	if h.err == nil {
		h.err = err
	}
	h.muErr.Unlock()
}

// Option sets the options specified.
func (h *HCI) Option(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return err
		}
	}
	return nil
}

func (h *HCI) isOpen() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Send issues c and waits for its Command Complete or Command Status.
// A non-zero status is returned as ErrCommand; r may be nil.
//
// A failed write is returned to the caller and leaves the gateway open:
// the kernel refuses commands for a device that is down, and the device
// may come back up.
func (h *HCI) Send(c Command, r CommandRP) error {
	rp, err := h.send(c)
	if err != nil {
		return err
	}
	if len(rp) > 0 && rp[0] != 0x00 {
		return ErrCommand(rp[0])
	}
	if r == nil {
		return nil
	}
	return r.Unmarshal(rp)
}

func (h *HCI) send(c Command) ([]byte, error) {
	if !h.isOpen() || h.Error() != nil {
		return nil, ErrClosed
	}

	op := c.OpCode()
	req, err := h.addPending(op)
	if err != nil {
		return nil, err
	}
	defer h.removePending(op)

	b, err := h.takeCredit()
	if err != nil {
		return nil, err
	}

	n := 4 + c.Len()
	b[0] = pktTypeCommand
	b[1] = byte(op)
	b[2] = byte(op >> 8)
	b[3] = byte(c.Len())
	if err := c.Marshal(b[4:]); err != nil {
		h.returnCredit(b)
		return nil, errors.Wrapf(err, "can't marshal 0x%04X", op)
	}

	if err := h.write(b[:n]); err != nil {
		h.returnCredit(b)
		return nil, errors.Wrapf(err, "can't send 0x%04X", op)
	}

	select {
	case rp := <-req.reply:
		return rp, nil
	case <-h.done:
		return nil, ErrClosed
	case <-time.After(h.cmdTimeout):
		h.logger.Errorf("no response to command 0x%04X [% X]", op, b[:n])
		h.dispatchError(ErrTimeout)
		return nil, ErrTimeout
	}
}

func (h *HCI) write(b []byte) error {
	n, err := h.rw.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(b))
	}
	return nil
}

// addPending registers op. Only one command per opcode may be in flight.
func (h *HCI) addPending(op int) (*request, error) {
	h.muPending.Lock()
	defer h.muPending.Unlock()

	if _, ok := h.pending[op]; ok {
		return nil, fmt.Errorf("command with opcode 0x%04X pending", op)
	}
	req := &request{op: op, reply: make(chan []byte, 1)}
	h.pending[op] = req
	return req, nil
}

func (h *HCI) removePending(op int) {
	h.muPending.Lock()
	delete(h.pending, op)
	h.muPending.Unlock()
}

func (h *HCI) findPending(op int) *request {
	h.muPending.Lock()
	defer h.muPending.Unlock()
	return h.pending[op]
}

func (h *HCI) takeCredit() ([]byte, error) {
	select {
	case b := <-h.credits:
		return b, nil
	case <-h.done:
		return nil, ErrClosed
	case <-time.After(creditTimeout):
		err := errors.New("controller accepts no commands")
		h.dispatchError(err)
		return nil, err
	}
}

// returnCredit gives back a buffer the controller never saw.
func (h *HCI) returnCredit(b []byte) {
	select {
	case h.credits <- b:
	default:
	}
}

// grantCredits tops the credit pool up to n.
func (h *HCI) grantCredits(n int) {
	if n > maxCredits {
		h.logger.Debugf("controller grants %d commands, using %d", n, maxCredits)
		n = maxCredits
	}

	for len(h.credits) < n {
		select {
		case <-h.done:
			return
		case h.credits <- make([]byte, cmdBufSize):
		default:
			return
		}
	}
}

func (h *HCI) readLoop() {
	defer close(h.rx)

	buf := make([]byte, 4096)
	for {
		n, err := h.rw.Read(buf)
		if err != nil {
			// io.EOF is kept as is so callers can tell a clean shutdown
			if err != io.EOF {
				err = errors.Wrap(err, "read")
			}
			h.setErr(err)
			return
		}

		if n == 0 {
			if !h.isOpen() {
				return
			}
			continue
		}

		p := make([]byte, n)
		copy(p, buf)
		select {
		case h.rx <- p:
		case <-h.done:
			return
		}
	}
}

func (h *HCI) dispatchLoop() {
	defer h.shutdown()

	for {
		select {
		case <-h.done:
			h.setErr(io.EOF)
			return
		case p, ok := <-h.rx:
			if !ok {
				h.setErr(io.EOF)
				return
			}
			if err := h.handlePacket(p); err != nil {
				h.logger.Debug("hci: ", err)
			}
		}
	}
}

func (h *HCI) shutdown() {
	if err := h.Error(); err != nil {
		h.dispatchError(err)
	}
	h.Close()

	h.muPending.Lock()
	h.pending = make(map[int]*request)
	h.muPending.Unlock()
}

func (h *HCI) handlePacket(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	typ, body := b[0], b[1:]
	switch typ {
	case pktTypeEvent:
		return h.handleEvent(body)
	case pktTypeACLData, pktTypeSCOData:
		return fmt.Errorf("ignoring data packet type 0x%02X", typ)
	case pktTypeCommand, pktTypeVendor:
		return fmt.Errorf("ignoring packet type 0x%02X: % X", typ, body)
	default:
		return fmt.Errorf("bad packet type 0x%02X: % X", typ, body)
	}
}

func (h *HCI) handleEvent(b []byte) error {
	if len(b) < 2 {
		return fmt.Errorf("short event packet: % X", b)
	}

	code, plen := int(b[0]), int(b[1])
	params := b[2:]
	if plen != len(params) {
		return fmt.Errorf("event 0x%02X: length %d, have %d", code, plen, len(params))
	}

	switch code {
	case evt.CommandCompleteCode:
		return h.handleCommandComplete(params)
	case evt.CommandStatusCode:
		return h.handleCommandStatus(params)
	case evt.VendorCode:
		return nil
	}

	h.muEvt.RLock()
	f := h.evth
	h.muEvt.RUnlock()
	if f == nil {
		return fmt.Errorf("no handler for event 0x%02X", code)
	}

	f(code, append([]byte(nil), params...))
	return nil
}

func (h *HCI) handleCommandComplete(b []byte) error {
	e := evt.CommandComplete(b)
	h.grantCredits(int(e.NumHCICommandPackets()))

	// opcode 0 only updates the credit count
	op := int(e.CommandOpcode())
	if op == 0 {
		return nil
	}

	req := h.findPending(op)
	if req == nil {
		return fmt.Errorf("command complete for 0x%04X, nothing pending", op)
	}

	rp, err := e.ReturnParametersWErr()
	if err != nil {
		return errors.Wrap(err, "command complete")
	}
	h.deliver(req, rp)
	return nil
}

func (h *HCI) handleCommandStatus(b []byte) error {
	e := evt.CommandStatus(b)
	if !e.Valid() {
		err := fmt.Errorf("invalid command status: % X", b)
		h.dispatchError(err)
		return err
	}

	h.grantCredits(int(e.NumHCICommandPackets()))

	op := int(e.CommandOpcode())
	if op == 0 {
		return nil
	}

	req := h.findPending(op)
	if req == nil {
		return fmt.Errorf("command status for 0x%04X, nothing pending", op)
	}
	h.deliver(req, []byte{e.Status()})
	return nil
}

func (h *HCI) deliver(req *request, rp []byte) {
	select {
	case req.reply <- rp:
	default:
	}
}

func (h *HCI) dispatchError(err error) {
	switch {
	case h.errorHandler == nil:
		h.logger.Error(err)
	case !h.isOpen():
		h.logger.Debug("hci closing: ", err)
	default:
		h.errorHandler(err)
	}
}
