package macro

import (
	"context"
	"sync"

	"github.com/arloliu/secs-simulator/hsms"
	"github.com/arloliu/secs-simulator/simulator"
)

// fakeDriver records the calls of an executor and lets tests deliver messages and
// connection changes.
type fakeDriver struct {
	mu            sync.Mutex
	connected     bool
	connectOnOpen bool
	calls         []string
	sendErr       error
	nextID        int
	recvHandlers  map[int]func(*hsms.DataMessage)
	connHandlers  map[int]simulator.ConnStateHandler

	// recvAdded and connAdded receive a value whenever a handler is added.
	recvAdded chan struct{}
	connAdded chan struct{}
}

var _ Driver = (*fakeDriver)(nil)

func newFakeDriver(connected bool) *fakeDriver {
	return &fakeDriver{
		connected:     connected,
		connectOnOpen: true,
		recvHandlers:  make(map[int]func(*hsms.DataMessage)),
		connHandlers:  make(map[int]simulator.ConnStateHandler),
		recvAdded:     make(chan struct{}, 16),
		connAdded:     make(chan struct{}, 16),
	}
}

func (d *fakeDriver) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, call)
}

func (d *fakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.calls...)
}

func (d *fakeDriver) Open(_ context.Context) error {
	d.record("open")

	d.mu.Lock()
	connect := d.connectOnOpen
	d.mu.Unlock()

	if connect {
		d.setConnected(true)
	}

	return nil
}

func (d *fakeDriver) Close() error {
	d.record("close")
	d.setConnected(false)

	return nil
}

func (d *fakeDriver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.connected
}

func (d *fakeDriver) WaitConnected(ctx context.Context) error {
	changed := make(chan bool, 1)
	remove := d.AddConnStateHandler(func(connected bool) {
		select {
		case changed <- connected:
		default:
		}
	})
	defer remove()

	if d.IsConnected() {
		return nil
	}

	select {
	case connected := <-changed:
		if connected {
			return nil
		}
		return simulator.ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *fakeDriver) SendSML(_ context.Context, alias string) (*hsms.DataMessage, error) {
	d.record("send-sml " + alias)

	d.mu.Lock()
	defer d.mu.Unlock()

	return nil, d.sendErr
}

func (d *fakeDriver) SendDirect(_ context.Context, text string) (*hsms.DataMessage, error) {
	d.record("send-direct " + text)

	d.mu.Lock()
	defer d.mu.Unlock()

	return nil, d.sendErr
}

func (d *fakeDriver) AddReceivedHandler(handler func(*hsms.DataMessage)) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.recvHandlers[id] = handler
	d.mu.Unlock()

	select {
	case d.recvAdded <- struct{}{}:
	default:
	}

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		delete(d.recvHandlers, id)
	}
}

func (d *fakeDriver) AddConnStateHandler(handler simulator.ConnStateHandler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.connHandlers[id] = handler
	d.mu.Unlock()

	select {
	case d.connAdded <- struct{}{}:
	default:
	}

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		delete(d.connHandlers, id)
	}
}

func (d *fakeDriver) receivedHandlerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.recvHandlers)
}

// receive delivers msg to the received handlers.
func (d *fakeDriver) receive(msg *hsms.DataMessage) {
	d.mu.Lock()
	handlers := make([]func(*hsms.DataMessage), 0, len(d.recvHandlers))
	for _, h := range d.recvHandlers {
		handlers = append(handlers, h)
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (d *fakeDriver) setConnected(connected bool) {
	d.mu.Lock()
	d.connected = connected
	handlers := make([]simulator.ConnStateHandler, 0, len(d.connHandlers))
	for _, h := range d.connHandlers {
		handlers = append(handlers, h)
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h(connected)
	}
}
