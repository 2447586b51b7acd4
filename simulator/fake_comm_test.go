package simulator

import (
	"context"
	"sync"

	"github.com/arloliu/secs-simulator/hsms"
)

type fakeReply struct {
	primary *hsms.DataMessage
	reply   *hsms.DataMessage
}

// fakeComm is an in-memory Communicator recording what the simulator sends.
type fakeComm struct {
	mu            sync.Mutex
	deviceID      uint16
	openCount     int
	closeCount    int
	noConnect     bool
	sent          []*hsms.DataMessage
	replies       []fakeReply
	sendFunc      func(msg *hsms.DataMessage) (*hsms.DataMessage, error)
	stateHandlers []ConnStateHandler
	dataHandlers  []DataMessageHandler
}

var _ Communicator = (*fakeComm)(nil)

func newFakeComm(deviceID uint16) *fakeComm {
	return &fakeComm{deviceID: deviceID}
}

func (c *fakeComm) Open(_ context.Context) error {
	c.mu.Lock()
	c.openCount++
	noConnect := c.noConnect
	c.mu.Unlock()

	if !noConnect {
		c.setConnected(true)
	}

	return nil
}

func (c *fakeComm) Close() error {
	c.mu.Lock()
	c.closeCount++
	c.mu.Unlock()

	c.setConnected(false)

	return nil
}

func (c *fakeComm) DeviceID() uint16 { return c.deviceID }

func (c *fakeComm) Send(_ context.Context, msg *hsms.DataMessage) (*hsms.DataMessage, error) {
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	sendFunc := c.sendFunc
	c.mu.Unlock()

	if sendFunc != nil {
		return sendFunc(msg)
	}

	return nil, nil
}

func (c *fakeComm) Reply(_ context.Context, primary *hsms.DataMessage, reply *hsms.DataMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.replies = append(c.replies, fakeReply{primary: primary, reply: reply})

	return nil
}

func (c *fakeComm) AddConnStateHandler(handler ConnStateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateHandlers = append(c.stateHandlers, handler)
}

func (c *fakeComm) AddDataMessageHandler(handler DataMessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataHandlers = append(c.dataHandlers, handler)
}

func (c *fakeComm) setConnected(connected bool) {
	c.mu.Lock()
	handlers := append([]ConnStateHandler(nil), c.stateHandlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(connected)
	}
}

func (c *fakeComm) receive(msg *hsms.DataMessage) {
	c.mu.Lock()
	handlers := append([]DataMessageHandler(nil), c.dataHandlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (c *fakeComm) sentMessages() []*hsms.DataMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*hsms.DataMessage(nil), c.sent...)
}

func (c *fakeComm) sentReplies() []fakeReply {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]fakeReply(nil), c.replies...)
}
