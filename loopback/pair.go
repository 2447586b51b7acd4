package loopback

import (
	"context"
	"net"
	"sync"

	"github.com/arloliu/secs-simulator/hsms"
)

// pair joins two endpoints. The endpoints are connected while both are open.
type pair struct {
	mu        sync.Mutex
	a, b      *Endpoint
	connected bool
}

// NewPair creates two endpoints connected to each other: the equipment endpoint with device id
// equipID and the host endpoint with device id hostID.
//
// Messages are exchanged as encoded HSMS frames over an in-memory net.Pipe, which is created
// when both endpoints are open and closed when either endpoint closes.
func NewPair(equipID uint16, hostID uint16, opts ...Option) (equip *Endpoint, host *Endpoint, err error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, nil, err
	}

	p := &pair{}
	p.a = newEndpoint(p, "equipment", equipID, cfg)
	p.b = newEndpoint(p, "host", hostID, cfg)

	return p.a, p.b, nil
}

func (p *pair) peerOf(e *Endpoint) *Endpoint {
	if e == p.a {
		return p.b
	}

	return p.a
}

// connect connects the endpoints if both are open.
func (p *pair) connect() {
	p.mu.Lock()
	if p.connected || !p.a.opened.Load() || !p.b.opened.Load() {
		p.mu.Unlock()
		return
	}

	connA, connB := net.Pipe()
	p.a.attach(connA)
	p.b.attach(connB)
	p.connected = true
	p.mu.Unlock()

	p.a.metrics.ConnectCount.Add(1)
	p.b.metrics.ConnectCount.Add(1)
	p.a.notifyConnState(true)
	p.b.notifyConnState(true)
}

// disconnect tears down the connection. A non-nil sess disconnects only if sess is still the
// session of its endpoint, so a failing session of an earlier connection is ignored.
func (p *pair) disconnect(sess *session) {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return
	}

	if sess != nil && p.a.currentSession() != sess && p.b.currentSession() != sess {
		p.mu.Unlock()
		return
	}

	p.a.detach()
	p.b.detach()
	p.connected = false
	p.mu.Unlock()

	p.a.notifyConnState(false)
	p.b.notifyConnState(false)
}

// session is one connection of an endpoint.
type session struct {
	conn   net.Conn
	ctx    context.Context
	cancel context.CancelFunc
	sendCh chan *sendRequest
	dataCh chan *hsms.DataMessage
}

type sendRequest struct {
	msg   *hsms.DataMessage
	frame []byte
	errCh chan error
}
