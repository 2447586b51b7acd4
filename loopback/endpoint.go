package loopback

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"

	"github.com/arloliu/secs-simulator/hsms"
	"github.com/arloliu/secs-simulator/internal/pool"
	"github.com/arloliu/secs-simulator/logger"
	"github.com/arloliu/secs-simulator/simulator"
)

// Endpoint is one side of an in-memory connection. It implements simulator.Communicator.
type Endpoint struct {
	pair     *pair
	role     string
	deviceID uint16
	cfg      *Config
	logger   logger.Logger
	opened   *atomic.Bool

	sessMu sync.RWMutex
	sess   *session

	// replyChans holds the reply channel of each sent primary waiting for its reply, keyed by
	// the message id (system bytes).
	replyChans *xsync.MapOf[uint32, chan *hsms.DataMessage]

	handlerMu     sync.RWMutex
	stateHandlers []simulator.ConnStateHandler
	dataHandlers  []simulator.DataMessageHandler

	metrics ConnectionMetrics
}

var _ simulator.Communicator = (*Endpoint)(nil)

func newEndpoint(p *pair, role string, deviceID uint16, cfg *Config) *Endpoint {
	return &Endpoint{
		pair:       p,
		role:       role,
		deviceID:   deviceID,
		cfg:        cfg,
		logger:     cfg.logger.With("role", role),
		opened:     atomic.NewBool(false),
		replyChans: xsync.NewMapOf[uint32, chan *hsms.DataMessage](),
	}
}

// Role returns "equipment" or "host".
func (e *Endpoint) Role() string { return e.role }

// Peer returns the other endpoint of the pair.
func (e *Endpoint) Peer() *Endpoint { return e.pair.peerOf(e) }

// Metrics returns the metrics of the endpoint.
func (e *Endpoint) Metrics() *ConnectionMetrics { return &e.metrics }

// DeviceID returns the device id of the endpoint.
func (e *Endpoint) DeviceID() uint16 { return e.deviceID }

// IsOpen reports whether the endpoint is open.
func (e *Endpoint) IsOpen() bool { return e.opened.Load() }

// IsConnected reports whether the endpoint is connected to its peer.
func (e *Endpoint) IsConnected() bool { return e.currentSession() != nil }

// Open opens the endpoint. The endpoints get connected once the peer is open too.
func (e *Endpoint) Open(_ context.Context) error {
	if !e.opened.CompareAndSwap(false, true) {
		return nil
	}
	e.logger.Debug("endpoint opened")

	e.pair.connect()

	return nil
}

// Close closes the endpoint and its connection, if any.
func (e *Endpoint) Close() error {
	if !e.opened.CompareAndSwap(true, false) {
		return nil
	}
	e.logger.Debug("endpoint closed")

	e.pair.disconnect(nil)

	return nil
}

// AddConnStateHandler adds a handler of connectivity changes.
func (e *Endpoint) AddConnStateHandler(handler simulator.ConnStateHandler) {
	e.handlerMu.Lock()
	defer e.handlerMu.Unlock()

	e.stateHandlers = append(e.stateHandlers, handler)
}

// AddDataMessageHandler adds a handler of received data messages.
//
// Handlers are invoked from a single goroutine per connection, in the order the messages were
// received. Replies to primaries sent by Send are returned by Send and not passed to the handlers.
func (e *Endpoint) AddDataMessageHandler(handler simulator.DataMessageHandler) {
	e.handlerMu.Lock()
	defer e.handlerMu.Unlock()

	e.dataHandlers = append(e.dataHandlers, handler)
}

// Send sends msg to the peer.
//
// If msg expects a reply, Send waits for it until the T3 timeout and returns hsms.ErrT3Timeout
// when it elapses. It returns hsms.ErrConnClosed when the endpoint isn't connected or gets
// disconnected while waiting.
func (e *Endpoint) Send(ctx context.Context, msg *hsms.DataMessage) (*hsms.DataMessage, error) {
	sess := e.currentSession()
	if sess == nil {
		return nil, hsms.ErrConnClosed
	}

	if !msg.WaitBit() {
		return nil, e.write(ctx, sess, msg)
	}

	id := msg.ID()
	replyChan := make(chan *hsms.DataMessage, 1)
	e.replyChans.Store(id, replyChan)
	defer e.replyChans.Delete(id)

	if err := e.write(ctx, sess, msg); err != nil {
		return nil, err
	}

	e.metrics.DataMsgInflightCount.Add(1)
	defer e.metrics.DataMsgInflightCount.Add(-1)

	t3Timer := pool.GetTimer(e.cfg.t3Timeout)
	defer pool.PutTimer(t3Timer)

	select {
	case reply := <-replyChan:
		return reply, nil

	case <-t3Timer.C:
		e.metrics.T3TimeoutCount.Add(1)
		e.logger.Warn("T3 reply timeout", hsms.MsgInfo(msg, "timeout", e.cfg.t3Timeout)...)

		return nil, hsms.ErrT3Timeout

	case <-sess.ctx.Done():
		return nil, hsms.ErrConnClosed

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply sends reply as the reply of primary.
func (e *Endpoint) Reply(ctx context.Context, primary *hsms.DataMessage, reply *hsms.DataMessage) error {
	sess := e.currentSession()
	if sess == nil {
		return hsms.ErrConnClosed
	}

	reply.SetSessionID(primary.SessionID())
	if err := reply.SetSystemBytes(primary.SystemBytes()); err != nil {
		return err
	}

	return e.write(ctx, sess, reply)
}

func (e *Endpoint) write(ctx context.Context, sess *session, msg *hsms.DataMessage) error {
	frame, err := msg.ToBytes()
	if err != nil {
		e.metrics.DataMsgErrCount.Add(1)
		return err
	}

	req := &sendRequest{msg: msg, frame: frame, errCh: make(chan error, 1)}

	select {
	case sess.sendCh <- req:
	case <-sess.ctx.Done():
		return hsms.ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.errCh:
		return err
	case <-sess.ctx.Done():
		return hsms.ErrConnClosed
	}
}

func (e *Endpoint) currentSession() *session {
	e.sessMu.RLock()
	defer e.sessMu.RUnlock()

	return e.sess
}

// attach starts a session over conn. It's called with the pair locked.
func (e *Endpoint) attach(conn net.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		sendCh: make(chan *sendRequest, e.cfg.senderQueueSize),
		dataCh: make(chan *hsms.DataMessage, e.cfg.dataMsgQueueSize),
	}

	e.sessMu.Lock()
	e.sess = sess
	e.sessMu.Unlock()

	go e.senderLoop(sess)
	go e.receiverLoop(sess)
	go e.dispatchLoop(sess)
}

// detach stops the current session. It's called with the pair locked.
func (e *Endpoint) detach() {
	e.sessMu.Lock()
	sess := e.sess
	e.sess = nil
	e.sessMu.Unlock()

	if sess == nil {
		return
	}

	sess.cancel()
	if err := sess.conn.Close(); err != nil {
		e.logger.Debug("close pipe", "error", err)
	}
}

func (e *Endpoint) senderLoop(sess *session) {
	for {
		select {
		case <-sess.ctx.Done():
			return

		case req := <-sess.sendCh:
			if _, err := sess.conn.Write(req.frame); err != nil {
				e.metrics.DataMsgErrCount.Add(1)
				req.errCh <- fmt.Errorf("%w: %w", hsms.ErrConnClosed, err)

				if sess.ctx.Err() == nil {
					e.logger.Error("failed to write message", hsms.MsgInfo(req.msg, "error", err)...)
					e.pair.disconnect(sess)
				}

				return
			}

			e.metrics.DataMsgSendCount.Add(1)
			e.logger.Debug("message sent", hsms.MsgInfo(req.msg)...)
			req.errCh <- nil
		}
	}
}

func (e *Endpoint) receiverLoop(sess *session) {
	reader := hsms.NewMessageReader(sess.conn, e.cfg.t8Timeout)

	for {
		msg, rawBody, err := reader.ReadMessage()
		if err != nil {
			if rawBody != nil {
				e.metrics.DataMsgErrCount.Add(1)
				e.logger.Warn("dropped undecodable message", "error", err, "raw", fmt.Sprintf("% X", rawBody))

				continue
			}

			if sess.ctx.Err() == nil {
				e.logger.Error("failed to read message", "error", err)
				e.pair.disconnect(sess)
			}

			return
		}

		e.metrics.DataMsgRecvCount.Add(1)
		e.logger.Debug("message received", hsms.MsgInfo(msg)...)

		if !msg.IsPrimary() && e.replyToSender(msg) {
			continue
		}

		select {
		case sess.dataCh <- msg:
		case <-sess.ctx.Done():
			return
		}
	}
}

// replyToSender passes a reply to the Send waiting for it and reports whether one was waiting.
func (e *Endpoint) replyToSender(msg *hsms.DataMessage) bool {
	replyChan, ok := e.replyChans.LoadAndDelete(msg.ID())
	if !ok {
		return false
	}

	select {
	case replyChan <- msg:
	default:
	}

	return true
}

func (e *Endpoint) dispatchLoop(sess *session) {
	for {
		select {
		case <-sess.ctx.Done():
			return

		case msg := <-sess.dataCh:
			e.handlerMu.RLock()
			handlers := e.dataHandlers
			e.handlerMu.RUnlock()

			for _, handler := range handlers {
				handler(msg)
			}
		}
	}
}

func (e *Endpoint) notifyConnState(connected bool) {
	e.logger.Info("connection state changed", "connected", connected)

	e.handlerMu.RLock()
	handlers := e.stateHandlers
	e.handlerMu.RUnlock()

	for _, handler := range handlers {
		handler(connected)
	}
}
