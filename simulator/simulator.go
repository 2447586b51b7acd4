package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/arloliu/secs-simulator/hsms"
	"github.com/arloliu/secs-simulator/logger"
	"github.com/arloliu/secs-simulator/sml"
)

// Simulator answers and sends SECS-II messages through a Communicator.
//
// It keeps the received primaries that expect a reply until a matching reply is sent, replies
// automatically from its template pool, and reports protocol errors with SxF0 and S9Fy messages
// according to its auto-reply policies.
type Simulator struct {
	cfg     *Config
	comm    Communicator
	pool    *TemplatePool
	state   *ConnState
	metrics *Metrics
	logger  logger.Logger

	autoReply     *atomic.Bool
	autoReplyS9Fy *atomic.Bool
	autoReplySxF0 *atomic.Bool

	openMu sync.Mutex
	opened bool

	pendingMu sync.Mutex
	pending   []*hsms.DataMessage

	received observers[*hsms.DataMessage]
	sent     observers[*hsms.DataMessage]
}

// New creates a simulator over comm. A nil cfg uses the default configuration.
//
// The SML files of the configuration are loaded into the template pool.
func New(comm Communicator, cfg *Config) (*Simulator, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}

	metrics, err := NewMetrics(cfg.Registerer())
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	l := cfg.Logger().With("device_id", comm.DeviceID())
	s := &Simulator{
		cfg:           cfg,
		comm:          comm,
		pool:          NewTemplatePool(),
		state:         NewConnState(l),
		metrics:       metrics,
		logger:        l,
		autoReply:     atomic.NewBool(cfg.AutoReply()),
		autoReplyS9Fy: atomic.NewBool(cfg.AutoReplyS9Fy()),
		autoReplySxF0: atomic.NewBool(cfg.AutoReplySxF0()),
	}

	for _, path := range cfg.SMLFiles() {
		aliases, err := s.pool.LoadFile(path)
		if err != nil {
			return nil, err
		}
		s.logger.Info("SML file loaded", "path", path, "aliases", aliases)
	}

	comm.AddConnStateHandler(s.onConnStateChange)
	comm.AddDataMessageHandler(s.onDataMessage)

	return s, nil
}

// Config returns the configuration the simulator was created with.
func (s *Simulator) Config() *Config { return s.cfg }

// Pool returns the template pool.
func (s *Simulator) Pool() *TemplatePool { return s.pool }

// State returns the connection state.
func (s *Simulator) State() *ConnState { return s.state }

// Metrics returns the simulator metrics.
func (s *Simulator) Metrics() *Metrics { return s.metrics }

// Logger returns the simulator logger.
func (s *Simulator) Logger() logger.Logger { return s.logger }

// DeviceID returns the device id of the communicator.
func (s *Simulator) DeviceID() uint16 { return s.comm.DeviceID() }

func (s *Simulator) AutoReply() bool     { return s.autoReply.Load() }
func (s *Simulator) AutoReplyS9Fy() bool { return s.autoReplyS9Fy.Load() }
func (s *Simulator) AutoReplySxF0() bool { return s.autoReplySxF0.Load() }

// SetAutoReply enables or disables template auto-reply.
func (s *Simulator) SetAutoReply(val bool) { s.autoReply.Store(val) }

// SetAutoReplyS9Fy enables or disables the S9Fy error reports.
func (s *Simulator) SetAutoReplyS9Fy(val bool) { s.autoReplyS9Fy.Store(val) }

// SetAutoReplySxF0 enables or disables the SxF0 abort replies.
func (s *Simulator) SetAutoReplySxF0(val bool) { s.autoReplySxF0.Store(val) }

// AddReceivedHandler adds a handler invoked for every received data message, including the
// replies returned by Send. It returns a function removing the handler.
//
// Received primaries are notified after they were auto-replied or registered as pending.
func (s *Simulator) AddReceivedHandler(handler func(*hsms.DataMessage)) (remove func()) {
	return s.received.add(handler)
}

// AddSentHandler adds a handler invoked for every sent data message. It returns a function
// removing the handler.
func (s *Simulator) AddSentHandler(handler func(*hsms.DataMessage)) (remove func()) {
	return s.sent.add(handler)
}

// AddConnStateHandler adds a handler invoked on connectivity changes. It returns a function
// removing the handler.
func (s *Simulator) AddConnStateHandler(handler ConnStateHandler) (remove func()) {
	return s.state.AddHandler(handler)
}

// Open opens the communicator. If the simulator is already open, it's closed first.
//
// Open doesn't wait for the peer; use WaitConnected.
func (s *Simulator) Open(ctx context.Context) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	if s.opened {
		if err := s.closeLocked(); err != nil {
			return err
		}
	}

	if err := s.comm.Open(ctx); err != nil {
		return fmt.Errorf("open communicator: %w", err)
	}
	s.opened = true
	s.logger.Info("simulator opened")

	return nil
}

// Close closes the communicator. Goroutines waiting in WaitConnected return ErrDisconnected.
func (s *Simulator) Close() error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	return s.closeLocked()
}

func (s *Simulator) closeLocked() error {
	// notify waiters even when never opened
	defer s.state.ToDisconnected()

	if !s.opened {
		return nil
	}
	s.opened = false

	if err := s.comm.Close(); err != nil {
		return fmt.Errorf("close communicator: %w", err)
	}
	s.logger.Info("simulator closed")

	return nil
}

// IsConnected reports whether the peer is connected.
func (s *Simulator) IsConnected() bool {
	return s.state.IsConnected()
}

// WaitConnected blocks until the peer is connected, see ConnState.WaitConnected.
func (s *Simulator) WaitConnected(ctx context.Context) error {
	return s.state.WaitConnected(ctx)
}

// PendingPrimaries returns the received primaries waiting for a reply, oldest first.
func (s *Simulator) PendingPrimaries() []*hsms.DataMessage {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	return append([]*hsms.DataMessage(nil), s.pending...)
}

// SendSML sends the template registered under alias, see Send.
//
// It returns an error wrapping ErrUnknownAlias if no template is registered under alias.
func (s *Simulator) SendSML(ctx context.Context, alias string) (*hsms.DataMessage, error) {
	tmpl, ok := s.pool.Get(alias)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlias, alias)
	}

	return s.Send(ctx, tmpl.Message())
}

// SendDirect parses text, which must hold one SML message, and sends it, see Send.
//
// It returns an error wrapping ErrParse if text can't be parsed.
func (s *Simulator) SendDirect(ctx context.Context, text string) (*hsms.DataMessage, error) {
	tmpl, err := sml.NewTemplate(text)
	if err != nil {
		return nil, err
	}

	return s.Send(ctx, tmpl.Message())
}

// Send sends msg and returns the reply when msg expects one.
//
// If msg is the reply of a pending primary, i.e. same stream and a function code one greater,
// the primary is removed from the pending list and msg is sent as its reply. Otherwise msg is sent
// as a new message addressed to the device; if its reply times out and the S9Fy policy is enabled,
// an S9F9 is sent before the timeout error is returned.
//
// It returns ErrNotOpen when the peer isn't connected. msg itself is not modified.
func (s *Simulator) Send(ctx context.Context, msg *hsms.DataMessage) (*hsms.DataMessage, error) {
	if !s.state.IsConnected() {
		return nil, ErrNotOpen
	}

	msg = msg.Clone()

	if primary, ok := s.takePending(msg); ok {
		return nil, s.reply(ctx, primary, msg, "reply")
	}

	return s.sendPrimary(ctx, msg)
}

func (s *Simulator) reply(ctx context.Context, primary *hsms.DataMessage, msg *hsms.DataMessage, kind string) error {
	msg.SetSessionID(primary.SessionID())
	_ = msg.SetSystemBytes(primary.SystemBytes())

	if err := s.comm.Reply(ctx, primary, msg); err != nil {
		s.metrics.SendErrors.Inc()
		s.logger.Error("failed to send reply", hsms.MsgInfo(msg, "error", err)...)

		return err
	}

	s.metrics.MessagesSent.WithLabelValues(kind).Inc()
	s.logger.Debug("reply sent", hsms.MsgInfoSML(msg, "primary_id", primary.ID())...)
	s.sent.notify(msg)

	return nil
}

func (s *Simulator) sendPrimary(ctx context.Context, msg *hsms.DataMessage) (*hsms.DataMessage, error) {
	msg.SetSessionID(s.comm.DeviceID())
	_ = msg.SetSystemBytes(hsms.GenerateMsgSystemBytes())

	replyMsg, err := s.comm.Send(ctx, msg)
	if err != nil {
		s.metrics.SendErrors.Inc()
		s.logger.Error("failed to send message", hsms.MsgInfo(msg, "error", err)...)

		if errors.Is(err, hsms.ErrT3Timeout) && s.autoReplyS9Fy.Load() {
			s.sendS9F9(ctx, msg)
		}

		return nil, err
	}

	kind := "unsolicited"
	if msg.IsPrimary() {
		kind = "primary"
	}
	s.metrics.MessagesSent.WithLabelValues(kind).Inc()
	s.logger.Debug("message sent", hsms.MsgInfoSML(msg)...)
	s.sent.notify(msg)

	if replyMsg != nil {
		s.metrics.MessagesReceived.WithLabelValues("reply").Inc()
		s.logger.Debug("reply received", hsms.MsgInfoSML(replyMsg)...)
		s.received.notify(replyMsg)
	}

	return replyMsg, nil
}

func (s *Simulator) onConnStateChange(connected bool) {
	if connected {
		s.metrics.Connected.Set(1)
		s.state.ToConnected()

		return
	}

	s.metrics.Connected.Set(0)
	s.clearPending()
	s.state.ToDisconnected()
}

func (s *Simulator) onDataMessage(msg *hsms.DataMessage) {
	if !msg.IsPrimary() {
		s.metrics.MessagesReceived.WithLabelValues("reply").Inc()
		s.logger.Warn("unexpected reply received", hsms.MsgInfo(msg)...)
		s.received.notify(msg)

		return
	}

	s.metrics.MessagesReceived.WithLabelValues("primary").Inc()
	s.logger.Debug("message received", hsms.MsgInfoSML(msg)...)

	answered := s.autoRespond(msg)
	if msg.WaitBit() && !answered {
		s.addPending(msg)
	}

	s.received.notify(msg)
}
