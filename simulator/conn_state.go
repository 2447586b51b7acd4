package simulator

import (
	"context"
	"errors"
	"sync"

	"github.com/looplab/fsm"

	"github.com/arloliu/secs-simulator/logger"
)

// Connection states of the simulator.
const (
	StateDisconnected = "disconnected"
	StateConnected    = "connected"
)

const (
	eventConnect    = "connect"
	eventDisconnect = "disconnect"
)

// ErrDisconnected is returned by ConnState.WaitConnected when a disconnect notification arrives
// while waiting.
var ErrDisconnected = errors.New("connection closed while waiting")

// ConnStateHandler is invoked when the connectivity changes.
//
// Note: the handler is invoked synchronously by the goroutine changing the state, in the order
// handlers were added. Take care with long-running implementations.
type ConnStateHandler func(connected bool)

// ConnState tracks whether the simulator can communicate with its peer.
//
// The connected condition is written by the transport's connection goroutine and read by any
// number of goroutines; WaitConnected blocks until the condition becomes true.
type ConnState struct {
	mu       sync.Mutex
	cond     *sync.Cond
	fsm      *fsm.FSM
	closeGen uint64
	handlers observers[bool]
	logger   logger.Logger
}

// NewConnState creates a ConnState in the disconnected state.
func NewConnState(l logger.Logger) *ConnState {
	cs := &ConnState{logger: l}
	cs.cond = sync.NewCond(&cs.mu)
	cs.fsm = fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateDisconnected}, Dst: StateConnected},
			{Name: eventDisconnect, Src: []string{StateConnected}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				cs.logger.Info("connection state changed", "prev_state", e.Src, "state", e.Dst)
			},
		},
	)

	return cs
}

// State returns the current state, StateDisconnected or StateConnected.
func (cs *ConnState) State() string {
	return cs.fsm.Current()
}

// IsConnected reports whether the peer is connected.
func (cs *ConnState) IsConnected() bool {
	return cs.fsm.Is(StateConnected)
}

// AddHandler adds a handler invoked on every state change. It returns a function removing the handler.
func (cs *ConnState) AddHandler(handler ConnStateHandler) (remove func()) {
	return cs.handlers.add(handler)
}

// ToConnected transitions to the connected state. It's a no-op if already connected.
func (cs *ConnState) ToConnected() {
	cs.transit(eventConnect, true)
}

// ToDisconnected transitions to the disconnected state.
//
// Every call is a disconnect notification: goroutines blocked in WaitConnected return
// ErrDisconnected, even when the state was already disconnected.
func (cs *ConnState) ToDisconnected() {
	cs.transit(eventDisconnect, false)
}

func (cs *ConnState) transit(event string, connected bool) {
	cs.mu.Lock()
	changed := cs.fsm.Can(event)
	if changed {
		if err := cs.fsm.Event(context.Background(), event); err != nil {
			cs.logger.Error("connection state transition failed", "event", event, "error", err)
			changed = false
		}
	}
	if !connected {
		cs.closeGen++
	}
	cs.cond.Broadcast()
	cs.mu.Unlock()

	if changed {
		cs.handlers.notify(connected)
	}
}

// WaitConnected blocks until the peer is connected.
//
// It returns nil if connected, ErrDisconnected if a disconnect notification arrives while
// waiting, or the context error if ctx is done first.
func (cs *ConnState) WaitConnected(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.IsConnected() {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		cs.cond.Broadcast()
	})
	defer stopFunc()

	gen := cs.closeGen
	for !cs.IsConnected() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if cs.closeGen != gen {
			return ErrDisconnected
		}

		cs.cond.Wait()
	}

	return nil
}
