package macro

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/arloliu/secs-simulator/hsms"
	"github.com/arloliu/secs-simulator/internal/pool"
	"github.com/arloliu/secs-simulator/logger"
	"github.com/arloliu/secs-simulator/simulator"
)

// Driver is the simulator surface a macro script drives. *simulator.Simulator implements it.
type Driver interface {
	Open(ctx context.Context) error
	Close() error
	IsConnected() bool
	WaitConnected(ctx context.Context) error
	SendSML(ctx context.Context, alias string) (*hsms.DataMessage, error)
	SendDirect(ctx context.Context, text string) (*hsms.DataMessage, error)
	AddReceivedHandler(handler func(*hsms.DataMessage)) (remove func())
	AddConnStateHandler(handler simulator.ConnStateHandler) (remove func())
}

var _ Driver = (*simulator.Simulator)(nil)

// ReportEvent is the progress event of a macro command.
type ReportEvent int

const (
	CommandStarted ReportEvent = iota
	CommandFinished
	CommandFailed
)

func (e ReportEvent) String() string {
	switch e {
	case CommandStarted:
		return "started"
	case CommandFinished:
		return "finished"
	case CommandFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Report describes the progress of one command of a running script.
type Report struct {
	Event   ReportEvent
	Index   int
	Command Command
	// Elapsed is zero for CommandStarted.
	Elapsed time.Duration
	// Err is set for CommandFailed.
	Err error
}

// ReportHandler receives the reports of an executor. It's called on the executing goroutine.
type ReportHandler func(Report)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger of the executor.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics counts the executed commands in m.
func WithMetrics(m *simulator.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// Executor runs macro scripts against a Driver, one script at a time.
//
// Each command completes before the next one starts; the first failing command aborts the script.
type Executor struct {
	driver  Driver
	logger  logger.Logger
	metrics *simulator.Metrics

	runMu   sync.Mutex
	startMu sync.Mutex
	cancel  context.CancelCauseFunc
	running *atomic.Bool

	reportMu sync.Mutex
	reports  []ReportHandler
}

// NewExecutor creates an executor of scripts driving driver.
func NewExecutor(driver Driver, opts ...Option) *Executor {
	e := &Executor{
		driver:  driver,
		logger:  logger.GetLogger(),
		running: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// AddReportHandler adds a handler of command reports.
func (e *Executor) AddReportHandler(handler ReportHandler) {
	e.reportMu.Lock()
	defer e.reportMu.Unlock()

	e.reports = append(e.reports, handler)
}

// IsRunning reports whether a script is running.
func (e *Executor) IsRunning() bool {
	return e.running.Load()
}

// Run runs the script cmds and returns when it completes.
//
// If another script is running, Run waits for it to complete first. A failing command aborts the
// script, and Run returns a *CommandError wrapping the cause. Stop and ctx cancellation abort the
// command in progress, with cause ErrStopped or the context cause.
func (e *Executor) Run(ctx context.Context, cmds []Command) error {
	runCtx, done := e.begin(ctx)
	defer done()

	return e.run(runCtx, cmds)
}

// Start stops the running script, if any, and runs cmds on a new goroutine.
//
// The returned channel receives the result of the script, as returned by Run, and is then closed.
func (e *Executor) Start(ctx context.Context, cmds []Command) <-chan error {
	e.Stop()

	runCtx, done := e.begin(ctx)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)

		err := e.run(runCtx, cmds)
		done()
		errCh <- err
	}()

	return errCh
}

// Stop aborts the running script with ErrStopped. It doesn't wait for the script to unwind.
func (e *Executor) Stop() {
	e.startMu.Lock()
	cancel := e.cancel
	e.startMu.Unlock()

	if cancel != nil {
		cancel(ErrStopped)
	}
}

func (e *Executor) begin(ctx context.Context) (context.Context, func()) {
	e.runMu.Lock()

	runCtx, cancel := context.WithCancelCause(ctx)
	e.startMu.Lock()
	e.cancel = cancel
	e.startMu.Unlock()
	e.running.Store(true)

	return runCtx, func() {
		e.startMu.Lock()
		e.cancel = nil
		e.startMu.Unlock()

		cancel(nil)
		e.running.Store(false)
		e.runMu.Unlock()
	}
}

func (e *Executor) run(ctx context.Context, cmds []Command) error {
	e.logger.Info("macro started", "commands", len(cmds))

	for i, cmd := range cmds {
		if ctx.Err() != nil {
			return e.fail(i, cmd, 0, context.Cause(ctx))
		}

		e.notify(Report{Event: CommandStarted, Index: i, Command: cmd})
		e.logger.Debug("macro command started", "index", i, "command", cmd.Kind.String())

		start := time.Now()
		err := e.execute(ctx, cmd)
		elapsed := time.Since(start)

		if e.metrics != nil {
			e.metrics.ObserveMacroCommand(cmd.Kind.String(), err)
		}

		if err != nil {
			return e.fail(i, cmd, elapsed, err)
		}

		e.notify(Report{Event: CommandFinished, Index: i, Command: cmd, Elapsed: elapsed})
		e.logger.Debug("macro command finished", "index", i, "command", cmd.Kind.String(), "elapsed", elapsed)
	}

	e.logger.Info("macro completed", "commands", len(cmds))

	return nil
}

func (e *Executor) fail(index int, cmd Command, elapsed time.Duration, err error) error {
	cmdErr := &CommandError{Index: index, Command: cmd, Err: err}

	e.notify(Report{Event: CommandFailed, Index: index, Command: cmd, Elapsed: elapsed, Err: err})
	if errors.Is(err, ErrStopped) {
		e.logger.Info("macro stopped", "index", index, "command", cmd.Kind.String())
	} else {
		e.logger.Error("macro command failed", "index", index, "command", cmd.Kind.String(), "error", err)
	}

	return cmdErr
}

func (e *Executor) notify(report Report) {
	e.reportMu.Lock()
	handlers := e.reports
	e.reportMu.Unlock()

	for _, handler := range handlers {
		handler(report)
	}
}

func (e *Executor) execute(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case Open:
		return e.open(ctx)
	case Close:
		return e.driver.Close()
	case SendSML:
		_, err := e.driver.SendSML(ctx, cmd.Arg)
		return causeOf(ctx, err)
	case SendDirect:
		_, err := e.driver.SendDirect(ctx, cmd.Arg)
		return causeOf(ctx, err)
	case Wait:
		return e.wait(ctx, cmd.Arg)
	case Sleep:
		return e.sleep(ctx, cmd)
	default:
		return ErrScriptSyntax
	}
}

func (e *Executor) open(ctx context.Context) error {
	if err := e.driver.Open(ctx); err != nil {
		return causeOf(ctx, err)
	}

	return causeOf(ctx, e.driver.WaitConnected(ctx))
}

// wait blocks until a message matching pattern is received after the call.
func (e *Executor) wait(ctx context.Context, pattern string) error {
	p, err := ParsePattern(pattern)
	if err != nil {
		return err
	}

	matched := make(chan struct{}, 1)
	removeRecv := e.driver.AddReceivedHandler(func(msg *hsms.DataMessage) {
		if p.Matches(msg) {
			select {
			case matched <- struct{}{}:
			default:
			}
		}
	})
	defer removeRecv()

	disconnected := make(chan struct{}, 1)
	removeConn := e.driver.AddConnStateHandler(func(connected bool) {
		if !connected {
			select {
			case disconnected <- struct{}{}:
			default:
			}
		}
	})
	defer removeConn()

	if !e.driver.IsConnected() {
		return ErrDisconnected
	}

	e.logger.Debug("macro waiting", "pattern", p.String())

	select {
	case <-matched:
		return nil
	case <-disconnected:
		return ErrDisconnected
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (e *Executor) sleep(ctx context.Context, cmd Command) error {
	d, err := cmd.SleepDuration()
	if err != nil {
		return err
	}

	timer := pool.GetTimer(d)
	defer pool.PutTimer(timer)

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// causeOf replaces the context error of an aborted call with the cancellation cause.
func causeOf(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return context.Cause(ctx)
	}

	return err
}
