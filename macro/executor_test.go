package macro

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/secs-simulator/hsms"
	"github.com/arloliu/secs-simulator/logger"
	"github.com/arloliu/secs-simulator/secs2"
	"github.com/arloliu/secs-simulator/simulator"
)

var discardLogger = logger.NewSlogWriter(discardWriter{}, logger.ErrorLevel, false)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

const testTimeout = 2 * time.Second

func newMessage(t *testing.T, stream, function byte) *hsms.DataMessage {
	t.Helper()

	msg, err := hsms.NewDataMessage(stream, function, false, 1, hsms.GenerateMsgSystemBytes(), secs2.NewEmptyItem())
	require.NoError(t, err)

	return msg
}

func awaitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(testTimeout):
		require.FailNow(t, "timeout waiting for handler")
	}
}

func awaitResult(t *testing.T, errCh <-chan error) error {
	t.Helper()

	select {
	case err := <-errCh:
		return err
	case <-time.After(testTimeout):
		require.FailNow(t, "timeout waiting for macro result")
		return nil
	}
}

func requireBlocked(t *testing.T, errCh <-chan error) {
	t.Helper()

	select {
	case err := <-errCh:
		require.FailNow(t, "macro should be blocked", "result: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExecutor_RunSequence(t *testing.T) {
	require := require.New(t)

	driver := newFakeDriver(false)
	metrics, err := simulator.NewMetrics(nil)
	require.NoError(err)

	exec := NewExecutor(driver, WithLogger(discardLogger), WithMetrics(metrics))

	var mu sync.Mutex
	var reports []Report
	exec.AddReportHandler(func(r Report) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, r)
	})

	cmds := []Command{
		OpenCommand(),
		SendSMLCommand("S1F13"),
		SendDirectCommand("S1F1 W."),
		SleepCommand(10 * time.Millisecond),
		CloseCommand(),
	}

	err = exec.Run(context.Background(), cmds)
	require.NoError(err)
	require.False(exec.IsRunning())
	require.False(driver.IsConnected())
	require.Equal([]string{"open", "send-sml S1F13", "send-direct S1F1 W.", "close"}, driver.Calls())

	mu.Lock()
	defer mu.Unlock()
	require.Len(reports, 2*len(cmds))
	for i, cmd := range cmds {
		require.Equal(CommandStarted, reports[2*i].Event)
		require.Equal(CommandFinished, reports[2*i+1].Event)
		require.Equal(i, reports[2*i+1].Index)
		require.Equal(cmd, reports[2*i+1].Command)
	}
	require.GreaterOrEqual(reports[7].Elapsed, 10*time.Millisecond)

	require.InDelta(1, testutil.ToFloat64(metrics.MacroCommands.WithLabelValues("open", "ok")), 0)
	require.InDelta(1, testutil.ToFloat64(metrics.MacroCommands.WithLabelValues("sleep", "ok")), 0)
}

func TestExecutor_WaitMatchesOnce(t *testing.T) {
	require := require.New(t)

	driver := newFakeDriver(true)
	exec := NewExecutor(driver, WithLogger(discardLogger))

	errCh := exec.Start(context.Background(), []Command{WaitCommand("S6F11"), WaitCommand("s6f11")})

	awaitSignal(t, driver.recvAdded)
	driver.receive(newMessage(t, 6, 12))
	requireBlocked(t, errCh)

	driver.receive(newMessage(t, 6, 11))

	// the second WAIT doesn't see the message consumed by the first one
	awaitSignal(t, driver.recvAdded)
	requireBlocked(t, errCh)

	driver.receive(newMessage(t, 6, 11))
	require.NoError(awaitResult(t, errCh))
	require.Zero(driver.receivedHandlerCount())
}

func TestExecutor_WaitPatternSyntax(t *testing.T) {
	require := require.New(t)

	driver := newFakeDriver(true)
	exec := NewExecutor(driver, WithLogger(discardLogger))

	err := exec.Run(context.Background(), []Command{WaitCommand("S6 F11")})
	require.ErrorIs(err, ErrPatternSyntax)

	var cmdErr *CommandError
	require.ErrorAs(err, &cmdErr)
	require.Equal(0, cmdErr.Index)
	require.Equal(Wait, cmdErr.Command.Kind)

	// rejected before subscribing to received messages
	require.Empty(driver.recvAdded)
}

func TestExecutor_WaitDisconnected(t *testing.T) {
	require := require.New(t)

	driver := newFakeDriver(true)
	exec := NewExecutor(driver, WithLogger(discardLogger))

	errCh := exec.Start(context.Background(), []Command{WaitCommand("S1F2"), CloseCommand()})
	awaitSignal(t, driver.connAdded)

	driver.setConnected(false)
	err := awaitResult(t, errCh)
	require.ErrorIs(err, ErrDisconnected)
	require.NotContains(driver.Calls(), "close")

	// not connected when entering WAIT
	err = exec.Run(context.Background(), []Command{WaitCommand("S1F2")})
	require.ErrorIs(err, ErrDisconnected)
}

func TestExecutor_OpenWaitsConnected(t *testing.T) {
	require := require.New(t)

	driver := newFakeDriver(false)
	driver.connectOnOpen = false
	exec := NewExecutor(driver, WithLogger(discardLogger))

	errCh := exec.Start(context.Background(), []Command{OpenCommand()})
	awaitSignal(t, driver.connAdded)
	requireBlocked(t, errCh)

	driver.setConnected(true)
	require.NoError(awaitResult(t, errCh))

	driver.setConnected(false)
	errCh = exec.Start(context.Background(), []Command{OpenCommand(), SendSMLCommand("S1F1")})
	awaitSignal(t, driver.connAdded)

	driver.setConnected(false)
	err := awaitResult(t, errCh)
	require.ErrorIs(err, ErrDisconnected)
	require.Equal([]string{"open", "open"}, driver.Calls())
}

func TestExecutor_CommandErrors(t *testing.T) {
	tests := []struct {
		description string
		sendErr     error
		cmds        []Command
		expectedErr error
		failedIndex int
	}{
		{
			description: "unknown alias aborts the script",
			sendErr:     simulator.ErrUnknownAlias,
			cmds:        []Command{SendSMLCommand("missing"), CloseCommand()},
			expectedErr: simulator.ErrUnknownAlias,
			failedIndex: 0,
		},
		{
			description: "parse error of a direct message",
			sendErr:     simulator.ErrParse,
			cmds:        []Command{SleepCommand(0), SendDirectCommand("S1F1 <X>."), CloseCommand()},
			expectedErr: simulator.ErrParse,
			failedIndex: 1,
		},
		{
			description: "send on a closed simulator",
			sendErr:     simulator.ErrNotOpen,
			cmds:        []Command{SendSMLCommand("S1F1")},
			expectedErr: simulator.ErrNotOpen,
			failedIndex: 0,
		},
		{
			description: "invalid sleep seconds",
			cmds:        []Command{{Kind: Sleep, Arg: "-1"}, CloseCommand()},
			expectedErr: ErrScriptSyntax,
			failedIndex: 0,
		},
	}

	for i, test := range tests {
		t.Logf("Test #%d: %s", i, test.description)
		require := require.New(t)

		driver := newFakeDriver(true)
		driver.sendErr = test.sendErr
		exec := NewExecutor(driver, WithLogger(discardLogger))

		var lastReport Report
		exec.AddReportHandler(func(r Report) { lastReport = r })

		err := exec.Run(context.Background(), test.cmds)
		require.ErrorIs(err, test.expectedErr)

		var cmdErr *CommandError
		require.ErrorAs(err, &cmdErr)
		require.Equal(test.failedIndex, cmdErr.Index)
		require.Equal(test.cmds[test.failedIndex], cmdErr.Command)

		require.Equal(CommandFailed, lastReport.Event)
		require.ErrorIs(lastReport.Err, test.expectedErr)
		require.NotContains(driver.Calls(), "close")
	}
}

func TestExecutor_Stop(t *testing.T) {
	require := require.New(t)

	driver := newFakeDriver(true)
	exec := NewExecutor(driver, WithLogger(discardLogger))

	started := make(chan struct{}, 4)
	exec.AddReportHandler(func(r Report) {
		if r.Event == CommandStarted {
			started <- struct{}{}
		}
	})

	errCh := exec.Start(context.Background(), []Command{SleepCommand(time.Minute), CloseCommand()})
	awaitSignal(t, started)
	require.True(exec.IsRunning())

	exec.Stop()
	err := awaitResult(t, errCh)
	require.ErrorIs(err, ErrStopped)
	require.False(exec.IsRunning())
	require.Empty(driver.Calls())

	// a new Start replaces the running script
	first := exec.Start(context.Background(), []Command{SleepCommand(time.Minute)})
	awaitSignal(t, started)

	second := exec.Start(context.Background(), []Command{CloseCommand()})
	require.ErrorIs(awaitResult(t, first), ErrStopped)
	require.NoError(awaitResult(t, second))
	require.Equal([]string{"close"}, driver.Calls())
}

func TestExecutor_ContextCanceled(t *testing.T) {
	require := require.New(t)

	driver := newFakeDriver(true)
	exec := NewExecutor(driver, WithLogger(discardLogger))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := exec.Run(ctx, []Command{WaitCommand("S1F1")})
	require.ErrorIs(err, context.DeadlineExceeded)
	require.False(errors.Is(err, ErrStopped))
	require.Zero(driver.receivedHandlerCount())
}
