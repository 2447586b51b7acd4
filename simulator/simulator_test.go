package simulator

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
	"github.com/arloliu/secs-simulator/sml"
)

const testDeviceID = 10

var discardLogger = logger.NewSlogWriter(discardWriter{}, logger.ErrorLevel, false)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestSimulator(t *testing.T, opts ...ConfigOption) (*Simulator, *fakeComm) {
	t.Helper()

	opts = append([]ConfigOption{WithLogger(discardLogger)}, opts...)
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)

	comm := newFakeComm(testDeviceID)
	sim, err := New(comm, cfg)
	require.NoError(t, err)

	return sim, comm
}

func openTestSimulator(t *testing.T, opts ...ConfigOption) (*Simulator, *fakeComm) {
	t.Helper()

	sim, comm := newTestSimulator(t, opts...)
	require.NoError(t, sim.Open(context.Background()))
	require.True(t, sim.IsConnected())

	return sim, comm
}

func newPrimary(t *testing.T, stream, function byte, wbit bool, deviceID uint16) *hsms.DataMessage {
	t.Helper()

	msg, err := hsms.NewDataMessage(stream, function, wbit, deviceID, hsms.GenerateMsgSystemBytes(), secs2.NewEmptyItem())
	require.NoError(t, err)

	return msg
}

func mustTemplate(t *testing.T, text string) *sml.Template {
	t.Helper()

	tmpl, err := sml.NewTemplate(text)
	require.NoError(t, err)

	return tmpl
}

func TestSimulator_DecideAutoReply(t *testing.T) {
	type expectedReply struct {
		stream   uint8
		function uint8
		directed bool
		typ      AutoReplyType
	}

	tests := []struct {
		description string
		templates   []string
		autoReply   bool
		s9fy        bool
		sxf0        bool
		stream      uint8
		function    uint8
		wbit        bool
		deviceID    uint16
		expected    []expectedReply
	}{
		{
			description: "empty pool, S9Fy only, unrecognized stream",
			s9fy:        true,
			stream:      5, function: 1, wbit: true, deviceID: testDeviceID,
			expected: []expectedReply{{stream: 9, function: 5, typ: AutoReplyS9Fy}},
		},
		{
			description: "other function of the stream registered, S9Fy only",
			templates:   []string{"S5F7 W ."},
			s9fy:        true,
			stream:      5, function: 1, wbit: true, deviceID: testDeviceID,
			expected: []expectedReply{{stream: 9, function: 3, typ: AutoReplyS9Fy}},
		},
		{
			description: "device id mismatch overrides other policies",
			templates:   []string{"S5F2 ."},
			autoReply:   true, s9fy: true, sxf0: true,
			stream: 5, function: 1, wbit: true, deviceID: testDeviceID + 1,
			expected: []expectedReply{{stream: 9, function: 1, typ: AutoReplyS9Fy}},
		},
		{
			description: "device id mismatch without S9Fy",
			autoReply:   true, sxf0: true,
			stream: 5, function: 1, wbit: true, deviceID: testDeviceID + 1,
		},
		{
			description: "SxF0 only, empty pool",
			sxf0:        true,
			stream:      5, function: 1, wbit: true, deviceID: testDeviceID,
			expected: []expectedReply{{stream: 0, function: 0, directed: true, typ: AutoReplySxF0}},
		},
		{
			description: "both policies, empty pool",
			s9fy:        true, sxf0: true,
			stream: 5, function: 1, wbit: true, deviceID: testDeviceID,
			expected: []expectedReply{
				{stream: 0, function: 0, directed: true, typ: AutoReplySxF0},
				{stream: 9, function: 5, typ: AutoReplyS9Fy},
			},
		},
		{
			description: "both policies, stream registered",
			templates:   []string{"S5F3 W ."},
			s9fy:        true, sxf0: true,
			stream: 5, function: 1, wbit: true, deviceID: testDeviceID,
			expected: []expectedReply{
				{stream: 5, function: 0, directed: true, typ: AutoReplySxF0},
				{stream: 9, function: 3, typ: AutoReplyS9Fy},
			},
		},
		{
			description: "single template reply",
			templates:   []string{"S5F2 <B 0>."},
			autoReply:   true, s9fy: true, sxf0: true,
			stream: 5, function: 1, wbit: true, deviceID: testDeviceID,
			expected: []expectedReply{{stream: 5, function: 2, directed: true, typ: AutoReplyTemplate}},
		},
		{
			description: "ambiguous templates, no guess",
			templates:   []string{"S5F2 <B 0>.", "S5F2 <B 1>."},
			autoReply:   true, s9fy: true, sxf0: true,
			stream: 5, function: 1, wbit: true, deviceID: testDeviceID,
		},
		{
			description: "template registered but auto reply disabled",
			templates:   []string{"S5F2 <B 0>."},
			s9fy:        true, sxf0: true,
			stream: 5, function: 1, wbit: true, deviceID: testDeviceID,
		},
		{
			description: "no wait bit",
			s9fy:        true, sxf0: true,
			stream: 5, function: 1, wbit: false, deviceID: testDeviceID,
		},
		{
			description: "no wait bit, single template still replies",
			templates:   []string{"S6F12 <B 0>."},
			autoReply:   true,
			stream:      6, function: 11, wbit: false, deviceID: testDeviceID,
			expected: []expectedReply{{stream: 6, function: 12, directed: true, typ: AutoReplyTemplate}},
		},
		{
			description: "stream 9 is never answered",
			s9fy:        true, sxf0: true,
			stream: 9, function: 1, wbit: true, deviceID: testDeviceID,
		},
		{
			description: "reply message is never answered",
			s9fy:        true, sxf0: true,
			stream: 5, function: 2, wbit: false, deviceID: testDeviceID,
		},
		{
			description: "all policies disabled",
			stream:      5, function: 1, wbit: true, deviceID: testDeviceID,
		},
	}

	require := require.New(t)

	for i, test := range tests {
		t.Logf("Test #%d: %s", i, test.description)

		sim, _ := newTestSimulator(t,
			WithAutoReply(test.autoReply),
			WithAutoReplyS9Fy(test.s9fy),
			WithAutoReplySxF0(test.sxf0),
		)
		for j, text := range test.templates {
			require.True(sim.Pool().Add(string(rune('a'+j)), mustTemplate(t, text)))
		}

		primary := newPrimary(t, test.stream, test.function, test.wbit, test.deviceID)
		replies := sim.DecideAutoReply(primary)
		require.Len(replies, len(test.expected))

		for j, expected := range test.expected {
			r := replies[j]
			require.Equal(expected.typ, r.Type)
			require.Equal(expected.directed, r.Directed)
			require.Equal(expected.stream, r.Message.StreamCode())
			require.Equal(expected.function, r.Message.FunctionCode())
			require.False(r.Message.WaitBit())

			if r.Directed {
				require.Equal(primary.SystemBytes(), r.Message.SystemBytes())
				require.Equal(primary.SessionID(), r.Message.SessionID())
			} else {
				require.Equal(uint16(testDeviceID), r.Message.SessionID())
			}

			if r.Type == AutoReplyS9Fy {
				payload, err := r.Message.Item().ToBinary()
				require.NoError(err)
				require.Equal(primary.Header(), payload)
			}
		}
	}
}

func TestSimulator_Correlation(t *testing.T) {
	require := require.New(t)

	sim, comm := openTestSimulator(t, WithAutoReply(false))
	ctx := context.Background()

	primary := newPrimary(t, 2, 41, true, testDeviceID)
	comm.receive(primary)
	require.Len(sim.PendingPrimaries(), 1)
	require.Equal(1.0, testutil.ToFloat64(sim.Metrics().PendingPrimaries))

	// S2F44 doesn't answer S2F41: sent as a new message, the primary stays pending
	reply, err := sim.SendDirect(ctx, `S2F44 <B 0>.`)
	require.NoError(err)
	require.Nil(reply)
	require.Len(sim.PendingPrimaries(), 1)
	require.Len(comm.sentMessages(), 1)
	require.Empty(comm.sentReplies())

	// S2F42 answers it
	reply, err = sim.SendDirect(ctx, `S2F42 <B 0>.`)
	require.NoError(err)
	require.Nil(reply)
	require.Empty(sim.PendingPrimaries())
	require.Equal(0.0, testutil.ToFloat64(sim.Metrics().PendingPrimaries))

	replies := comm.sentReplies()
	require.Len(replies, 1)
	require.Same(primary, replies[0].primary)
	require.Equal(uint8(42), replies[0].reply.FunctionCode())
	require.Equal(primary.SystemBytes(), replies[0].reply.SystemBytes())
	require.Equal(primary.SessionID(), replies[0].reply.SessionID())

	// a second S2F42 has nothing to answer
	_, err = sim.SendDirect(ctx, `S2F42 <B 0>.`)
	require.NoError(err)
	require.Len(comm.sentReplies(), 1)
	require.Len(comm.sentMessages(), 2)
}

func TestSimulator_CorrelationFirstMatchWins(t *testing.T) {
	require := require.New(t)

	sim, comm := openTestSimulator(t, WithAutoReply(false))

	first := newPrimary(t, 1, 3, true, testDeviceID)
	second := newPrimary(t, 1, 3, true, testDeviceID)
	other := newPrimary(t, 6, 11, true, testDeviceID)
	comm.receive(first)
	comm.receive(other)
	comm.receive(second)
	require.Len(sim.PendingPrimaries(), 3)

	_, err := sim.SendDirect(context.Background(), `S1F4 <L>.`)
	require.NoError(err)

	require.Same(first, comm.sentReplies()[0].primary)
	require.Equal([]*hsms.DataMessage{other, second}, sim.PendingPrimaries())
}

func TestSimulator_SendErrors(t *testing.T) {
	require := require.New(t)

	sim, _ := newTestSimulator(t)
	ctx := context.Background()

	_, err := sim.SendDirect(ctx, `S1F1 W .`)
	require.ErrorIs(err, ErrNotOpen)

	_, err = sim.SendSML(ctx, "missing")
	require.ErrorIs(err, ErrUnknownAlias)

	_, err = sim.SendDirect(ctx, `S1F1 W <U1 256>.`)
	require.ErrorIs(err, ErrParse)
	require.ErrorIs(err, sml.ErrParse)

	require.NoError(sim.Pool().AddSML("are-you-there", `S1F1 W .`))
	_, err = sim.SendSML(ctx, "are-you-there")
	require.ErrorIs(err, ErrNotOpen)
}

func TestSimulator_SendPrimaryWithReply(t *testing.T) {
	require := require.New(t)

	sim, comm := openTestSimulator(t)
	comm.sendFunc = func(msg *hsms.DataMessage) (*hsms.DataMessage, error) {
		return hsms.NewReplyMessage(msg, secs2.L(secs2.A("MDLN"), secs2.A("1.0")))
	}

	var (
		mu       sync.Mutex
		received []*hsms.DataMessage
		sent     []*hsms.DataMessage
	)
	removeReceived := sim.AddReceivedHandler(func(msg *hsms.DataMessage) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
	})
	sim.AddSentHandler(func(msg *hsms.DataMessage) {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, msg)
	})

	require.NoError(sim.Pool().AddSML("S1F1", `S1F1 W .`))
	tmpl, _ := sim.Pool().Get("S1F1")

	reply, err := sim.SendSML(context.Background(), "S1F1")
	require.NoError(err)
	require.NotNil(reply)
	require.Equal(uint8(2), reply.FunctionCode())

	msgs := comm.sentMessages()
	require.Len(msgs, 1)
	require.Equal(uint16(testDeviceID), msgs[0].SessionID())
	require.Equal(msgs[0].SystemBytes(), reply.SystemBytes())
	// the template itself is left untouched
	require.Equal(uint16(0), tmpl.Message().SessionID())

	mu.Lock()
	require.Equal([]*hsms.DataMessage{reply}, received)
	require.Equal(msgs, sent)
	mu.Unlock()

	removeReceived()
	_, err = sim.SendSML(context.Background(), "S1F1")
	require.NoError(err)

	mu.Lock()
	require.Len(received, 1)
	require.Len(sent, 2)
	mu.Unlock()

	require.Equal(2.0, testutil.ToFloat64(sim.Metrics().MessagesSent.WithLabelValues("primary")))
	require.Equal(2.0, testutil.ToFloat64(sim.Metrics().MessagesReceived.WithLabelValues("reply")))
}

func TestSimulator_ReplyTimeoutSendsS9F9(t *testing.T) {
	require := require.New(t)

	sim, comm := openTestSimulator(t, WithAutoReplyS9Fy(true))
	comm.sendFunc = func(msg *hsms.DataMessage) (*hsms.DataMessage, error) {
		if msg.WaitBit() {
			return nil, hsms.ErrT3Timeout
		}
		return nil, nil
	}

	_, err := sim.SendDirect(context.Background(), `S1F13 W <L>.`)
	require.ErrorIs(err, hsms.ErrT3Timeout)

	msgs := comm.sentMessages()
	require.Len(msgs, 2)
	require.Equal(uint8(9), msgs[1].StreamCode())
	require.Equal(uint8(9), msgs[1].FunctionCode())
	payload, err := msgs[1].Item().ToBinary()
	require.NoError(err)
	require.Equal(msgs[0].Header(), payload)
	require.Equal(1.0, testutil.ToFloat64(sim.Metrics().SendErrors))

	// without the S9Fy policy no S9F9 is sent
	sim.SetAutoReplyS9Fy(false)
	_, err = sim.SendDirect(context.Background(), `S1F13 W <L>.`)
	require.ErrorIs(err, hsms.ErrT3Timeout)
	require.Len(comm.sentMessages(), 3)
}

func TestSimulator_ReceiveAutoReply(t *testing.T) {
	require := require.New(t)

	sim, comm := openTestSimulator(t)
	require.NoError(sim.Pool().AddSML("S1F2", `S1F2 <L <A "MDLN"> <A "1.0">>.`))

	var pendingOnNotify int
	sim.AddReceivedHandler(func(*hsms.DataMessage) {
		pendingOnNotify = len(sim.PendingPrimaries())
	})

	primary := newPrimary(t, 1, 1, true, testDeviceID)
	comm.receive(primary)

	replies := comm.sentReplies()
	require.Len(replies, 1)
	require.Equal(uint8(2), replies[0].reply.FunctionCode())
	require.Equal(primary.SystemBytes(), replies[0].reply.SystemBytes())
	require.Empty(sim.PendingPrimaries())
	require.Equal(0, pendingOnNotify)
	require.Equal(1.0, testutil.ToFloat64(sim.Metrics().AutoReplies.WithLabelValues("template")))

	// no template for S1F3: pending until replied, and visible to received handlers
	comm.receive(newPrimary(t, 1, 3, true, testDeviceID))
	require.Len(sim.PendingPrimaries(), 1)
	require.Equal(1, pendingOnNotify)
}

func TestSimulator_ReceiveDualFire(t *testing.T) {
	require := require.New(t)

	sim, comm := openTestSimulator(t, WithAutoReplyS9Fy(true), WithAutoReplySxF0(true))

	primary := newPrimary(t, 7, 1, true, testDeviceID)
	comm.receive(primary)

	replies := comm.sentReplies()
	require.Len(replies, 1)
	require.Equal(uint8(0), replies[0].reply.StreamCode())
	require.Equal(uint8(0), replies[0].reply.FunctionCode())

	msgs := comm.sentMessages()
	require.Len(msgs, 1)
	require.Equal(uint8(9), msgs[0].StreamCode())
	require.Equal(uint8(5), msgs[0].FunctionCode())

	require.Empty(sim.PendingPrimaries())
	require.Equal(1.0, testutil.ToFloat64(sim.Metrics().AutoReplies.WithLabelValues("sxf0")))
	require.Equal(1.0, testutil.ToFloat64(sim.Metrics().AutoReplies.WithLabelValues("s9fy")))
}

func TestSimulator_OpenClose(t *testing.T) {
	require := require.New(t)

	sim, comm := newTestSimulator(t)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		states []bool
	)
	sim.AddConnStateHandler(func(connected bool) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, connected)
	})

	require.NoError(sim.Open(ctx))
	require.NoError(sim.WaitConnected(ctx))

	// open again closes first
	require.NoError(sim.Open(ctx))
	require.Equal(2, comm.openCount)
	require.Equal(1, comm.closeCount)
	require.True(sim.IsConnected())

	comm.receive(newPrimary(t, 1, 3, true, testDeviceID))
	require.Len(sim.PendingPrimaries(), 1)

	require.NoError(sim.Close())
	require.False(sim.IsConnected())
	require.Empty(sim.PendingPrimaries())
	require.NoError(sim.Close())
	require.Equal(2, comm.closeCount)

	mu.Lock()
	require.Equal([]bool{true, false, true, false}, states)
	mu.Unlock()
}

func TestSimulator_CloseUnblocksWaitConnected(t *testing.T) {
	require := require.New(t)

	sim, comm := newTestSimulator(t)
	comm.noConnect = true
	require.NoError(sim.Open(context.Background()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- sim.WaitConnected(context.Background())
	}()

	// wait for the goroutine to block
	time.Sleep(50 * time.Millisecond)
	require.NoError(sim.Close())

	select {
	case err := <-errCh:
		require.True(errors.Is(err, ErrDisconnected))
	case <-time.After(time.Second):
		require.Fail("WaitConnected not unblocked by Close")
	}
}

func TestSimulator_SMLFiles(t *testing.T) {
	require := require.New(t)

	path := writeFile(t, "replies.sml", `
S1F2: S1F2 <L <A "MDLN"> <A "1.0">>.
S2F18: S2F18 <NOW>.
`)

	sim, _ := newTestSimulator(t, WithSMLFiles(path))
	require.Equal([]string{"S1F2", "S2F18"}, sim.Pool().Aliases())

	_, err := New(newFakeComm(1), mustConfig(t, WithLogger(discardLogger), WithSMLFiles(path+".missing")))
	require.Error(err)
}
