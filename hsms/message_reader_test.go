package hsms

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/arloliu/secs-simulator/secs2"
	"github.com/stretchr/testify/require"
)

func TestMessageReader(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		msg, err := NewDataMessage(1, 1, true, 0, ToSystemBytes(uint32(i)), secs2.U1(uint8(i)))
		require.NoError(err)
		data, err := msg.ToBytes()
		require.NoError(err)
		buf.Write(data)
	}

	reader := NewMessageReader(&buf, 0)
	for i := 0; i < 3; i++ {
		msg, raw, err := reader.ReadMessage()
		require.NoError(err)
		require.NotEmpty(raw)
		require.Equal(uint32(i), msg.ID())
		v, err := msg.Item().GetUint8(0)
		require.NoError(err)
		require.Equal(uint8(i), v)
	}

	_, _, err := reader.ReadMessage()
	require.ErrorIs(err, io.EOF)
}

func TestMessageReader_InvalidLength(t *testing.T) {
	require := require.New(t)

	reader := NewMessageReader(bytes.NewReader([]byte{0, 0, 0, 2, 0, 0}), 0)
	_, _, err := reader.ReadMessage()
	require.ErrorIs(err, ErrInvalidMsgLength)

	reader = NewMessageReader(bytes.NewReader([]byte{0x01, 0, 0, 0}), 0)
	_, _, err = reader.ReadMessage()
	require.ErrorIs(err, ErrInvalidMsgLength)
}

func TestMessageReader_DecodeErrorKeepsRawBody(t *testing.T) {
	require := require.New(t)

	frame := []byte{0, 0, 0, 12, 0, 1, 0x01, 2, 0, 0, 0, 0, 0, 2, 0xFD, 0x00}
	reader := NewMessageReader(bytes.NewReader(frame), 0)
	_, raw, err := reader.ReadMessage()
	require.ErrorIs(err, secs2.ErrUnknownFormatCode)
	require.Equal(frame[LengthFieldSize:], raw)
}

func TestMessageReader_T8Timeout(t *testing.T) {
	require := require.New(t)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		// send the length only, then stall
		_, _ = client.Write([]byte{0, 0, 0, 10})
	}()

	reader := NewMessageReader(server, 50*time.Millisecond)
	_, _, err := reader.ReadMessage()
	require.Error(err)

	var netErr net.Error
	require.True(errors.As(err, &netErr))
	require.True(netErr.Timeout())
}
