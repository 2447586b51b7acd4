package hsms

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/arloliu/secs-simulator/secs2"
)

// MessageReader reads and decodes individual HSMS data messages from a stream.
//
// It implements the HSMS message framing:
//  1. Read 4-byte big-endian message length (no timeout, allows idle connections)
//  2. Validate length (at least the header size, at most secs2.MaxByteSize)
//  3. Read the message payload, with the T8 timeout when the stream is a net.Conn
//  4. Decode into a DataMessage via DecodeMessage
//
// MessageReader is NOT goroutine-safe. The caller must ensure that only one ReadMessage call is
// active at a time.
type MessageReader struct {
	r         io.Reader
	t8Timeout time.Duration
	lenBuf    [LengthFieldSize]byte
}

// NewMessageReader creates a reader of HSMS frames from r.
//
// t8Timeout bounds the time to read the payload once its length has been received;
// it's applied only when r is a net.Conn and t8Timeout is positive.
func NewMessageReader(r io.Reader, t8Timeout time.Duration) *MessageReader {
	return &MessageReader{r: r, t8Timeout: t8Timeout}
}

// ReadMessage reads one complete HSMS data message.
//
// When decoding fails, the raw payload is returned along with the error to allow hex-dump logging
// of the malformed message.
func (mr *MessageReader) ReadMessage() (msg *DataMessage, rawBody []byte, err error) {
	conn, isConn := mr.r.(net.Conn)

	// Phase 1: read the 4-byte length header.
	if isConn {
		if err = conn.SetReadDeadline(time.Time{}); err != nil {
			return nil, nil, fmt.Errorf("clear read deadline: %w", err)
		}
	}

	if _, err = io.ReadFull(mr.r, mr.lenBuf[:]); err != nil {
		return nil, nil, fmt.Errorf("read message length: %w", err)
	}

	// Phase 2: validate the length.
	msgLen := binary.BigEndian.Uint32(mr.lenBuf[:])
	if msgLen < HeaderSize {
		return nil, nil, fmt.Errorf("%w: message length %d is less than header size", ErrInvalidMsgLength, msgLen)
	}

	if msgLen > secs2.MaxByteSize {
		return nil, nil, fmt.Errorf("%w: message length %d exceeds maximum %d", ErrInvalidMsgLength, msgLen, secs2.MaxByteSize)
	}

	// Phase 3: read the payload with T8 timeout.
	if isConn && mr.t8Timeout > 0 {
		if err = conn.SetReadDeadline(time.Now().Add(mr.t8Timeout)); err != nil {
			return nil, nil, fmt.Errorf("set T8 deadline: %w", err)
		}
	}

	rawBody = make([]byte, msgLen)
	if _, err = io.ReadFull(mr.r, rawBody); err != nil {
		return nil, nil, fmt.Errorf("read message payload: %w", err)
	}

	// Phase 4: decode.
	msg, err = DecodeMessage(msgLen, rawBody)
	if err != nil {
		return nil, rawBody, fmt.Errorf("decode message: %w", err)
	}

	return msg, rawBody, nil
}
