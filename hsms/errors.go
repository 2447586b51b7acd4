package hsms

import "errors"

var (
	// ErrInvalidStreamCode indicates that an invalid stream code was provided.
	// Valid stream codes are in the range of 0 to 127.
	ErrInvalidStreamCode = errors.New("invalid stream code, should be in range of [0, 127]")

	// ErrInvalidSystemBytes indicates that invalid system bytes were provided.
	// System bytes should be a 4-byte array.
	ErrInvalidSystemBytes = errors.New("invalid system bytes, length is not 4")

	// ErrInvalidHeaderLength indicates that a message header is not 10 bytes.
	ErrInvalidHeaderLength = errors.New("invalid header length, should be 10")

	// ErrInvalidPType indicates that the PType of a message is not SECS-II.
	ErrInvalidPType = errors.New("invalid PType, should be 0")

	// ErrInvalidMsgLength indicates that the message length field doesn't match the message.
	ErrInvalidMsgLength = errors.New("invalid hsms message length")
)

var (
	// ErrConnClosed indicates that the connection is closed.
	ErrConnClosed = errors.New("connection closed")

	// ErrInvalidReqMsg indicates that the message is not a valid request/primary message.
	ErrInvalidReqMsg = errors.New("message is not a valid request/primary message")

	// ErrInvalidRspMsg indicates that the message is not a valid response/secondary message.
	ErrInvalidRspMsg = errors.New("message is not a valid response/secondary message")

	// ErrNotDataMsg indicates that the message is not a data message.
	ErrNotDataMsg = errors.New("message is not a data message")
)

// ErrT3Timeout indicates that a T3 timeout has occurred.
// This occurs when a reply message is not received within the T3 timeout period after sending a primary message.
var ErrT3Timeout = errors.New("T3 timeout")
