package secs2

import "strconv"

// SECS2Message is the view of a message shared by the HSMS data message and the GEM message
// builders: its stream-function, wait bit and body.
type SECS2Message interface {
	// StreamCode returns the stream code, in [0, 127].
	StreamCode() uint8
	// FunctionCode returns the function code; odd for primaries, even for replies.
	FunctionCode() uint8
	// WaitBit reports whether the sender expects a reply.
	WaitBit() bool
	// Item returns the message body, an empty item for header-only messages.
	Item() Item
}

// StreamFunction returns the stream-function of msg, e.g. "S6F11".
func StreamFunction(msg SECS2Message) string {
	buf := make([]byte, 0, 8)
	buf = append(buf, 'S')
	buf = strconv.AppendUint(buf, uint64(msg.StreamCode()), 10)
	buf = append(buf, 'F')
	buf = strconv.AppendUint(buf, uint64(msg.FunctionCode()), 10)

	return string(buf)
}
