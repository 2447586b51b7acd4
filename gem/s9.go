package gem

import "github.com/arloliu/secs-simulator/secs2"

// s9fx is a helper function that creates a Message with the specified function code (f) within
// stream 9 (S9Fx) carrying the 10-byte header of the offending message as binary data.
// Stream 9 messages never expect a reply.
func s9fx(f uint8, header []byte) *Message {
	return &Message{s: 9, f: f, w: false, item: secs2.B(header...)}
}

// S9F1 creates an S9F1 (Unrecognized Device ID) message carrying the offending message header (MHEAD).
//
// SEMI E5 Description: This message is sent when an unrecognized Device ID is received in a message.
func S9F1(header []byte) *Message { return s9fx(1, header) }

// S9F3 creates an S9F3 (Unrecognized Stream Type) message carrying the offending message header (MHEAD).
//
// SEMI E5 Description: This message is sent when an unrecognized Stream Type is received in a message.
func S9F3(header []byte) *Message { return s9fx(3, header) }

// S9F5 creates an S9F5 (Unrecognized Function Type) message carrying the offending message header (MHEAD).
//
// SEMI E5 Description: This message is sent when an unrecognized Function Type is received in a message.
func S9F5(header []byte) *Message { return s9fx(5, header) }

// S9F7 creates an S9F7 (Illegal Data) message carrying the offending message header (MHEAD).
//
// SEMI E5 Description: This message is sent when the data is illegal for the Function Type.
func S9F7(header []byte) *Message { return s9fx(7, header) }

// S9F9 creates an S9F9 (Transaction Timeout) message carrying the header of the primary message
// whose reply timed out (SHEAD).
//
// SEMI E5 Description: This message is sent when a transaction timer (T3) expires before the
// expected reply is received.
func S9F9(header []byte) *Message { return s9fx(9, header) }

// S9F11 creates an S9F11 (Data Too Long) message carrying the offending message header (MHEAD).
//
// SEMI E5 Description: This message is sent when the length of the data in a message exceeds
// the maximum message length that the equipment can process.
func S9F11(header []byte) *Message { return s9fx(11, header) }

// S9F13 creates an S9F13 (Conversation Timeout) message.
//
// mexp is the expected message, e.g. "S6F11", and edid is the identifier of the expected data.
//
// SEMI E5 Description: This message is sent when the equipment doesn't receive the expected
// message of a conversation within the conversation timeout period.
func S9F13(mexp string, edid secs2.Item) *Message {
	return &Message{s: 9, f: 13, w: false, item: secs2.L(secs2.A(mexp), edid)}
}

// IsS9 reports whether msg belongs to stream 9, the error report stream.
func IsS9(msg secs2.SECS2Message) bool {
	return msg.StreamCode() == 9
}
