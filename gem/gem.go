package gem

import (
	"github.com/arloliu/secs-simulator/hsms"
	"github.com/arloliu/secs-simulator/secs2"
)

// Message is an unaddressed GEM (SEMI E30) message: stream, function, wait bit and body.
//
// It has no device id or system bytes; ToDataMessage addresses it for transmission.
type Message struct {
	item secs2.Item
	s    uint8
	f    uint8
	w    bool
}

var _ secs2.SECS2Message = (*Message)(nil)

// NewMessage creates a message of stream s and function f. The stream is masked to 7 bits.
func NewMessage(s uint8, f uint8, w bool, item secs2.Item) *Message {
	return &Message{s: s, f: f, w: w, item: item}
}

func (msg *Message) StreamCode() uint8   { return msg.s & 0x7F }
func (msg *Message) FunctionCode() uint8 { return msg.f }
func (msg *Message) WaitBit() bool       { return msg.w }
func (msg *Message) Item() secs2.Item    { return msg.item }

// String returns the stream-function of the message, e.g. "S9F1".
func (msg *Message) String() string {
	return secs2.StreamFunction(msg)
}

// ToDataMessage addresses the message to sessionID with the given system bytes.
func (msg *Message) ToDataMessage(sessionID uint16, systemBytes []byte) (*hsms.DataMessage, error) {
	return hsms.NewDataMessage(msg.StreamCode(), msg.f, msg.w, sessionID, systemBytes, msg.item)
}

// SxF0 creates the SxF0 (Abort Transaction) message of stream s.
//
// SEMI E5 Description: Function 0 of any stream is the reply sent in place of the expected reply
// when the transaction is aborted. S0F0 is used when the stream itself isn't supported.
func SxF0(s uint8) *Message {
	return NewMessage(s, 0, false, secs2.NewEmptyItem())
}
