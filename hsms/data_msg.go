package hsms

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/arloliu/secs-simulator/secs2"
)

// WaitBit byte constants representing if wait-bit is set.
const (
	WaitBitFalse = uint8(0)
	WaitBitTrue  = uint8(1)
)

// DataMessage represents a HSMS data message: a SECS-II message addressed to a device,
// identified by its system bytes.
//
// It implements the secs2.SECS2Message interface.
type DataMessage struct {
	name        string
	dataItem    secs2.Item
	systemBytes [4]byte
	sessionID   uint16
	stream      byte
	function    byte
	waitBit     uint8
}

// ensure DataMessage implements secs2.SECS2Message interface.
var _ secs2.SECS2Message = (*DataMessage)(nil)

// NewDataMessage creates a new SECS-II message.
//
// # Input argument specifications
//
// stream is a stream code of this message and should be in range of [0, 127].
//
// function is a function code of this message and should be in range of [0, 255].
//
// replyExpected specify if the primary message should excpect a reply message.
// it sets W-Bit to 1 if true, 0 else.
// replyExpected cannot true when the function code is a even number(reply message).
//
// sessionID is the session(device) id in HSMS message, it should be in range of [0, 65535].
//
// systemBytes should have 4 bytes, or be empty for all-zero system bytes.
//
// dataItem is the contents of this message, secs2.NewEmptyItem() for a header-only message.
func NewDataMessage(stream byte, function byte, replyExpected bool, sessionID uint16, systemBytes []byte, dataItem secs2.Item) (*DataMessage, error) {
	if stream >= 128 {
		return nil, ErrInvalidStreamCode
	}

	if replyExpected && function%2 == 0 {
		return nil, ErrInvalidRspMsg
	}

	if len(systemBytes) != 0 && len(systemBytes) != 4 {
		return nil, ErrInvalidSystemBytes
	}

	msg := &DataMessage{
		dataItem:  dataItem,
		sessionID: sessionID,
		stream:    stream,
		function:  function,
		waitBit:   WaitBitFalse,
	}
	if replyExpected {
		msg.waitBit = WaitBitTrue
	}
	copy(msg.systemBytes[:], systemBytes)

	return msg, nil
}

// NewReplyMessage creates the reply of the primary message.
//
// The reply carries function code primary.FunctionCode()+1, and the session id and system bytes
// of the primary, so the peer can correlate it with its pending request.
//
// It returns ErrInvalidReqMsg if primary is not a primary message, i.e. its function code is even.
func NewReplyMessage(primary *DataMessage, dataItem secs2.Item) (*DataMessage, error) {
	if !primary.IsPrimary() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReqMsg, primary.SMLHeader())
	}

	return NewDataMessage(primary.stream, primary.function+1, false, primary.sessionID, primary.systemBytes[:], dataItem)
}

// SessionID returns the session(device) id of the SECS-II message.
func (msg *DataMessage) SessionID() uint16 {
	return msg.sessionID
}

// SetSessionID sets the session(device) id of the SECS-II message.
func (msg *DataMessage) SetSessionID(sessionID uint16) {
	msg.sessionID = sessionID
}

// ID returns a numeric representation of the system bytes (message ID).
func (msg *DataMessage) ID() uint32 {
	return binary.BigEndian.Uint32(msg.systemBytes[:])
}

// SystemBytes returns a copy of the system bytes of the SECS-II message.
func (msg *DataMessage) SystemBytes() []byte {
	result := make([]byte, 4)
	copy(result, msg.systemBytes[:])

	return result
}

// SetSystemBytes sets system bytes to the data message.
//
// It will return error if the systemBytes is not 4 bytes.
func (msg *DataMessage) SetSystemBytes(systemBytes []byte) error {
	if len(systemBytes) != 4 {
		return ErrInvalidSystemBytes
	}

	copy(msg.systemBytes[:], systemBytes)

	return nil
}

// Header returns the 10-byte HSMS message header.
func (msg *DataMessage) Header() []byte {
	header := make([]byte, HeaderSize)
	msg.generateHeader(header)

	return header
}

// Name returns the optional message name of the SECS-II message.
func (msg *DataMessage) Name() string {
	return msg.name
}

// SetName sets the optional message name of the SECS-II message.
func (msg *DataMessage) SetName(name string) {
	msg.name = name
}

// StreamCode returns the stream code of the SECS-II message.
//
// This method implements the secs2.SECS2Message.StreamCode() interface.
func (msg *DataMessage) StreamCode() uint8 {
	return msg.stream
}

// FunctionCode returns the function code of the SECS-II message.
//
// This method implements the secs2.SECS2Message.FunctionCode() interface.
func (msg *DataMessage) FunctionCode() uint8 {
	return msg.function
}

// WaitBit returnes the boolean representation to indicates WBit is set
//
// This method implements the secs2.SECS2Message.WaitBit() interface.
func (msg *DataMessage) WaitBit() bool {
	return msg.waitBit == WaitBitTrue
}

// Item returnes the SECS-II data item in DataMessage.
//
// This method implements the secs2.SECS2Message.Item() interface.
func (msg *DataMessage) Item() secs2.Item {
	return msg.dataItem
}

// IsPrimary reports whether the message is a primary message, i.e. its function code is odd.
func (msg *DataMessage) IsPrimary() bool {
	return msg.function%2 == 1
}

// SMLHeader returns the message header of the SECS-II message, e.g. "S6F11 W".
func (msg *DataMessage) SMLHeader() string {
	quote := StreamFunctionQuote()
	header := fmt.Sprintf("%sS%dF%d%s", quote, msg.stream, msg.function, quote)

	if msg.waitBit == WaitBitTrue {
		header += " W"
	}

	return header
}

// ToBytes returns the HSMS frame of the SECS-II message: the 4-byte message length, the 10-byte
// header and the encoded data item.
//
// It returns an error wrapping secs2.ErrLengthOutOfRange if the data item can't be encoded.
func (msg *DataMessage) ToBytes() ([]byte, error) {
	result := make([]byte, MinHSMSSize, MinHSMSSize+64)
	msg.generateHeader(result[LengthFieldSize:MinHSMSSize])

	// Message text
	itemBytes, err := msg.dataItem.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.SMLHeader(), err)
	}
	result = append(result, itemBytes...)

	// Message length bytes, MSB first
	// message length = total length - 4 length bytes
	binary.BigEndian.PutUint32(result, uint32(len(result)-LengthFieldSize)) //nolint:gosec

	return result, nil
}

// ToSML returns SML representation of data message.
func (msg *DataMessage) ToSML() string {
	var sb strings.Builder

	if msg.name != "" {
		sb.WriteString(msg.name)
		sb.WriteString(":")
	}
	sb.WriteString(msg.SMLHeader())
	sb.WriteString("\n")

	if !msg.dataItem.IsEmpty() {
		sb.WriteString(msg.dataItem.ToSML())
		sb.WriteString("\n")
	}
	sb.WriteString(".")

	return sb.String()
}

// Clone returns a duplicated message. The data item is shared, as items are immutable.
func (msg *DataMessage) Clone() *DataMessage {
	cloned := *msg

	return &cloned
}

func (msg *DataMessage) generateHeader(header []byte) {
	// Header byte 0-1: session(device) ID
	binary.BigEndian.PutUint16(header[0:2], msg.sessionID)

	// Header byte 2-3: wait bit + stream code, function code
	header[2] = msg.stream
	if msg.WaitBit() {
		header[2] |= 0b_1000_0000
	}
	header[3] = msg.function

	// Header byte 4-5: PType, SType, should set to zero for data message
	header[4] = 0
	header[5] = DataMsgType

	// Header byte 6-9: system bytes
	copy(header[6:10], msg.systemBytes[:])
}
