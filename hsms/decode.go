package hsms

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/secs-simulator/secs2"
)

const (
	// HeaderSize is the size of the HSMS message header in bytes.
	HeaderSize = 10
	// LengthFieldSize is the size of the message length field in bytes.
	LengthFieldSize = 4
	// MinHSMSSize is the minimum size of an HSMS message (length field + header).
	MinHSMSSize = LengthFieldSize + HeaderSize
)

// DecodeHSMSMessage decodes an HSMS data message from the given byte slice.
//
// data is the byte array containing the encoded HSMS message including the message length, header, and data.
//
// It returns the decoded DataMessage and an error if any occurred during decoding.
func DecodeHSMSMessage(data []byte) (*DataMessage, error) {
	if len(data) < MinHSMSSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMsgLength, len(data))
	}

	msgLen := binary.BigEndian.Uint32(data)
	if msgLen > secs2.MaxByteSize {
		return nil, fmt.Errorf("%w: message length %d exceeds maximum allowed size", ErrInvalidMsgLength, msgLen)
	}

	return DecodeMessage(msgLen, data[LengthFieldSize:])
}

// DecodeMessage decodes an HSMS data message from the given byte slice.
//
// msgLen specifies the total length of the message in bytes, including the header and data.
// input is the byte array containing the header followed by the encoded SECS-II item.
//
// It returns ErrNotDataMsg for control messages, and wraps the secs2 decoding errors when the
// message text is malformed.
func DecodeMessage(msgLen uint32, input []byte) (*DataMessage, error) {
	if len(input) != int(msgLen) {
		return nil, fmt.Errorf("%w: expected %d, actual %d", ErrInvalidMsgLength, int(msgLen), len(input))
	}

	if len(input) < HeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrInvalidHeaderLength, HeaderSize, len(input))
	}

	header := input[:HeaderSize]
	if header[4] != 0 { // PType is not a SECS-II message
		return nil, fmt.Errorf("%w: %d", ErrInvalidPType, header[4])
	}

	if header[5] != DataMsgType {
		return nil, fmt.Errorf("%w: SType %d", ErrNotDataMsg, header[5])
	}

	sessionID := binary.BigEndian.Uint16(header[:2])
	stream := header[2] & 0x7F
	function := header[3]
	replyExpected := (header[2] >> 7) != WaitBitFalse

	dataItem, err := DecodeSECS2Item(input[HeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("decode S%dF%d message text: %w", stream, function, err)
	}

	return NewDataMessage(stream, function, replyExpected, sessionID, header[6:10], dataItem)
}

// DecodeSECS2Item decodes the message text of a data message.
//
// Empty data yields the empty item. The data must hold exactly one item.
func DecodeSECS2Item(data []byte) (secs2.Item, error) {
	if len(data) == 0 {
		return secs2.NewEmptyItem(), nil
	}

	item, n, err := secs2.Decode(data)
	if err != nil {
		return secs2.Item{}, err
	}

	if n != len(data) {
		return secs2.Item{}, fmt.Errorf("%w: %d trailing bytes after item", ErrInvalidMsgLength, len(data)-n)
	}

	return item, nil
}
