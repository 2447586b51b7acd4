package secs2

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxListDepth is the maximum nesting depth accepted when decoding list items.
const MaxListDepth = 64

// Encode serializes the item into the SECS-II binary form: a header of one format byte and one to
// three big-endian length bytes, followed by the value bytes. List items are followed by the
// encodings of their children in order.
//
// The empty item encodes to zero bytes.
//
// Encode returns ErrLengthOutOfRange if the item, or any nested item, declares a length greater
// than MaxByteSize.
func Encode(item Item) ([]byte, error) {
	return appendItem(make([]byte, 0, encodedSizeHint(item)), item)
}

// ToBytes serializes the item. It is a shorthand of Encode(item).
func (item Item) ToBytes() ([]byte, error) {
	return Encode(item)
}

// AppendHeader appends the item header for the given format code and length to dst.
//
// The number of length bytes is the minimum needed to hold length: one byte up to 0xFF,
// two bytes up to 0xFFFF, and three bytes up to 0xFFFFFF.
func AppendHeader(dst []byte, formatCode FormatCode, length int) ([]byte, error) {
	if length < 0 || length > MaxByteSize {
		return dst, fmt.Errorf("%w: length %d", ErrLengthOutOfRange, length)
	}

	lenBytes := [3]byte{
		byte(length >> 16),
		byte(length >> 8),
		byte(length),
	}

	// determine the number of length bytes needed
	lenByteCount := 3
	if lenBytes[0] == 0 {
		lenByteCount--
		if lenBytes[1] == 0 {
			lenByteCount--
		}
	}

	dst = append(dst, byte(formatCode<<2|lenByteCount))
	dst = append(dst, lenBytes[3-lenByteCount:]...)

	return dst, nil
}

func appendItem(dst []byte, item Item) ([]byte, error) {
	if item.kind == EmptyKind {
		return dst, nil
	}

	dst, err := AppendHeader(dst, item.kind.FormatCode(), item.dataLength())
	if err != nil {
		return dst, fmt.Errorf("encode %s item: %w", item.kind, err)
	}

	switch item.kind {
	case ListKind:
		for _, child := range item.list {
			// invoke appendItem of child item recursively
			dst, err = appendItem(dst, child)
			if err != nil {
				return dst, err
			}
		}
	case ASCIIKind:
		dst = append(dst, item.text...)
	case BinaryKind:
		dst = append(dst, item.bytes...)
	case BooleanKind:
		for _, v := range item.bools {
			if v {
				dst = append(dst, 1)
			} else {
				dst = append(dst, 0)
			}
		}
	case Int8Kind:
		for _, v := range item.ints {
			dst = append(dst, byte(v))
		}
	case Int16Kind:
		for _, v := range item.ints {
			dst = binary.BigEndian.AppendUint16(dst, uint16(v)) //nolint:gosec
		}
	case Int32Kind:
		for _, v := range item.ints {
			dst = binary.BigEndian.AppendUint32(dst, uint32(v)) //nolint:gosec
		}
	case Int64Kind:
		for _, v := range item.ints {
			dst = binary.BigEndian.AppendUint64(dst, uint64(v)) //nolint:gosec
		}
	case Uint8Kind:
		for _, v := range item.uints {
			dst = append(dst, byte(v))
		}
	case Uint16Kind:
		for _, v := range item.uints {
			dst = binary.BigEndian.AppendUint16(dst, uint16(v))
		}
	case Uint32Kind:
		for _, v := range item.uints {
			dst = binary.BigEndian.AppendUint32(dst, uint32(v))
		}
	case Uint64Kind:
		for _, v := range item.uints {
			dst = binary.BigEndian.AppendUint64(dst, v)
		}
	case Float32Kind:
		for _, v := range item.floats {
			dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
		}
	case Float64Kind:
		for _, v := range item.floats {
			dst = binary.BigEndian.AppendUint64(dst, math.Float64bits(v))
		}
	case EmptyKind:
	}

	return dst, nil
}

func encodedSizeHint(item Item) int {
	if item.kind == ListKind {
		size := 4
		for _, child := range item.list {
			size += encodedSizeHint(child)
		}
		return size
	}

	return 4 + item.dataLength()
}

// Decode decodes one SECS-II item from the beginning of data.
//
// It returns the decoded item and the number of bytes consumed. Trailing bytes after the item are
// left untouched, so callers can decode consecutive items.
//
// Decode returns ErrMalformedHeader on a truncated or invalid header, ErrTruncatedBody when
// fewer bytes remain than the header declares, and ErrUnknownFormatCode for an unrecognized
// format code.
func Decode(data []byte) (Item, int, error) {
	d := itemDecoder{input: data}

	item, err := d.decodeItem()
	if err != nil {
		return Item{}, d.pos, err
	}

	return item, d.pos, nil
}

// itemDecoder maintains the current position in the input byte array while decoding.
type itemDecoder struct {
	input []byte
	pos   int
	depth int
}

// remaining returns the number of bytes remaining in the input buffer.
func (d *itemDecoder) remaining() int {
	return len(d.input) - d.pos
}

// read reads a specified number of bytes from the input and advances the current position.
func (d *itemDecoder) read(length int) ([]byte, error) {
	if d.pos+length > len(d.input) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedBody, length, d.remaining())
	}
	result := d.input[d.pos : d.pos+length]
	d.pos += length

	return result, nil
}

func (d *itemDecoder) decodeHeader() (Kind, int, error) {
	if d.remaining() < 1 {
		return EmptyKind, 0, fmt.Errorf("%w: missing format byte", ErrMalformedHeader)
	}

	// decode format code and no. of length bytes
	formatByte := d.input[d.pos]
	formatCode := FormatCode(formatByte >> 2)
	lenBytesCount := int(formatByte & 0x3)
	if lenBytesCount == 0 {
		return EmptyKind, 0, fmt.Errorf("%w: length bytes count is zero", ErrMalformedHeader)
	}

	if d.remaining() < 1+lenBytesCount {
		return EmptyKind, 0, fmt.Errorf("%w: need %d length bytes, have %d",
			ErrMalformedHeader, lenBytesCount, d.remaining()-1)
	}

	kind, ok := kindOfFormatCode(formatCode)
	if !ok {
		return EmptyKind, 0, fmt.Errorf("%w: 0o%o", ErrUnknownFormatCode, formatCode)
	}
	d.pos++

	// decode length bytes to length
	length := 0
	for _, b := range d.input[d.pos : d.pos+lenBytesCount] {
		length = length<<8 | int(b)
	}
	d.pos += lenBytesCount

	return kind, length, nil
}

// decodeItem decodes one item, recursively decoding list children.
func (d *itemDecoder) decodeItem() (Item, error) { //nolint:cyclop
	kind, length, err := d.decodeHeader()
	if err != nil {
		return Item{}, err
	}

	switch kind {
	case ListKind:
		// Check recursion depth limit
		d.depth++
		if d.depth > MaxListDepth {
			return Item{}, fmt.Errorf("%w: list nesting depth exceeds %d", ErrMalformedHeader, MaxListDepth)
		}

		// each child needs at least 2 bytes (1 format byte + 1 length byte)
		if d.remaining() < 2*length {
			return Item{}, fmt.Errorf("%w: list claims %d items but only %d bytes remaining",
				ErrTruncatedBody, length, d.remaining())
		}

		var values []Item
		if length > 0 {
			values = make([]Item, length)
		}
		for i := 0; i < length; i++ {
			values[i], err = d.decodeItem()
			if err != nil {
				return Item{}, err
			}
		}
		d.depth--

		return Item{kind: ListKind, list: values}, nil

	case ASCIIKind:
		data, err := d.read(length)
		if err != nil {
			return Item{}, err
		}
		return Item{kind: ASCIIKind, text: string(data)}, nil

	case BinaryKind:
		data, err := d.read(length)
		if err != nil {
			return Item{}, err
		}
		return Item{kind: BinaryKind, bytes: cloneOrNil(data)}, nil

	case BooleanKind:
		data, err := d.read(length)
		if err != nil {
			return Item{}, err
		}
		var values []bool
		if length > 0 {
			values = make([]bool, length)
		}
		for i, v := range data {
			values[i] = v != 0
		}
		return Item{kind: BooleanKind, bools: values}, nil

	case Int8Kind, Int16Kind, Int32Kind, Int64Kind,
		Uint8Kind, Uint16Kind, Uint32Kind, Uint64Kind,
		Float32Kind, Float64Kind:
		return d.decodeNumeric(kind, length)

	case EmptyKind:
	}

	return Item{}, fmt.Errorf("%w: %s", ErrUnknownFormatCode, kind)
}

func (d *itemDecoder) decodeNumeric(kind Kind, length int) (Item, error) {
	width := kind.Width()
	if length%width != 0 {
		return Item{}, fmt.Errorf("%w: length %d is not a multiple of %d for %s item",
			ErrMalformedHeader, length, width, kind)
	}

	data, err := d.read(length)
	if err != nil {
		return Item{}, err
	}

	count := length / width
	if count == 0 {
		return Item{kind: kind}, nil
	}

	item := Item{kind: kind}
	switch {
	case kind.isSigned():
		item.ints = make([]int64, count)
		for i := 0; i < count; i++ {
			chunk := data[i*width:]
			switch width {
			case 1:
				item.ints[i] = int64(int8(chunk[0]))
			case 2:
				item.ints[i] = int64(int16(binary.BigEndian.Uint16(chunk))) //nolint:gosec
			case 4:
				item.ints[i] = int64(int32(binary.BigEndian.Uint32(chunk))) //nolint:gosec
			case 8:
				item.ints[i] = int64(binary.BigEndian.Uint64(chunk)) //nolint:gosec
			}
		}
	case kind.isUnsigned():
		item.uints = make([]uint64, count)
		for i := 0; i < count; i++ {
			chunk := data[i*width:]
			switch width {
			case 1:
				item.uints[i] = uint64(chunk[0])
			case 2:
				item.uints[i] = uint64(binary.BigEndian.Uint16(chunk))
			case 4:
				item.uints[i] = uint64(binary.BigEndian.Uint32(chunk))
			case 8:
				item.uints[i] = binary.BigEndian.Uint64(chunk)
			}
		}
	case kind.isFloat():
		item.floats = make([]float64, count)
		for i := 0; i < count; i++ {
			chunk := data[i*width:]
			if width == 4 {
				item.floats[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(chunk)))
			} else {
				item.floats[i] = math.Float64frombits(binary.BigEndian.Uint64(chunk))
			}
		}
	}

	return item, nil
}
