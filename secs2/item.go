package secs2

import (
	"fmt"
	"slices"
)

// MaxByteSize defines the maximum allowed length of an item header, the largest value that fits
// in three length bytes.
const MaxByteSize = 1<<24 - 1

// FormatCode is the 6-bit SECS-II format code carried in the first byte of an item header.
type FormatCode = int

const (
	ListFormatCode    FormatCode = 0o00
	BinaryFormatCode  FormatCode = 0o10
	BooleanFormatCode FormatCode = 0o11
	ASCIIFormatCode   FormatCode = 0o20
	Int64FormatCode   FormatCode = 0o30
	Int8FormatCode    FormatCode = 0o31
	Int16FormatCode   FormatCode = 0o32
	Int32FormatCode   FormatCode = 0o34
	Float64FormatCode FormatCode = 0o40
	Float32FormatCode FormatCode = 0o44
	Uint64FormatCode  FormatCode = 0o50
	Uint8FormatCode   FormatCode = 0o51
	Uint16FormatCode  FormatCode = 0o52
	Uint32FormatCode  FormatCode = 0o54
)

// Kind identifies the variant held by an Item.
//
// The zero Kind is EmptyKind, which represents a message without a body.
type Kind uint8

const (
	EmptyKind Kind = iota
	ListKind
	ASCIIKind
	BinaryKind
	BooleanKind
	Int8Kind
	Int16Kind
	Int32Kind
	Int64Kind
	Uint8Kind
	Uint16Kind
	Uint32Kind
	Uint64Kind
	Float32Kind
	Float64Kind
)

type kindInfo struct {
	symbol     string
	formatCode FormatCode
	width      int // bytes per element on the wire
}

var kindTable = [...]kindInfo{
	EmptyKind:   {symbol: "", formatCode: -1, width: 0},
	ListKind:    {symbol: "L", formatCode: ListFormatCode, width: 1},
	ASCIIKind:   {symbol: "A", formatCode: ASCIIFormatCode, width: 1},
	BinaryKind:  {symbol: "B", formatCode: BinaryFormatCode, width: 1},
	BooleanKind: {symbol: "BOOLEAN", formatCode: BooleanFormatCode, width: 1},
	Int8Kind:    {symbol: "I1", formatCode: Int8FormatCode, width: 1},
	Int16Kind:   {symbol: "I2", formatCode: Int16FormatCode, width: 2},
	Int32Kind:   {symbol: "I4", formatCode: Int32FormatCode, width: 4},
	Int64Kind:   {symbol: "I8", formatCode: Int64FormatCode, width: 8},
	Uint8Kind:   {symbol: "U1", formatCode: Uint8FormatCode, width: 1},
	Uint16Kind:  {symbol: "U2", formatCode: Uint16FormatCode, width: 2},
	Uint32Kind:  {symbol: "U4", formatCode: Uint32FormatCode, width: 4},
	Uint64Kind:  {symbol: "U8", formatCode: Uint64FormatCode, width: 8},
	Float32Kind: {symbol: "F4", formatCode: Float32FormatCode, width: 4},
	Float64Kind: {symbol: "F8", formatCode: Float64FormatCode, width: 8},
}

// Symbol returns the SML mnemonic of the kind, e.g. "L", "A", "U4".
func (k Kind) Symbol() string {
	if int(k) >= len(kindTable) {
		return ""
	}
	return kindTable[k].symbol
}

// FormatCode returns the SECS-II format code of the kind, or -1 for EmptyKind.
func (k Kind) FormatCode() FormatCode {
	if int(k) >= len(kindTable) {
		return -1
	}
	return kindTable[k].formatCode
}

// Width returns the number of bytes each element of the kind occupies on the wire.
func (k Kind) Width() int {
	if int(k) >= len(kindTable) {
		return 0
	}
	return kindTable[k].width
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case EmptyKind:
		return "empty"
	case ListKind:
		return "list"
	case ASCIIKind:
		return "ascii"
	case BinaryKind:
		return "binary"
	case BooleanKind:
		return "boolean"
	case Int8Kind, Int16Kind, Int32Kind, Int64Kind,
		Uint8Kind, Uint16Kind, Uint32Kind, Uint64Kind,
		Float32Kind, Float64Kind:
		return k.Symbol()
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) isSigned() bool {
	return k == Int8Kind || k == Int16Kind || k == Int32Kind || k == Int64Kind
}

func (k Kind) isUnsigned() bool {
	return k == Uint8Kind || k == Uint16Kind || k == Uint32Kind || k == Uint64Kind
}

func (k Kind) isFloat() bool {
	return k == Float32Kind || k == Float64Kind
}

// kindOfFormatCode maps a wire format code to its kind.
func kindOfFormatCode(code FormatCode) (Kind, bool) {
	switch code {
	case ListFormatCode:
		return ListKind, true
	case BinaryFormatCode:
		return BinaryKind, true
	case BooleanFormatCode:
		return BooleanKind, true
	case ASCIIFormatCode:
		return ASCIIKind, true
	case Int8FormatCode:
		return Int8Kind, true
	case Int16FormatCode:
		return Int16Kind, true
	case Int32FormatCode:
		return Int32Kind, true
	case Int64FormatCode:
		return Int64Kind, true
	case Uint8FormatCode:
		return Uint8Kind, true
	case Uint16FormatCode:
		return Uint16Kind, true
	case Uint32FormatCode:
		return Uint32Kind, true
	case Uint64FormatCode:
		return Uint64Kind, true
	case Float32FormatCode:
		return Float32Kind, true
	case Float64FormatCode:
		return Float64Kind, true
	}

	return EmptyKind, false
}

// Item represents an immutable data item in a SECS-II message.
//
// Item is a closed sum type: Kind selects which of the value fields is meaningful, and every
// function that inspects an Item switches on Kind. Items are built with the New*Item constructors
// (or the L, A, B, BOOLEAN, I1...F8 shortcuts) and never change afterwards; constructors copy
// their inputs and accessors return copies, so an Item can be shared between goroutines freely.
//
// The zero Item is the empty item, used for messages without a body.
//
// Two items are equal when they have the same kind and the same values, regardless of how they
// were built. See Equal, ToCanonical and Hash.
type Item struct {
	kind   Kind
	list   []Item
	text   string // ASCII
	bytes  []byte // Binary
	bools  []bool
	ints   []int64 // I1, I2, I4, I8
	uints  []uint64
	floats []float64 // F4 values are stored after float32 rounding
}

// NewEmptyItem returns the empty item.
func NewEmptyItem() Item {
	return Item{}
}

// NewListItem creates a list item holding the given children in order.
//
// The size of a list item is the number of its immediate children.
func NewListItem(values ...Item) Item {
	return Item{kind: ListKind, list: cloneOrNil(values)}
}

// NewASCIIItem creates an ASCII item. The size of the item is the byte length of value.
func NewASCIIItem(value string) Item {
	return Item{kind: ASCIIKind, text: value}
}

// NewBinaryItem creates a binary item holding a copy of values.
func NewBinaryItem(values ...byte) Item {
	return Item{kind: BinaryKind, bytes: cloneOrNil(values)}
}

// NewBooleanItem creates a boolean item holding a copy of values.
func NewBooleanItem(values ...bool) Item {
	return Item{kind: BooleanKind, bools: cloneOrNil(values)}
}

// NewInt8Item creates an I1 item.
func NewInt8Item(values ...int8) Item {
	return Item{kind: Int8Kind, ints: widen[int8, int64](values)}
}

// NewInt16Item creates an I2 item.
func NewInt16Item(values ...int16) Item {
	return Item{kind: Int16Kind, ints: widen[int16, int64](values)}
}

// NewInt32Item creates an I4 item.
func NewInt32Item(values ...int32) Item {
	return Item{kind: Int32Kind, ints: widen[int32, int64](values)}
}

// NewInt64Item creates an I8 item.
func NewInt64Item(values ...int64) Item {
	return Item{kind: Int64Kind, ints: cloneOrNil(values)}
}

// NewUint8Item creates a U1 item.
func NewUint8Item(values ...uint8) Item {
	return Item{kind: Uint8Kind, uints: widen[uint8, uint64](values)}
}

// NewUint16Item creates a U2 item.
func NewUint16Item(values ...uint16) Item {
	return Item{kind: Uint16Kind, uints: widen[uint16, uint64](values)}
}

// NewUint32Item creates a U4 item.
func NewUint32Item(values ...uint32) Item {
	return Item{kind: Uint32Kind, uints: widen[uint32, uint64](values)}
}

// NewUint64Item creates a U8 item.
func NewUint64Item(values ...uint64) Item {
	return Item{kind: Uint64Kind, uints: cloneOrNil(values)}
}

// NewFloat32Item creates an F4 item.
func NewFloat32Item(values ...float32) Item {
	return Item{kind: Float32Kind, floats: widen[float32, float64](values)}
}

// NewFloat64Item creates an F8 item.
func NewFloat64Item(values ...float64) Item {
	return Item{kind: Float64Kind, floats: cloneOrNil(values)}
}

// NewIntItem creates a signed integer item of the given byte size (1, 2, 4 or 8).
//
// Values outside the range of byteSize are clamped to the nearest bound.
func NewIntItem(byteSize int, values ...int64) (Item, error) {
	var kind Kind
	switch byteSize {
	case 1:
		kind = Int8Kind
	case 2:
		kind = Int16Kind
	case 4:
		kind = Int32Kind
	case 8:
		kind = Int64Kind
	default:
		return Item{}, fmt.Errorf("invalid byte size %d for signed integer item", byteSize)
	}

	if len(values) == 0 {
		return Item{kind: kind}, nil
	}

	ints := make([]int64, len(values))
	minVal, maxVal := intRange(byteSize)
	for i, v := range values {
		ints[i] = min(max(v, minVal), maxVal)
	}

	return Item{kind: kind, ints: ints}, nil
}

// NewUintItem creates an unsigned integer item of the given byte size (1, 2, 4 or 8).
//
// Values greater than the maximum of byteSize are clamped.
func NewUintItem(byteSize int, values ...uint64) (Item, error) {
	var kind Kind
	switch byteSize {
	case 1:
		kind = Uint8Kind
	case 2:
		kind = Uint16Kind
	case 4:
		kind = Uint32Kind
	case 8:
		kind = Uint64Kind
	default:
		return Item{}, fmt.Errorf("invalid byte size %d for unsigned integer item", byteSize)
	}

	if len(values) == 0 {
		return Item{kind: kind}, nil
	}

	uints := make([]uint64, len(values))
	maxVal := uint64(1)<<(byteSize*8-1)<<1 - 1
	for i, v := range values {
		uints[i] = min(v, maxVal)
	}

	return Item{kind: kind, uints: uints}, nil
}

// NewFloatItem creates a float item of the given byte size (4 or 8).
func NewFloatItem(byteSize int, values ...float64) (Item, error) {
	switch byteSize {
	case 4:
		if len(values) == 0 {
			return Item{kind: Float32Kind}, nil
		}
		floats := make([]float64, len(values))
		for i, v := range values {
			floats[i] = float64(float32(v))
		}
		return Item{kind: Float32Kind, floats: floats}, nil
	case 8:
		return NewFloat64Item(values...), nil
	}

	return Item{}, fmt.Errorf("invalid byte size %d for float item", byteSize)
}

// Kind returns the variant of the item.
func (item Item) Kind() Kind { return item.kind }

// Type returns the lower-case name of the item variant, e.g. "list", "ascii", "U4".
func (item Item) Type() string { return item.kind.String() }

// Size returns the number of data values held by the item: children for a list, bytes for
// ASCII and binary, elements for boolean and numeric items.
func (item Item) Size() int {
	switch item.kind {
	case EmptyKind:
		return 0
	case ListKind:
		return len(item.list)
	case ASCIIKind:
		return len(item.text)
	case BinaryKind:
		return len(item.bytes)
	case BooleanKind:
		return len(item.bools)
	case Int8Kind, Int16Kind, Int32Kind, Int64Kind:
		return len(item.ints)
	case Uint8Kind, Uint16Kind, Uint32Kind, Uint64Kind:
		return len(item.uints)
	case Float32Kind, Float64Kind:
		return len(item.floats)
	}

	return 0
}

// dataLength returns the value of the length field in the item header.
func (item Item) dataLength() int {
	if item.kind == ListKind {
		return len(item.list)
	}

	return item.Size() * item.kind.Width()
}

func (item Item) IsEmpty() bool   { return item.kind == EmptyKind }
func (item Item) IsList() bool    { return item.kind == ListKind }
func (item Item) IsASCII() bool   { return item.kind == ASCIIKind }
func (item Item) IsBinary() bool  { return item.kind == BinaryKind }
func (item Item) IsBoolean() bool { return item.kind == BooleanKind }
func (item Item) IsInt8() bool    { return item.kind == Int8Kind }
func (item Item) IsInt16() bool   { return item.kind == Int16Kind }
func (item Item) IsInt32() bool   { return item.kind == Int32Kind }
func (item Item) IsInt64() bool   { return item.kind == Int64Kind }
func (item Item) IsUint8() bool   { return item.kind == Uint8Kind }
func (item Item) IsUint16() bool  { return item.kind == Uint16Kind }
func (item Item) IsUint32() bool  { return item.kind == Uint32Kind }
func (item Item) IsUint64() bool  { return item.kind == Uint64Kind }
func (item Item) IsFloat32() bool { return item.kind == Float32Kind }
func (item Item) IsFloat64() bool { return item.kind == Float64Kind }

func intRange(byteSize int) (minVal, maxVal int64) {
	shift := byteSize*8 - 1
	if byteSize == 8 {
		return -1 << 63, 1<<63 - 1
	}

	return -1 << shift, 1<<shift - 1
}

func cloneOrNil[T any](values []T) []T {
	if len(values) == 0 {
		return nil
	}

	return slices.Clone(values)
}

func widen[S int8 | int16 | int32 | uint8 | uint16 | uint32 | float32, D int64 | uint64 | float64](values []S) []D {
	if len(values) == 0 {
		return nil
	}

	result := make([]D, len(values))
	for i, v := range values {
		result[i] = D(v)
	}

	return result
}
