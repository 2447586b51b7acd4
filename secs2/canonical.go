package secs2

import (
	"encoding/hex"
	"hash/fnv"
	"math"
	"slices"
	"strconv"
	"strings"
)

// String implements fmt.Stringer and returns the display form of the item.
func (item Item) String() string {
	return item.ToDisplay()
}

// ToDisplay returns the single-line display form of the item: <SYMBOL [length] value>.
//
// Nested items are rendered in place, e.g. <L [2] <A [3] "abc"> <U1 [2] 1 2>>.
// The empty item is rendered as an empty string.
func (item Item) ToDisplay() string {
	var sb strings.Builder
	item.writeDisplay(&sb)

	return sb.String()
}

func (item Item) writeDisplay(sb *strings.Builder) {
	if item.kind == EmptyKind {
		return
	}

	sb.WriteByte('<')
	sb.WriteString(item.kind.Symbol())
	sb.WriteString(" [")
	sb.WriteString(strconv.Itoa(item.Size()))
	sb.WriteByte(']')

	switch item.kind {
	case ListKind:
		for _, child := range item.list {
			sb.WriteByte(' ')
			child.writeDisplay(sb)
		}
	case ASCIIKind:
		sb.WriteByte(' ')
		sb.WriteString(strconv.Quote(item.text))
	case BinaryKind:
		for _, v := range item.bytes {
			sb.WriteString(" 0x")
			sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{v})))
		}
	case BooleanKind:
		for _, v := range item.bools {
			sb.WriteByte(' ')
			sb.WriteString(strconv.FormatBool(v))
		}
	default:
		item.forEachNumber(func(s string) {
			sb.WriteByte(' ')
			sb.WriteString(s)
		})
	}

	sb.WriteByte('>')
}

// ToCanonical returns the canonical structural serialization of the item:
//
//	{"f":"SYMBOL","v":value}
//
// where value is a JSON array of child serializations for lists, a quoted string for ASCII,
// a lower-case hex string for binary, and an array of true/false or numbers for boolean and
// numeric items. Non-finite floats are rendered as the strings "NaN", "+Inf" and "-Inf".
// The empty item is serialized as {"f":"","v":null}.
//
// Two items have the same canonical form if and only if Equal reports true.
func (item Item) ToCanonical() string {
	var sb strings.Builder
	item.writeCanonical(&sb)

	return sb.String()
}

func (item Item) writeCanonical(sb *strings.Builder) {
	sb.WriteString(`{"f":"`)
	sb.WriteString(item.kind.Symbol())
	sb.WriteString(`","v":`)

	switch item.kind {
	case EmptyKind:
		sb.WriteString("null")
	case ListKind:
		sb.WriteByte('[')
		for i, child := range item.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			child.writeCanonical(sb)
		}
		sb.WriteByte(']')
	case ASCIIKind:
		sb.WriteString(strconv.Quote(item.text))
	case BinaryKind:
		sb.WriteByte('"')
		sb.WriteString(hex.EncodeToString(item.bytes))
		sb.WriteByte('"')
	case BooleanKind:
		sb.WriteByte('[')
		for i, v := range item.bools {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatBool(v))
		}
		sb.WriteByte(']')
	default:
		sb.WriteByte('[')
		first := true
		item.forEachNumber(func(s string) {
			if !first {
				sb.WriteByte(',')
			}
			first = false
			if s == "NaN" || s == "+Inf" || s == "-Inf" {
				s = strconv.Quote(s)
			}
			sb.WriteString(s)
		})
		sb.WriteByte(']')
	}

	sb.WriteByte('}')
}

// forEachNumber calls fn with the textual form of each value of a numeric item.
func (item Item) forEachNumber(fn func(string)) {
	switch {
	case item.kind.isSigned():
		for _, v := range item.ints {
			fn(strconv.FormatInt(v, 10))
		}
	case item.kind.isUnsigned():
		for _, v := range item.uints {
			fn(strconv.FormatUint(v, 10))
		}
	case item.kind.isFloat():
		bitSize := 64
		if item.kind == Float32Kind {
			bitSize = 32
		}
		for _, v := range item.floats {
			fn(strconv.FormatFloat(v, 'g', -1, bitSize))
		}
	}
}

// Equal reports whether item and other have the same kind and the same values.
//
// Float values compare by their canonical text, so every NaN equals every other NaN while
// 0 and -0 are distinct.
func (item Item) Equal(other Item) bool {
	if item.kind != other.kind {
		return false
	}

	switch item.kind {
	case EmptyKind:
		return true
	case ListKind:
		if len(item.list) != len(other.list) {
			return false
		}
		for i := range item.list {
			if !item.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case ASCIIKind:
		return item.text == other.text
	case BinaryKind:
		return string(item.bytes) == string(other.bytes)
	case BooleanKind:
		return slices.Equal(item.bools, other.bools)
	case Int8Kind, Int16Kind, Int32Kind, Int64Kind:
		return slices.Equal(item.ints, other.ints)
	case Uint8Kind, Uint16Kind, Uint32Kind, Uint64Kind:
		return slices.Equal(item.uints, other.uints)
	case Float32Kind, Float64Kind:
		if len(item.floats) != len(other.floats) {
			return false
		}
		for i, v := range item.floats {
			w := other.floats[i]
			if math.IsNaN(v) && math.IsNaN(w) {
				continue
			}
			if math.Float64bits(v) != math.Float64bits(w) {
				return false
			}
		}
		return true
	}

	return false
}

// Hash returns the 64-bit FNV-1a hash of the canonical serialization of the item.
// Equal items have equal hashes.
func (item Item) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(item.ToCanonical()))

	return h.Sum64()
}
