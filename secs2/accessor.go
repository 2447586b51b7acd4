package secs2

import (
	"fmt"
	"slices"
)

// Get navigates the item by list indices and returns the addressed item.
//
// Each index selects a child of the current list item. An empty index sequence returns the item
// itself.
//
// Get returns ErrNotAList if an index is applied to an item which is not a list, and
// ErrIndexOutOfRange if an index is negative or not less than the number of children.
func (item Item) Get(indices ...int) (Item, error) {
	cur := item
	for depth, idx := range indices {
		if cur.kind != ListKind {
			return Item{}, fmt.Errorf("%w: index %d at depth %d applied to %s item",
				ErrNotAList, idx, depth, cur.kind)
		}

		if idx < 0 || idx >= len(cur.list) {
			return Item{}, fmt.Errorf("%w: index %d at depth %d, list size %d",
				ErrIndexOutOfRange, idx, depth, len(cur.list))
		}

		cur = cur.list[idx]
	}

	return cur, nil
}

// Items returns a copy of the children of a list item, or nil for other variants.
func (item Item) Items() []Item {
	if item.kind != ListKind {
		return nil
	}

	return slices.Clone(item.list)
}

// ToList returns a copy of the children of a list item.
func (item Item) ToList() ([]Item, error) {
	if item.kind != ListKind {
		return nil, newTypeMismatch(ListKind.String(), item.kind)
	}

	return slices.Clone(item.list), nil
}

// ToASCII returns the string of an ASCII item.
func (item Item) ToASCII() (string, error) {
	if item.kind != ASCIIKind {
		return "", newTypeMismatch(ASCIIKind.String(), item.kind)
	}

	return item.text, nil
}

// ToBinary returns a copy of the bytes of a binary item.
func (item Item) ToBinary() ([]byte, error) {
	if item.kind != BinaryKind {
		return nil, newTypeMismatch(BinaryKind.String(), item.kind)
	}

	return slices.Clone(item.bytes), nil
}

// ToBoolean returns a copy of the values of a boolean item.
func (item Item) ToBoolean() ([]bool, error) {
	if item.kind != BooleanKind {
		return nil, newTypeMismatch(BooleanKind.String(), item.kind)
	}

	return slices.Clone(item.bools), nil
}

// ToInt returns the values of a signed integer item (I1, I2, I4 or I8) widened to int64.
func (item Item) ToInt() ([]int64, error) {
	if !item.kind.isSigned() {
		return nil, newTypeMismatch("signed integer", item.kind)
	}

	return slices.Clone(item.ints), nil
}

// ToUint returns the values of an unsigned integer item (U1, U2, U4 or U8) widened to uint64.
func (item Item) ToUint() ([]uint64, error) {
	if !item.kind.isUnsigned() {
		return nil, newTypeMismatch("unsigned integer", item.kind)
	}

	return slices.Clone(item.uints), nil
}

// ToFloat returns the values of a float item (F4 or F8) widened to float64.
func (item Item) ToFloat() ([]float64, error) {
	if !item.kind.isFloat() {
		return nil, newTypeMismatch("float", item.kind)
	}

	return slices.Clone(item.floats), nil
}

// GetASCII resolves the full index path and returns the string of the addressed ASCII item.
func (item Item) GetASCII(indices ...int) (string, error) {
	leaf, err := item.Get(indices...)
	if err != nil {
		return "", err
	}

	return leaf.ToASCII()
}

// GetByte returns one byte of a binary item. The last index selects the byte within the binary
// item addressed by the preceding indices.
func (item Item) GetByte(indices ...int) (byte, error) {
	leaf, idx, err := item.resolveElement(BinaryKind, indices)
	if err != nil {
		return 0, err
	}

	return leaf.bytes[idx], nil
}

// GetBoolean returns one value of a boolean item. The last index selects the element.
func (item Item) GetBoolean(indices ...int) (bool, error) {
	leaf, idx, err := item.resolveElement(BooleanKind, indices)
	if err != nil {
		return false, err
	}

	return leaf.bools[idx], nil
}

// GetInt8 returns one value of an I1 item. The last index selects the element.
func (item Item) GetInt8(indices ...int) (int8, error) {
	leaf, idx, err := item.resolveElement(Int8Kind, indices)
	if err != nil {
		return 0, err
	}

	return int8(leaf.ints[idx]), nil //nolint:gosec
}

// GetInt16 returns one value of an I2 item. The last index selects the element.
func (item Item) GetInt16(indices ...int) (int16, error) {
	leaf, idx, err := item.resolveElement(Int16Kind, indices)
	if err != nil {
		return 0, err
	}

	return int16(leaf.ints[idx]), nil //nolint:gosec
}

// GetInt32 returns one value of an I4 item. The last index selects the element.
func (item Item) GetInt32(indices ...int) (int32, error) {
	leaf, idx, err := item.resolveElement(Int32Kind, indices)
	if err != nil {
		return 0, err
	}

	return int32(leaf.ints[idx]), nil //nolint:gosec
}

// GetInt64 returns one value of an I8 item. The last index selects the element.
func (item Item) GetInt64(indices ...int) (int64, error) {
	leaf, idx, err := item.resolveElement(Int64Kind, indices)
	if err != nil {
		return 0, err
	}

	return leaf.ints[idx], nil
}

// GetUint8 returns one value of a U1 item. The last index selects the element.
func (item Item) GetUint8(indices ...int) (uint8, error) {
	leaf, idx, err := item.resolveElement(Uint8Kind, indices)
	if err != nil {
		return 0, err
	}

	return uint8(leaf.uints[idx]), nil //nolint:gosec
}

// GetUint16 returns one value of a U2 item. The last index selects the element.
func (item Item) GetUint16(indices ...int) (uint16, error) {
	leaf, idx, err := item.resolveElement(Uint16Kind, indices)
	if err != nil {
		return 0, err
	}

	return uint16(leaf.uints[idx]), nil //nolint:gosec
}

// GetUint32 returns one value of a U4 item. The last index selects the element.
func (item Item) GetUint32(indices ...int) (uint32, error) {
	leaf, idx, err := item.resolveElement(Uint32Kind, indices)
	if err != nil {
		return 0, err
	}

	return uint32(leaf.uints[idx]), nil //nolint:gosec
}

// GetUint64 returns one value of a U8 item. The last index selects the element.
func (item Item) GetUint64(indices ...int) (uint64, error) {
	leaf, idx, err := item.resolveElement(Uint64Kind, indices)
	if err != nil {
		return 0, err
	}

	return leaf.uints[idx], nil
}

// GetFloat32 returns one value of an F4 item. The last index selects the element.
func (item Item) GetFloat32(indices ...int) (float32, error) {
	leaf, idx, err := item.resolveElement(Float32Kind, indices)
	if err != nil {
		return 0, err
	}

	return float32(leaf.floats[idx]), nil
}

// GetFloat64 returns one value of an F8 item. The last index selects the element.
func (item Item) GetFloat64(indices ...int) (float64, error) {
	leaf, idx, err := item.resolveElement(Float64Kind, indices)
	if err != nil {
		return 0, err
	}

	return leaf.floats[idx], nil
}

// resolveElement navigates indices[:len-1] and checks that the resolved item is of kind want and
// holds an element at the last index.
func (item Item) resolveElement(want Kind, indices []int) (Item, int, error) {
	if len(indices) == 0 {
		return Item{}, 0, fmt.Errorf("%w: element index required for %s item", ErrIndexOutOfRange, want)
	}

	last := len(indices) - 1
	leaf, err := item.Get(indices[:last]...)
	if err != nil {
		return Item{}, 0, err
	}

	if leaf.kind != want {
		return Item{}, 0, newTypeMismatch(want.String(), leaf.kind)
	}

	idx := indices[last]
	if idx < 0 || idx >= leaf.Size() {
		return Item{}, 0, fmt.Errorf("%w: element index %d, %s item size %d",
			ErrIndexOutOfRange, idx, want, leaf.Size())
	}

	return leaf, idx, nil
}
