package secs2

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func nestedTestItem() Item {
	return L(
		L(
			I1(1, 2, 3),
			L(
				I4(4, 5, 6),
				L(
					F8(1.1, 2.2),
				),
			),
		),
		A("text"),
		B(0x10, 0x20),
		BOOLEAN(false, true),
		U2(7, 8),
	)
}

func TestItem_Get(t *testing.T) {
	require := require.New(t)

	item := nestedTestItem()

	root, err := item.Get()
	require.NoError(err)
	require.Equal(item, root)

	child, err := item.Get(0, 0)
	require.NoError(err)
	values, err := child.ToInt()
	require.NoError(err)
	require.Equal([]int64{1, 2, 3}, values)

	child, err = item.Get(0, 1, 1, 0)
	require.NoError(err)
	require.Equal(F8(1.1, 2.2), child)

	_, err = item.Get(5)
	require.ErrorIs(err, ErrIndexOutOfRange)

	_, err = item.Get(-1)
	require.ErrorIs(err, ErrIndexOutOfRange)

	_, err = item.Get(1, 0)
	require.ErrorIs(err, ErrNotAList)

	_, err = A("x").Get(0)
	require.ErrorIs(err, ErrNotAList)
}

func TestItem_TerminalGetters(t *testing.T) {
	require := require.New(t)

	item := nestedTestItem()

	i8, err := item.GetInt8(0, 0, 2)
	require.NoError(err)
	require.Equal(int8(3), i8)

	i32, err := item.GetInt32(0, 1, 0, 1)
	require.NoError(err)
	require.Equal(int32(5), i32)

	f64, err := item.GetFloat64(0, 1, 1, 0, 1)
	require.NoError(err)
	require.InDelta(2.2, f64, 1e-9)

	s, err := item.GetASCII(1)
	require.NoError(err)
	require.Equal("text", s)

	b, err := item.GetByte(2, 1)
	require.NoError(err)
	require.Equal(byte(0x20), b)

	v, err := item.GetBoolean(3, 1)
	require.NoError(err)
	require.True(v)

	u16, err := item.GetUint16(4, 0)
	require.NoError(err)
	require.Equal(uint16(7), u16)

	i16, err := I2(-5).GetInt16(0)
	require.NoError(err)
	require.Equal(int16(-5), i16)

	i64, err := I8(-6).GetInt64(0)
	require.NoError(err)
	require.Equal(int64(-6), i64)

	u8, err := U1(9).GetUint8(0)
	require.NoError(err)
	require.Equal(uint8(9), u8)

	u32, err := U4(10).GetUint32(0)
	require.NoError(err)
	require.Equal(uint32(10), u32)

	u64, err := U8(11).GetUint64(0)
	require.NoError(err)
	require.Equal(uint64(11), u64)

	f32, err := F4(1.5).GetFloat32(0)
	require.NoError(err)
	require.Equal(float32(1.5), f32)
}

func TestItem_TerminalGetterErrors(t *testing.T) {
	require := require.New(t)

	item := nestedTestItem()

	// wrong variant carries the expected variant
	_, err := item.GetUint32(4, 0)
	require.ErrorIs(err, ErrTypeMismatch)
	var mismatch *TypeMismatchError
	require.True(errors.As(err, &mismatch))
	require.Equal("U4", mismatch.Expected)
	require.Equal(Uint16Kind, mismatch.Actual)

	// the resolved node must not be a list
	_, err = item.GetInt8(0, 0)
	require.ErrorIs(err, ErrTypeMismatch)

	_, err = item.GetASCII(0)
	require.ErrorIs(err, ErrTypeMismatch)

	// element index out of range
	_, err = item.GetUint16(4, 2)
	require.ErrorIs(err, ErrIndexOutOfRange)

	// element index is required
	_, err = U1(1).GetUint8()
	require.ErrorIs(err, ErrIndexOutOfRange)

	// path errors surface unchanged
	_, err = item.GetBoolean(9, 0)
	require.ErrorIs(err, ErrIndexOutOfRange)

	_, err = item.GetBoolean(1, 0, 0)
	require.ErrorIs(err, ErrNotAList)
}

func TestItem_BroadAccessors(t *testing.T) {
	require := require.New(t)

	list, err := L(A("a"), U1(1)).ToList()
	require.NoError(err)
	require.Equal([]Item{A("a"), U1(1)}, list)
	require.Equal(list, L(A("a"), U1(1)).Items())
	require.Nil(A("a").Items())

	uints, err := U4(1, 2).ToUint()
	require.NoError(err)
	require.Equal([]uint64{1, 2}, uints)

	floats, err := F4(0.5).ToFloat()
	require.NoError(err)
	require.Equal([]float64{0.5}, floats)

	bools, err := BOOLEAN(true).ToBoolean()
	require.NoError(err)
	require.Equal([]bool{true}, bools)

	tests := []struct {
		description string
		call        func() error
	}{
		{description: "ToList on ascii", call: func() error { _, err := A("a").ToList(); return err }},
		{description: "ToASCII on binary", call: func() error { _, err := B(1).ToASCII(); return err }},
		{description: "ToBinary on U1", call: func() error { _, err := U1(1).ToBinary(); return err }},
		{description: "ToBoolean on list", call: func() error { _, err := L().ToBoolean(); return err }},
		{description: "ToInt on U4", call: func() error { _, err := U4(1).ToInt(); return err }},
		{description: "ToUint on I4", call: func() error { _, err := I4(1).ToUint(); return err }},
		{description: "ToFloat on empty", call: func() error { _, err := Item{}.ToFloat(); return err }},
	}

	for i, test := range tests {
		t.Logf("Test #%d: %s", i, test.description)
		require.ErrorIs(test.call(), ErrTypeMismatch)
	}
}
