package secs2

var (
	L       = NewListItem
	A       = NewASCIIItem
	B       = NewBinaryItem
	BOOLEAN = NewBooleanItem

	I1 = NewInt8Item
	I2 = NewInt16Item
	I4 = NewInt32Item
	I8 = NewInt64Item

	U1 = NewUint8Item
	U2 = NewUint16Item
	U4 = NewUint32Item
	U8 = NewUint64Item

	F4 = NewFloat32Item
	F8 = NewFloat64Item
)
