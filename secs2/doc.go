// Package secs2 provides the SECS-II data item model and its binary codec.
//
// An Item is an immutable, self-describing value: a list of items, an ASCII string, binary
// bytes, booleans, signed or unsigned integers of 1, 2, 4 or 8 bytes, or floats of 4 or 8 bytes.
// Item is a single struct type whose Kind selects the variant; every operation switches on the
// kind, so adding a format forces a review of each match site.
//
// Key Features:
//   - Binary Codec: Encode and Decode translate an item to and from its wire form. The header
//     length field uses the minimal number of bytes, and lengths above 0xFFFFFF are rejected.
//   - Path Access: Get navigates nested lists by index; GetASCII, GetUint32 and the other
//     terminal getters extract a scalar, failing with a TypeMismatchError on the wrong variant.
//   - Canonical Form: ToCanonical, Equal and Hash define structural equality; ToDisplay and
//     ToSML render the item for humans.
//
// Usage Example:
//
//	// Create a list item
//	listItem := secs2.L(
//	    secs2.U4(1, 2, 3),
//	    secs2.A("hello"),
//	)
//
//	// Encode the item to bytes
//	data, err := listItem.ToBytes()
//
//	// Decode it back
//	decoded, n, err := secs2.Decode(data)
//
//	// Read the second value of the first child
//	v, err := decoded.GetUint32(0, 1) // 2
//
//	// Get SML representation of list item
//	sml := listItem.ToSML()
package secs2
