// Package hsms provides the HSMS (High-Speed SECS Message Services, SEMI E37) data message used by
// the simulator to exchange SECS-II messages with a peer.
//
// A DataMessage carries the stream and function codes, the wait bit, the session(device) id,
// the 4-byte system bytes and a secs2.Item body. Its 10-byte header is derived from these fields
// and is the identity embedded in S9Fx error replies.
//
// Framing:
//   - ToBytes produces a complete HSMS frame: 4-byte message length, 10-byte header, message text.
//   - DecodeHSMSMessage and DecodeMessage are the inverse; control messages are rejected with
//     ErrNotDataMsg, as session control belongs to the transport.
//   - ReadMessage reads one frame from an io.Reader.
//
// Stream/Function Quote Customization:
// The package provides functions to customize the quoting of stream and function codes in SML (SECS Message Language)
// representations of HSMS messages:
//   - UseStreamFunctionNoQuote: No quotes around stream and function codes.
//   - UseStreamFunctionSingleQuote: Single quotes (') around stream and function codes.
//   - UseStreamFunctionDoubleQuote: Double quotes (") around stream and function codes.
package hsms
