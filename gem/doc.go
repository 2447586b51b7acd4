// Package gem provides functions for creating GEM (Generic Equipment Model) messages
// according to the SEMI E5/E30 standards.
//
// It covers the error reports the simulator sends on its own: the stream 9 messages (S9F1
// unrecognized device id, S9F9 transaction timeout, ...) which carry the 10-byte header of the
// offending message, and the SxF0 abort replies.
//
// Usage Example:
//
//	// report an unrecognized device id back to the peer
//	s9f1 := gem.S9F1(primary.Header())
//	msg, err := s9f1.ToDataMessage(deviceID, hsms.GenerateMsgSystemBytes())
package gem
