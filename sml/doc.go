// Package sml parses SML (SECS Message Language) text into HSMS data messages.
//
// SML is a human-readable text-based format for representing SECS-II messages, which are used for
// communication between host systems and semiconductor manufacturing equipment. The simulator
// uses it for reply templates, for messages sent directly by the operator and for macro scripts.
//
// A message is an optional name, the stream-function header with an optional W bit, an optional
// data item, and a terminating dot:
//
//	MessageName: 'S1F1' W
//	<L[2]
//	    <A[4] "test">
//	    <U4 1 2>
//	>
//	.
//
// ASCII items accept quoted strings in single or double quotes, with backslash escapes for the
// quote character and the backslash, mixed with character codes such as 0x0A.
//
// The <NOW>, <NOW[12]> and <NOW[16]> items are expanded to the current time in the GEM clock
// format. Templates built by ParseTemplates keep their source text, so a template containing a
// clock item renders a new value every time its Message method is called.
//
// Usage Example:
//
//	messages, err := sml.ParseHSMS(`S1F1 W .`)
//	if err != nil {
//	    // errors.Is(err, sml.ErrParse) == true
//	}
package sml
