package hsms

// DataMsgType is the SType of an HSMS data message carrying SECS-II data.
// Control messages (select, linktest, separate...) carry a non-zero SType and are handled by
// the transport below this package.
const DataMsgType = 0

var sfQuote = "'"

// UseStreamFunctionNoQuote sets the quoting style for stream and function codes in SML to use no quotes.
// This affects both the generation of SML strings (ToSML methods) and the parsing of SML strings.
func UseStreamFunctionNoQuote() {
	sfQuote = ""
}

// UseStreamFunctionSingleQuote sets the quoting style for stream and function codes in SML to use single quotes (').
// This affects both the generation of SML strings and the parsing of SML strings.
func UseStreamFunctionSingleQuote() {
	sfQuote = "'"
}

// UseStreamFunctionDoubleQuote sets the quoting style for stream and function codes in SML to use double quotes (").
// This affects both the generation of SML strings and the parsing of SML strings.
func UseStreamFunctionDoubleQuote() {
	sfQuote = "\""
}

// StreamFunctionQuote returns the current quoting character used for stream and function codes in SML.
// It returns an empty string if no quotes are used, a single quote (') if single quotes are used,
// or a double quote (") if double quotes are used.
func StreamFunctionQuote() string {
	return sfQuote
}

// MsgInfo returns a structued message information without SML string, for use as logger key/values.
func MsgInfo(msg *DataMessage, keyValues ...any) []any {
	return msgInfo(msg, false, keyValues...)
}

// MsgInfoSML returns a structued message information with SML string, for use as logger key/values.
func MsgInfoSML(msg *DataMessage, keyValues ...any) []any {
	return msgInfo(msg, true, keyValues...)
}

func msgInfo(msg *DataMessage, sml bool, keyValues ...any) []any { //nolint:revive
	info := []any{
		"id", msg.ID(),
		"device_id", msg.SessionID(),
		"s", msg.StreamCode(),
		"f", msg.FunctionCode(),
		"w", msg.WaitBit(),
	}

	if sml && !msg.Item().IsEmpty() {
		info = append(info, "sml", msg.Item().ToSML())
	}

	result := make([]any, 0, len(keyValues)+len(info))
	result = append(result, keyValues...)
	result = append(result, info...)

	return result
}
