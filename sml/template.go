package sml

import (
	"fmt"
	"time"

	"github.com/arloliu/secs-simulator/hsms"
)

// Template is a parsed SML message together with its source text.
//
// A template whose body contains a <NOW> item is dynamic: Message re-parses the source so the clock
// value reflects the time of the call.
type Template struct {
	msg     *hsms.DataMessage
	source  string
	dynamic bool
	now     func() time.Time
}

// NewTemplate parses input, which must contain exactly one SML message.
func NewTemplate(input string) (*Template, error) {
	templates, err := NewHSMSParser().ParseTemplates(input)
	if err != nil {
		return nil, err
	}

	if len(templates) != 1 {
		return nil, fmt.Errorf("%w: expect exactly one message, got %d", ErrParse, len(templates))
	}

	return templates[0], nil
}

// ParseTemplates parses the input string using a new HSMSParser and returns one template per message.
func ParseTemplates(input string) ([]*Template, error) {
	return NewHSMSParser().ParseTemplates(input)
}

// Name returns the message name, empty when the message is unnamed.
func (t *Template) Name() string { return t.msg.Name() }

// StreamCode returns the stream code of the template message.
func (t *Template) StreamCode() uint8 { return t.msg.StreamCode() }

// FunctionCode returns the function code of the template message.
func (t *Template) FunctionCode() uint8 { return t.msg.FunctionCode() }

// WaitBit reports whether the template message expects a reply.
func (t *Template) WaitBit() bool { return t.msg.WaitBit() }

// IsDynamic reports whether the template contains a <NOW> item.
func (t *Template) IsDynamic() bool { return t.dynamic }

// Source returns the SML text the template was parsed from.
func (t *Template) Source() string { return t.source }

// Message returns a fresh copy of the template message, ready to be addressed and sent.
//
// For dynamic templates the clock items are rendered again; should the re-parse fail, which can't
// happen for a source that parsed once, the originally parsed message is returned.
func (t *Template) Message() *hsms.DataMessage {
	if t.dynamic {
		p := NewHSMSParser()
		if t.now != nil {
			p.WithClock(t.now)
		}

		if templates, err := p.ParseTemplates(t.source); err == nil && len(templates) == 1 {
			return templates[0].msg
		}
	}

	return t.msg.Clone()
}
