package macro

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arloliu/secs-simulator/secs2"
)

var patternRegexp = regexp.MustCompile(`^[Ss]([0-9]{1,3})[Ff]([0-9]{1,3})$`)

// Pattern matches messages of one stream-function.
type Pattern struct {
	Stream   uint8
	Function uint8
}

// ParsePattern parses an SxFy pattern such as "S6F11"; surrounding whitespace is ignored and
// the letters are case-insensitive.
//
// It returns an error wrapping ErrPatternSyntax for any other text, including codes out of range.
func ParsePattern(text string) (Pattern, error) {
	m := patternRegexp.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Pattern{}, fmt.Errorf("%w: %q", ErrPatternSyntax, text)
	}

	stream, _ := strconv.Atoi(m[1])
	function, _ := strconv.Atoi(m[2])
	if stream > 127 || function > 255 {
		return Pattern{}, fmt.Errorf("%w: %q out of range", ErrPatternSyntax, text)
	}

	return Pattern{Stream: uint8(stream), Function: uint8(function)}, nil
}

// Matches reports whether msg has the stream and function codes of the pattern.
func (p Pattern) Matches(msg secs2.SECS2Message) bool {
	return msg.StreamCode() == p.Stream && msg.FunctionCode() == p.Function
}

func (p Pattern) String() string {
	return fmt.Sprintf("S%dF%d", p.Stream, p.Function)
}
