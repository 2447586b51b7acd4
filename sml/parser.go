package sml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/secs-simulator/hsms"
	"github.com/arloliu/secs-simulator/secs2"
)

const eof rune = -1

// nowFormatCode marks the <NOW> clock extension, which produces an ASCII item.
const nowFormatCode secs2.FormatCode = -2

// ErrParse indicates that the SML input is malformed. Every error returned by the parser wraps it.
var ErrParse = errors.New("sml parse error")

// HSMSParser is a parser for HSMS data messages in SML (SECS Message Language) format.
// It provides methods for parsing SML strings to HSMS data messages.
//
// Besides the SECS-II item types, the parser understands the clock extension <NOW>, <NOW[12]>
// and <NOW[16]>, which is replaced by an ASCII item holding the current time in the GEM clock
// format (YYMMDDhhmmss for 12, YYYYMMDDhhmmsscc for 16, the default).
type HSMSParser struct {
	pos      int
	len      int
	input    string
	data     string
	name     string
	stream   uint8
	function uint8
	wbit     bool
	hasNow   bool
	now      func() time.Time
}

// NewHSMSParser creates a new SML HSMS parser.
func NewHSMSParser() *HSMSParser {
	return &HSMSParser{now: time.Now}
}

// WithClock sets the clock used to render <NOW> items. Defaults to time.Now.
func (p *HSMSParser) WithClock(now func() time.Time) *HSMSParser {
	p.now = now
	return p
}

// ParseHSMS parses the input string using a new HSMSParser.
// It returns a slice of parsed HSMS data messages and an error if any occurred during parsing.
//
// The input string should be a valid UTF-8 encoded representation of one or more HSMS data messages.
//
// If any errors are encountered during parsing, no messages will be returned to ensure data integrity.
func ParseHSMS(input string) ([]*hsms.DataMessage, error) {
	return NewHSMSParser().Parse(input)
}

// Parse parses the input SML string and returns a slice of parsed HSMS data messages and an error
// if any occurred during parsing.
//
// Parsed messages have session id 0 and zero system bytes; they are addressed when sent.
//
// If any errors are encountered during parsing, an error wrapping ErrParse will be returned, and no
// messages will be returned to ensure data integrity.
func (p *HSMSParser) Parse(input string) ([]*hsms.DataMessage, error) {
	templates, err := p.ParseTemplates(input)
	if err != nil {
		return nil, err
	}

	messages := make([]*hsms.DataMessage, 0, len(templates))
	for _, tmpl := range templates {
		messages = append(messages, tmpl.msg)
	}

	return messages, nil
}

// ParseTemplates parses the input SML string like Parse, and keeps the source text of each message
// so messages containing <NOW> can be re-rendered when they are sent.
func (p *HSMSParser) ParseTemplates(input string) ([]*Template, error) {
	p.input = input
	p.data = input
	p.len = len(input)
	p.pos = 0

	templates := make([]*Template, 0, 1)

	for {
		p.skipComment()

		if p.peekNonSpaceRune() == eof {
			break
		}

		start := p.pos

		// clear message state
		p.name = ""
		p.stream = 0
		p.function = 0
		p.wbit = false
		p.hasNow = false

		// parse header
		err := p.parseHSMSHeader()
		if err != nil {
			return nil, err
		}
		// parse text
		item, err := p.parseHSMSText()
		if err != nil {
			return nil, err
		}

		if ch := p.nextNonSpaceRune(); ch != '.' {
			return nil, p.errorf("expect dot in the end of message, got %q", ch)
		}

		msg, err := hsms.NewDataMessage(p.stream, p.function, p.wbit, 0, nil, item)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}

		msg.SetName(p.name)

		templates = append(templates, &Template{
			msg:     msg,
			source:  p.input[start:p.pos],
			dynamic: p.hasNow,
			now:     p.now,
		})
	}

	return templates, nil
}

func (p *HSMSParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrParse, p.pos, fmt.Sprintf(format, args...))
}

func (p *HSMSParser) parseHSMSHeader() error {
	i := strings.IndexAny(p.data, "\n.<")
	if i < 0 {
		return p.errorf("invalid SML message without end symbol")
	}

	// get optional message name
	midx := strings.IndexByte(p.data[:i], byte(':'))
	if midx > 0 {
		p.name = strings.TrimSpace(p.data[:midx])
		p.forward(midx + 1)
	}

	// skip single or double quote
	ch := p.peekNonSpaceRune()
	if ch == '\'' || ch == '"' {
		p.forward(1)
	}

	// parse stream code for stream-function
	if ch := p.nextRune(); ch != 'S' && ch != 's' {
		return p.errorf("failed to parse stream code")
	}

	streamVal, err := p.nextCode()
	if err != nil {
		return err
	}

	if streamVal > 127 {
		return p.errorf("stream code range overflow, should be in range of [0, 128)")
	}

	p.stream = uint8(streamVal)

	// parse function code
	if ch := p.nextRune(); ch != 'F' && ch != 'f' {
		return p.errorf("failed to parse function code")
	}

	funcVal, err := p.nextCode()
	if err != nil {
		return err
	}

	if funcVal > 255 {
		return p.errorf("function code range overflow, should be in range of [0, 256)")
	}

	p.function = uint8(funcVal)

	// skip single or double quote for stream-function
	ch = p.peekNonSpaceRune()
	if ch == '\'' || ch == '"' {
		p.forward(1)
	}

	// find optional wbit
	if p.peekNonSpaceRune() == 'W' {
		p.wbit = true
		p.forward(1)
	}

	return nil
}

func (p *HSMSParser) parseHSMSText() (secs2.Item, error) {
	p.skipComment()

	ch := p.peekNonSpaceRune()
	if ch == '.' {
		return secs2.NewEmptyItem(), nil
	}

	return p.parseItem(0)
}

func (p *HSMSParser) parseItem(depth int) (secs2.Item, error) {
	if depth > secs2.MaxListDepth {
		return secs2.Item{}, p.errorf("list nesting depth exceeds %d", secs2.MaxListDepth)
	}

	ch := p.nextNonSpaceRune()
	if ch != '<' {
		return secs2.Item{}, p.errorf("expected '<', found %q", ch)
	}

	itemType, ok := p.parseItemType()
	if !ok {
		return secs2.Item{}, p.errorf("failed to parse item type")
	}
	_, maxSize, err := p.parseItemSize()
	if err != nil {
		return secs2.Item{}, err
	}

	p.skipComment()

	var item secs2.Item
	// parse data item body
	switch itemType {
	case secs2.ListFormatCode:
		item, err = p.parseList(depth, maxSize)
	case secs2.ASCIIFormatCode:
		item, err = p.parseASCII(maxSize)
	case secs2.BooleanFormatCode:
		item, err = p.parseBoolean(maxSize)
	case secs2.BinaryFormatCode:
		item, err = p.parseBinary(maxSize)
	case secs2.Float32FormatCode:
		item, err = p.parseFloat(4, maxSize)
	case secs2.Float64FormatCode:
		item, err = p.parseFloat(8, maxSize)
	case secs2.Int8FormatCode:
		item, err = p.parseInt(1, maxSize)
	case secs2.Int16FormatCode:
		item, err = p.parseInt(2, maxSize)
	case secs2.Int32FormatCode:
		item, err = p.parseInt(4, maxSize)
	case secs2.Int64FormatCode:
		item, err = p.parseInt(8, maxSize)
	case secs2.Uint8FormatCode:
		item, err = p.parseUint(1, maxSize)
	case secs2.Uint16FormatCode:
		item, err = p.parseUint(2, maxSize)
	case secs2.Uint32FormatCode:
		item, err = p.parseUint(4, maxSize)
	case secs2.Uint64FormatCode:
		item, err = p.parseUint(8, maxSize)
	case nowFormatCode:
		item, err = p.parseNow(maxSize)
	}

	if err != nil {
		return secs2.Item{}, err
	}

	p.skipComment()

	return item, nil
}

func (p *HSMSParser) parseList(depth int, size int) (secs2.Item, error) {
	childItems := make([]secs2.Item, 0, size)

	for {
		switch ch := p.peekNonSpaceRune(); ch {
		case '<':
			item, err := p.parseItem(depth + 1)
			if err != nil {
				return secs2.Item{}, err
			}
			childItems = append(childItems, item)

		case '>':
			p.forward(1)
			return secs2.NewListItem(childItems...), nil

		case eof:
			return secs2.Item{}, p.errorf("unexpected EOF in list item")

		default:
			return secs2.Item{}, p.errorf("expected child data item or '<', '>', found %q", ch)
		}
	}
}

// parseASCII parses the body of an ASCII data item.
//
// The body is a sequence of quoted strings and character codes, e.g. "abc" 0x0D 0x0A 'def'.
// Quoted strings may use single or double quotes; within a quoted string, a backslash escapes
// the quote character and the backslash itself. Character codes are written in any integer
// notation accepted by strconv.ParseUint with base 0 and must be in ASCII range.
func (p *HSMSParser) parseASCII(size int) (secs2.Item, error) {
	var sb strings.Builder
	sb.Grow(size)

	for {
		ch := p.nextNonSpaceRune()
		switch ch {
		case '>':
			return secs2.NewASCIIItem(sb.String()), nil

		case eof:
			return secs2.Item{}, p.errorf("invalid ASCII item, got EOF before item end")

		case '\'', '"':
			if err := p.readQuoted(byte(ch), &sb); err != nil {
				return secs2.Item{}, err
			}

		default:
			p.backward(1)
			end := strings.IndexAny(p.data, " \t\r\n>")
			if end < 0 {
				return secs2.Item{}, p.errorf("invalid ASCII item, got EOF before item end")
			}
			token := p.data[:end]
			val, err := strconv.ParseUint(token, 0, 8)
			if err != nil || val > 0x7F {
				return secs2.Item{}, p.errorf("expect ASCII character code, found %s", token)
			}
			sb.WriteByte(byte(val))
			p.forward(end)
		}
	}
}

func (p *HSMSParser) readQuoted(quote byte, sb *strings.Builder) error {
	escaped := false
	for i := 0; i < len(p.data); i++ {
		ch := p.data[i]
		switch {
		case escaped:
			if ch != quote && ch != '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == quote:
			p.forward(i + 1)
			return nil
		default:
			sb.WriteByte(ch)
		}
	}

	return p.errorf("unclosed quote string")
}

func (p *HSMSParser) parseBoolean(size int) (secs2.Item, error) {
	values, err := p.getItemValueStrings()
	if err != nil {
		return secs2.Item{}, err
	}

	items := make([]bool, 0, size)
	for _, val := range values {
		switch strings.ToUpper(val) {
		case "T", "TRUE":
			items = append(items, true)
		case "F", "FALSE":
			items = append(items, false)
		default:
			return secs2.Item{}, p.errorf("expect boolean, found %s", val)
		}
	}

	return secs2.NewBooleanItem(items...), nil
}

func (p *HSMSParser) parseBinary(size int) (secs2.Item, error) {
	values, err := p.getItemValueStrings()
	if err != nil {
		return secs2.Item{}, err
	}

	items := make([]byte, 0, size)
	for _, val := range values {
		item, err := strconv.ParseInt(val, 0, 0)
		if err != nil {
			return secs2.Item{}, p.errorf("expect binary value, found %s", val)
		}

		if !(0 <= item && item < 256) {
			return secs2.Item{}, p.errorf("binary value overflow, should be in range of [0, 256)")
		}

		items = append(items, byte(item))
	}

	return secs2.NewBinaryItem(items...), nil
}

func (p *HSMSParser) parseFloat(byteSize int, size int) (secs2.Item, error) {
	values, err := p.getItemValueStrings()
	if err != nil {
		return secs2.Item{}, err
	}

	items := make([]float64, 0, size)
	for _, val := range values {
		item, err := strconv.ParseFloat(val, byteSize*8)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return secs2.Item{}, p.errorf("F%d overflow", byteSize)
			}
			return secs2.Item{}, p.errorf("expect float, found %s", val)
		}

		items = append(items, item)
	}

	return wrapItem(secs2.NewFloatItem(byteSize, items...))
}

func (p *HSMSParser) parseInt(byteSize int, size int) (secs2.Item, error) {
	values, err := p.getItemValueStrings()
	if err != nil {
		return secs2.Item{}, err
	}

	items := make([]int64, 0, size)
	for _, val := range values {
		item, err := strconv.ParseInt(val, 0, byteSize*8)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return secs2.Item{}, p.errorf("I%d range overflow", byteSize)
			}
			return secs2.Item{}, p.errorf("expect signed integer, found %s", val)
		}

		items = append(items, item)
	}

	return wrapItem(secs2.NewIntItem(byteSize, items...))
}

func (p *HSMSParser) parseUint(byteSize int, size int) (secs2.Item, error) {
	values, err := p.getItemValueStrings()
	if err != nil {
		return secs2.Item{}, err
	}

	items := make([]uint64, 0, size)
	for _, val := range values {
		item, err := strconv.ParseUint(val, 0, byteSize*8)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return secs2.Item{}, p.errorf("U%d range overflow", byteSize)
			}
			return secs2.Item{}, p.errorf("expect unsigned integer, found %s", val)
		}

		items = append(items, item)
	}

	return wrapItem(secs2.NewUintItem(byteSize, items...))
}

// parseNow renders the <NOW> clock extension as an ASCII item.
func (p *HSMSParser) parseNow(size int) (secs2.Item, error) {
	values, err := p.getItemValueStrings()
	if err != nil {
		return secs2.Item{}, err
	}

	if len(values) > 0 {
		return secs2.Item{}, p.errorf("NOW item doesn't take values, found %s", values[0])
	}

	p.hasNow = true

	return secs2.NewASCIIItem(FormatClock(p.now(), size)), nil
}

// FormatClock formats t in the GEM clock format of the given length:
// 12 for YYMMDDhhmmss, and 16 (any other value) for YYYYMMDDhhmmsscc, where cc is centiseconds.
func FormatClock(t time.Time, length int) string {
	if length == 12 {
		return t.Format("060102150405")
	}

	return fmt.Sprintf("%s%02d", t.Format("20060102150405"), t.Nanosecond()/int(10*time.Millisecond))
}

func wrapItem(item secs2.Item, err error) (secs2.Item, error) {
	if err != nil {
		return secs2.Item{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return item, nil
}

func (p *HSMSParser) getItemValueStrings() ([]string, error) {
	rabIdx := strings.IndexRune(p.data, '>')
	if rabIdx == -1 {
		return nil, p.errorf("unclosed item, expect '>'")
	}

	items := strings.Fields(p.data[:rabIdx])
	p.forward(rabIdx + 1)

	return items, nil
}

func (p *HSMSParser) parseItemSize() (minSize, maxSize int, err error) {
	if p.nextNonSpaceRune() != '[' {
		p.backward(1)
		return 0, 0, nil
	}

	if p.peekNonSpaceRune() == '.' { // no minSize, only maxSize
		minSize = 0
		p.forward(2)
		maxSize, err = p.nextItemSize()
		if err != nil {
			return 0, 0, err
		}
	} else { // has minSize
		minSize, err = p.nextItemSize()
		if err != nil {
			return 0, 0, err
		}

		if p.peekNonSpaceRune() == '.' { // might has maxSize
			p.forward(2) // skip ".."
			if p.peekRune() == ']' {
				maxSize = minSize
			} else {
				maxSize, err = p.nextItemSize()
				if err != nil {
					return 0, 0, err
				}
			}
		} else { // no maxSize
			maxSize = minSize
		}
	}

	if p.nextNonSpaceRune() != ']' {
		return 0, 0, p.errorf("invalid item size")
	}

	if minSize > maxSize {
		return minSize, maxSize, p.errorf("minSize:%d > maxSize:%d", minSize, maxSize)
	}

	return minSize, maxSize, nil
}

func (p *HSMSParser) parseItemType() (secs2.FormatCode, bool) {
	p.skipSpace()
	if len(p.data) < 1 {
		return -1, false
	}

	firstChar := p.peekRune()

	var secondChar rune
	var hasSecondChar bool
	if len(p.data) >= 2 {
		secondChar = rune(p.data[1])
		hasSecondChar = true
	}

	switch firstChar {
	case 'L':
		p.forward(1)
		return secs2.ListFormatCode, true

	case 'A':
		p.forward(1)
		return secs2.ASCIIFormatCode, true

	case 'N':
		if strings.HasPrefix(p.data, "NOW") {
			p.forward(3)
			return nowFormatCode, true
		}

	case 'B':
		if hasSecondChar {
			switch secondChar {
			case 'O':
				if strings.HasPrefix(p.data, "BOOLEAN") {
					p.forward(7)
					return secs2.BooleanFormatCode, true
				}
				return -1, false
			case ' ', '[', '>', '\t', '\r', '\n':
			default:
				return -1, false
			}
		}
		p.forward(1)
		return secs2.BinaryFormatCode, true

	case 'F':
		if !hasSecondChar {
			return -1, false
		}

		switch secondChar {
		case '4':
			p.forward(2)
			return secs2.Float32FormatCode, true
		case '8':
			p.forward(2)
			return secs2.Float64FormatCode, true
		}

	case 'I', 'U':
		if !hasSecondChar {
			return -1, false
		}

		formatCode := getIntFormatCode(firstChar, secondChar)
		if formatCode < 0 {
			return -1, false
		}
		p.forward(2)
		return formatCode, true
	}

	return -1, false
}

func getIntFormatCode(signed rune, byteSize rune) secs2.FormatCode {
	if signed == 'I' {
		switch byteSize {
		case '1':
			return secs2.Int8FormatCode
		case '2':
			return secs2.Int16FormatCode
		case '4':
			return secs2.Int32FormatCode
		case '8':
			return secs2.Int64FormatCode
		default:
			return -1
		}
	} else if signed == 'U' {
		switch byteSize {
		case '1':
			return secs2.Uint8FormatCode
		case '2':
			return secs2.Uint16FormatCode
		case '4':
			return secs2.Uint32FormatCode
		case '8':
			return secs2.Uint64FormatCode
		default:
			return -1
		}
	}

	return -1
}

func (p *HSMSParser) forward(n int) bool {
	if p.pos+n <= p.len {
		p.pos += n
		p.data = p.input[p.pos:]
		return true
	}
	return false
}

func (p *HSMSParser) backward(n int) {
	if p.pos-n >= 0 {
		p.pos -= n
		p.data = p.input[p.pos:]
	}
}

func (p *HSMSParser) skipSpace() bool {
	for i, r := range p.data {
		switch r {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return p.forward(i)
		}
	}
	return false
}

// skipComment skips spaces and any number of consecutive // line and /* block */ comments.
func (p *HSMSParser) skipComment() {
	for p.skipSpace() {
		switch {
		case strings.HasPrefix(p.data, "//"):
			i := strings.Index(p.data, "\n")
			if i < 0 {
				p.forward(len(p.data))
				return
			}
			p.forward(i + 1)
		case strings.HasPrefix(p.data, "/*"):
			i := strings.Index(p.data, "*/")
			if i < 0 {
				p.forward(len(p.data))
				return
			}
			p.forward(i + 2)
		default:
			return
		}
	}
}

func (p *HSMSParser) peekRune() rune {
	if len(p.data) == 0 {
		return eof
	}
	return rune(p.data[0])
}

func (p *HSMSParser) peekNonSpaceRune() rune {
	if !p.skipSpace() {
		return eof
	}
	return p.peekRune()
}

func (p *HSMSParser) nextRune() rune {
	if p.pos >= p.len {
		return eof
	}

	r := rune(p.data[0])
	if !p.forward(1) {
		return eof
	}
	return r
}

func (p *HSMSParser) nextNonSpaceRune() rune {
	if !p.skipSpace() {
		return eof
	}
	return p.nextRune()
}

// nextCode reads the decimal stream or function code following 'S' or 'F'.
func (p *HSMSParser) nextCode() (int, error) {
	end := 0
	for end < len(p.data) && p.data[end] >= '0' && p.data[end] <= '9' {
		end++
	}

	if end == 0 || end == len(p.data) {
		return 0, p.errorf("invalid sml code")
	}

	code, err := strconv.Atoi(p.data[:end])
	if err != nil {
		return 0, p.errorf("invalid sml code %s", p.data[:end])
	}
	p.forward(end)

	return code, nil
}

func (p *HSMSParser) nextItemSize() (int, error) {
	end := 0
	for end < len(p.data) && p.data[end] >= '0' && p.data[end] <= '9' {
		end++
	}

	if end == 0 {
		return 0, p.errorf("invalid item size")
	}

	size, err := strconv.Atoi(p.data[:end])
	if err != nil {
		return 0, p.errorf("invalid item size %s", p.data[:end])
	}
	p.forward(end)

	return size, nil
}
