package macro

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

var commandWords = map[string]Kind{
	"open":        Open,
	"close":       Close,
	"send-sml":    SendSML,
	"ss":          SendSML,
	"send-direct": SendDirect,
	"sd":          SendDirect,
	"wait":        Wait,
	"sleep":       Sleep,
}

// ParseScript parses a macro script.
//
// A script has one command per line; blank lines and lines starting with # are ignored.
// Command words are case-insensitive:
//
//	open
//	send-sml <alias>      (or ss <alias>)
//	send-direct <sml>     (or sd <sml>)
//	wait <SxFy>
//	sleep [seconds]
//	close
//
// The SML of send-direct may span several lines; it continues until a line ending with the
// message terminator '.'.
//
// Arguments are validated: a missing alias or SML, an invalid WAIT pattern (ErrPatternSyntax)
// and an invalid sleep duration are reported with their line number.
func ParseScript(text string) ([]Command, error) {
	var commands []Command

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		word, arg := line, ""
		if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
			word, arg = line[:i], strings.TrimSpace(line[i:])
		}

		kind, ok := commandWords[strings.ToLower(word)]
		if !ok {
			return nil, fmt.Errorf("%w: line %d: unknown command %q", ErrScriptSyntax, lineNo, word)
		}

		if kind == SendDirect {
			startLine := lineNo
			for !strings.HasSuffix(arg, ".") && scanner.Scan() {
				lineNo++
				arg += "\n" + strings.TrimSpace(scanner.Text())
			}
			if !strings.HasSuffix(arg, ".") {
				return nil, fmt.Errorf("%w: line %d: unterminated SML message", ErrScriptSyntax, startLine)
			}
		}

		cmd := Command{Kind: kind, Arg: arg}
		if err := validate(cmd); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		commands = append(commands, cmd)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptSyntax, err)
	}

	return commands, nil
}

// LoadScript reads and parses a macro script file, see ParseScript.
func LoadScript(path string) ([]Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load macro script: %w", err)
	}

	commands, err := ParseScript(string(data))
	if err != nil {
		return nil, fmt.Errorf("load macro script %s: %w", path, err)
	}

	return commands, nil
}

func validate(cmd Command) error {
	switch cmd.Kind {
	case Open, Close:
		if cmd.Arg != "" {
			return fmt.Errorf("%w: %s takes no argument", ErrScriptSyntax, cmd.Kind)
		}
	case SendSML, SendDirect:
		if cmd.Arg == "" {
			return fmt.Errorf("%w: %s requires an argument", ErrScriptSyntax, cmd.Kind)
		}
	case Wait:
		if _, err := ParsePattern(cmd.Arg); err != nil {
			return err
		}
	case Sleep:
		if _, err := cmd.SleepDuration(); err != nil {
			return err
		}
	}

	return nil
}
