package macro

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the kind of a macro command.
type Kind int

const (
	// Open opens the communicator and waits until the peer is connected.
	Open Kind = iota
	// Close closes the communicator.
	Close
	// SendSML sends the template registered under the alias Arg.
	SendSML
	// SendDirect sends the SML message Arg.
	SendDirect
	// Wait waits until a message matching the SxFy pattern Arg is received.
	Wait
	// Sleep suspends for Arg seconds, 1 second when Arg is empty.
	Sleep
)

// DefaultSleep is the duration of a SLEEP command without argument.
const DefaultSleep = time.Second

var kindNames = [...]string{
	Open:       "open",
	Close:      "close",
	SendSML:    "send-sml",
	SendDirect: "send-direct",
	Wait:       "wait",
	Sleep:      "sleep",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}

	return kindNames[k]
}

// Command is a macro script command.
type Command struct {
	Kind Kind
	Arg  string
}

// OpenCommand returns an OPEN command.
func OpenCommand() Command { return Command{Kind: Open} }

// CloseCommand returns a CLOSE command.
func CloseCommand() Command { return Command{Kind: Close} }

// SendSMLCommand returns a SEND_SML command of the template alias.
func SendSMLCommand(alias string) Command { return Command{Kind: SendSML, Arg: alias} }

// SendDirectCommand returns a SEND_DIRECT command of the SML text.
func SendDirectCommand(text string) Command { return Command{Kind: SendDirect, Arg: text} }

// WaitCommand returns a WAIT command of the SxFy pattern.
func WaitCommand(pattern string) Command { return Command{Kind: Wait, Arg: pattern} }

// SleepCommand returns a SLEEP command of d.
func SleepCommand(d time.Duration) Command {
	return Command{Kind: Sleep, Arg: strconv.FormatFloat(d.Seconds(), 'f', -1, 64)}
}

// String returns the script line of the command.
func (c Command) String() string {
	if c.Arg == "" {
		return c.Kind.String()
	}

	return c.Kind.String() + " " + c.Arg
}

// SleepDuration returns the duration of a SLEEP command.
func (c Command) SleepDuration() (time.Duration, error) {
	arg := strings.TrimSpace(c.Arg)
	if arg == "" {
		return DefaultSleep, nil
	}

	seconds, err := strconv.ParseFloat(arg, 64)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("%w: invalid sleep seconds %q", ErrScriptSyntax, c.Arg)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}
