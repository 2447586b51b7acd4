package macro

import (
	"errors"
	"fmt"

	"github.com/arloliu/secs-simulator/simulator"
)

var (
	// ErrPatternSyntax indicates a WAIT pattern that isn't of the form SxFy.
	ErrPatternSyntax = errors.New("invalid stream-function pattern")

	// ErrScriptSyntax indicates a malformed macro script line.
	ErrScriptSyntax = errors.New("invalid macro script")

	// ErrDisconnected indicates that the connection was closed while a command was waiting.
	ErrDisconnected = simulator.ErrDisconnected

	// ErrStopped indicates that the running script was stopped by Executor.Stop or replaced by
	// another script.
	ErrStopped = errors.New("macro stopped")
)

// CommandError reports the command that aborted a script and its cause.
type CommandError struct {
	// Index is the position of the command in the script, from 0.
	Index   int
	Command Command
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("macro command #%d %s: %v", e.Index+1, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
