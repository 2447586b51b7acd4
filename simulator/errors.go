package simulator

import (
	"errors"

	"github.com/arloliu/secs-simulator/sml"
)

var (
	// ErrNotOpen indicates that the simulator isn't connected to a peer.
	ErrNotOpen = errors.New("simulator not open")

	// ErrUnknownAlias indicates that no reply template is registered under the alias.
	ErrUnknownAlias = errors.New("unknown template alias")

	// ErrParse indicates that an SML text can't be parsed. It's the same error as sml.ErrParse.
	ErrParse = sml.ErrParse

	// ErrDuplicateAlias indicates that a template is already registered under the alias.
	ErrDuplicateAlias = errors.New("duplicate template alias")

	// ErrInvalidConfig indicates that a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid simulator config")
)
