package qpga

import (
	"github.com/pkg/errors"

	"github.com/openfluke/qpga/linalg"
)

var (
	// ErrDimension reports a state width other than 2^n, a parameter
	// vector whose length is not n, or a malformed real encoding.
	ErrDimension = linalg.ErrShape

	// ErrConfig reports invalid construction parameters or an input
	// encoding that does not match the circuit's flags.
	ErrConfig = errors.New("invalid configuration")

	// ErrNoForward is returned by Backward when there is no cached
	// forward pass to differentiate.
	ErrNoForward = errors.New("backward called before forward")
)
