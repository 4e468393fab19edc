package canonize

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/underlay/canonize/urdna"
)

// Configuration failures, matched through *ConfigError with errors.Is
var (
	ErrMissingAlgorithm  = errors.New("no canonicalization algorithm given")
	ErrUnknownAlgorithm  = urdna.ErrUnknownAlgorithm
	ErrUnknownFormat     = errors.New("unknown format")
	ErrUnsupportedDigest = urdna.ErrUnsupportedDigest
	ErrURDNA2015Rejected = errors.New("URDNA2015 rejected, use RDFC-1.0")
	ErrUnsupportedInput  = errors.New("unsupported input type")
	ErrInvalidLimit      = errors.New("negative limits other than Unbounded are not allowed")
)

// Abort reasons, matched through *urdna.AbortError with errors.Is
var (
	ErrAborted                 = urdna.ErrAborted
	ErrIterationBudgetExceeded = urdna.ErrIterationBudgetExceeded
	ErrDeadlineExceeded        = urdna.ErrDeadlineExceeded
	ErrCancelled               = urdna.ErrCancelled
)

// ConfigError reports an invalid option. It is returned before any
// input is parsed or hashed.
type ConfigError struct {
	Option string
	Value  string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Option, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
