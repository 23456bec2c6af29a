package pipeline

import (
	"github.com/pkg/errors"
)

var (
	ErrTooFewStages   = errors.New("pipeline needs at least two stages")
	ErrFirstNotSource = errors.New("first stage must be a source")
	ErrSourceNotFirst = errors.New("only the first stage can be a source")
	ErrSinkNotLast    = errors.New("only the last stage can be a sink")
	ErrAlreadyRun     = errors.New("pipeline already run")
	ErrMixedArgs      = errors.New("mixed positional and key=value arguments")
	ErrUnknownStage   = errors.New("unknown stage")
)

// ConfigError is returned for invalid pipelines and stage arguments. These
// errors are always detected before the first element is read.
type ConfigError struct {
	Stage string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Stage == "" {
		return "invalid pipeline: " + e.Err.Error()
	}
	return "invalid arguments for " + e.Stage + ": " + e.Err.Error()
}

func (e *ConfigError) Cause() error  { return e.Err }
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err as ConfigError for stage.
func NewConfigError(stage string, err error) error {
	return &ConfigError{Stage: stage, Err: err}
}

// ConfigErrorf formats a new ConfigError for stage.
func ConfigErrorf(stage string, format string, args ...interface{}) error {
	return &ConfigError{Stage: stage, Err: errors.Errorf(format, args...)}
}

// IsConfigError returns whether err or any wrapped error is a ConfigError.
func IsConfigError(err error) bool {
	var cerr *ConfigError
	return errors.As(err, &cerr)
}
