package errors

import (
	"errors"
	"fmt"
)

// DiscoveryError reports that a watched directory could not be listed.
// The poll cycle is abandoned and retried on the next tick.
type DiscoveryError struct {
	Directory string
	Err       error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery of %s failed: %v", e.Directory, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Classification implements the classifier interface.
func (e *DiscoveryError) Classification() ErrorClass { return ErrorTransient }

// SplitError reports that a discovered file could not be turned into messages.
// No message for the file has been emitted when this error is returned.
type SplitError struct {
	Path string
	Err  error
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("split of %s failed: %v", e.Path, e.Err)
}

func (e *SplitError) Unwrap() error { return e.Err }

// Classification implements the classifier interface.
func (e *SplitError) Classification() ErrorClass { return ErrorTransient }

// ResolutionError reports that a sink target could not be computed for a
// message. Resolution is deterministic, so the message is never retried.
type ResolutionError struct {
	Expression string
	Reason     string
	Err        error
}

func (e *ResolutionError) Error() string {
	msg := "resolution failed"
	if e.Expression != "" {
		msg = fmt.Sprintf("resolution of %q failed", e.Expression)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Classification implements the classifier interface.
func (e *ResolutionError) Classification() ErrorClass { return ErrorInvalid }

// WriteError reports a filesystem failure while materializing a message.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write to %s failed: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Classification implements the classifier interface. An existing target in
// fail mode can never succeed on retry; everything else may.
func (e *WriteError) Classification() ErrorClass {
	if errors.Is(e.Err, ErrTargetExists) {
		return ErrorInvalid
	}
	return ErrorTransient
}

// IsDiscoveryError reports whether err contains a DiscoveryError.
func IsDiscoveryError(err error) bool {
	var target *DiscoveryError
	return errors.As(err, &target)
}

// IsSplitError reports whether err contains a SplitError.
func IsSplitError(err error) bool {
	var target *SplitError
	return errors.As(err, &target)
}

// IsResolutionError reports whether err contains a ResolutionError.
func IsResolutionError(err error) bool {
	var target *ResolutionError
	return errors.As(err, &target)
}

// IsWriteError reports whether err contains a WriteError.
func IsWriteError(err error) bool {
	var target *WriteError
	return errors.As(err, &target)
}
