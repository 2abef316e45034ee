package serp

import "fmt"

// InitializationError marks a fatal session-aborting failure: browser launch
// failed or no usable proxy could be obtained. It is the only error category
// that propagates out of a session run.
type InitializationError struct {
	Reason string
	Err    error
}

func (e *InitializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session initialization failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("session initialization failed: %s", e.Reason)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// NavigationTimeoutError is a per-keyword recoverable failure carrying the
// URL that failed to load.
type NavigationTimeoutError struct {
	URL string
	Err error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationTimeoutError) Unwrap() error {
	return e.Err
}
