package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExtractionFailed is matched by every error returned once a chain is exhausted.
	ErrExtractionFailed = errors.New("extraction failed")

	ErrNavigationTimeout = errors.New("navigation timeout")
	ErrNetwork           = errors.New("network error")
	ErrRedirectBlocked   = errors.New("redirected away from platform")
	ErrUnusableResult    = errors.New("unusable result")
	ErrNotApplicable     = errors.New("strategy not applicable")
	ErrNoChain           = errors.New("no extraction chain for platform")
	ErrUnknownStrategy   = errors.New("unknown extraction strategy")
)

// Attempt records the last error of one strategy in a chain.
type Attempt struct {
	Strategy string
	Err      error
}

// ExtractionError is returned when no strategy produced a usable result.
type ExtractionError struct {
	URL      string
	Attempts []Attempt
}

func (e *ExtractionError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%s for %s: no strategies attempted", ErrExtractionFailed, e.URL)
	}

	return fmt.Sprintf("%s for %s: %s", ErrExtractionFailed, e.URL, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrExtractionFailed) true.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}

// Unwrap exposes every strategy error.
func (e *ExtractionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}

	return errs
}

// IsTransient reports whether a strategy error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNavigationTimeout) || errors.Is(err, ErrNetwork)
}

// classify maps raw strategy errors onto the strategy-level taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNavigationTimeout),
		errors.Is(err, ErrNetwork),
		errors.Is(err, ErrRedirectBlocked),
		errors.Is(err, ErrUnusableResult),
		errors.Is(err, ErrNotApplicable),
		errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrNavigationTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
}
