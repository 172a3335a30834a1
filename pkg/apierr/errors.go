// Package apierr defines the error taxonomy shared by all SGS client packages.
//
// Four kinds cover every failure the pipeline can surface:
//
//   - NotFoundError: unknown series code or unresolvable catalog name
//   - InvalidParamsError: malformed date, inverted range, bad input
//   - UpstreamError: error status surfaced by the SGS API
//   - TimeoutError: retry budget exhausted on a retryable condition
//
// Retryable conditions (throttling, server errors, network timeouts) are
// absorbed inside pkg/client up to its retry budget; everything else
// propagates unchanged to callers. Use errors.As to recover the concrete
// kind, or the Is* helpers for a plain yes/no check.
package apierr

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a series that does not exist, either upstream
// (HTTP 404) or in the local catalog.
type NotFoundError struct {
	// Code is the numeric series code, or 0 when a catalog name failed
	// to resolve.
	Code int

	// Name is the catalog name that failed to resolve, if any.
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("series %q not found in catalog (use catalog.List to see known series)", e.Name)
	}
	return fmt.Sprintf("series %d not found in the SGS API", e.Code)
}

// InvalidParamsError indicates malformed caller input: an unparseable
// date, an inverted range, or a reference of the wrong kind.
type InvalidParamsError struct {
	Reason string
}

func (e *InvalidParamsError) Error() string {
	return "invalid parameters: " + e.Reason
}

// InvalidParamsf builds an InvalidParamsError with a formatted reason.
func InvalidParamsf(format string, args ...any) *InvalidParamsError {
	return &InvalidParamsError{Reason: fmt.Sprintf(format, args...)}
}

// UpstreamError indicates a terminal error status returned by the SGS
// API, e.g. a 400 for malformed query parameters.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("SGS API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("SGS API error (status %d)", e.StatusCode)
}

// TimeoutError indicates that all retry attempts for one series request
// were exhausted on a retryable condition (throttling, 5xx, network
// timeout). Attempts carries the attempt count for diagnostics.
type TimeoutError struct {
	Code     int
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("series %d: SGS API did not respond after %d attempts", e.Code, e.Attempts)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsInvalidParams reports whether err is (or wraps) an InvalidParamsError.
func IsInvalidParams(err error) bool {
	var target *InvalidParamsError
	return errors.As(err, &target)
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// Terminal reports whether err must not be retried. Retry exhaustion is
// terminal too: by the time a TimeoutError exists the budget is spent.
func Terminal(err error) bool {
	return IsNotFound(err) || IsInvalidParams(err) || IsUpstream(err) || IsTimeout(err)
}
