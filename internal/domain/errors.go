package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation signals a malformed client request.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidRange signals an end date before the start date (or a range that is too wide).
	ErrInvalidRange = errors.New("invalid date range")
	// ErrDispatch signals that the task queue rejected at least one submission.
	ErrDispatch = errors.New("dispatch failed")
	// ErrSearchBackend signals any failure of the external search index.
	ErrSearchBackend = errors.New("search backend error")
	// ErrExportBuild signals a failure while building the spreadsheet export.
	ErrExportBuild = errors.New("export build failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)

// RangeTooWideError rejects a range spanning more days than one request may queue.
type RangeTooWideError struct {
	Days int
	Max  int
}

func (e *RangeTooWideError) Error() string {
	return fmt.Sprintf("%s: range of %d days exceeds limit %d", ErrInvalidRange.Error(), e.Days, e.Max)
}

func (e *RangeTooWideError) Unwrap() error { return ErrInvalidRange }

// DispatchError reports which days were accepted by the queue and which were not.
type DispatchError struct {
	Submitted []string
	Failed    []string
	Cause     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %d of %d days rejected [%s]: %v",
		ErrDispatch.Error(), len(e.Failed), len(e.Failed)+len(e.Submitted),
		strings.Join(e.Failed, ","), e.Cause)
}

// Unwrap lets errors.Is match both the sentinel and the underlying cause.
func (e *DispatchError) Unwrap() []error { return []error{ErrDispatch, e.Cause} }

// SearchBackendError collapses every search index fault into one kind.
// Cause is kept for operator logs only and must never reach a client.
type SearchBackendError struct {
	Keyword string
	Cause   error
}

func (e *SearchBackendError) Error() string {
	return fmt.Sprintf("%s (keyword %q): %v", ErrSearchBackend.Error(), e.Keyword, e.Cause)
}

func (e *SearchBackendError) Unwrap() []error { return []error{ErrSearchBackend, e.Cause} }

// NewSearchBackendError wraps cause unless it already is a SearchBackendError.
func NewSearchBackendError(keyword string, cause error) error {
	var sbe *SearchBackendError
	if errors.As(cause, &sbe) {
		return sbe
	}
	return &SearchBackendError{Keyword: keyword, Cause: cause}
}

// ExportBuildError wraps a spreadsheet construction fault.
type ExportBuildError struct {
	Cause error
}

func (e *ExportBuildError) Error() string {
	return fmt.Sprintf("%s: %v", ErrExportBuild.Error(), e.Cause)
}

func (e *ExportBuildError) Unwrap() []error { return []error{ErrExportBuild, e.Cause} }
