// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"errors"
	"fmt"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Validation failures of a transferred artifact.
var (
	ErrNotPDF   = errors.New("content is not a PDF")
	ErrHTMLPage = errors.New("server returned an HTML page")
	ErrTooSmall = errors.New("file below minimum size")
	ErrTooLarge = errors.New("file exceeds maximum size")
)

// DownloadError is the classified failure of one transfer attempt.
type DownloadError struct {
	Kind types.ErrorKind
	// Status is the HTTP status code, when the failure came from a reply.
	Status int
	// Permanent marks failures that another attempt cannot fix.
	Permanent bool
	Err       error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ErrorKind returns the failure classification.
func (e *DownloadError) ErrorKind() types.ErrorKind { return e.Kind }

// Retryable reports whether another attempt may succeed. Network, timeout,
// and validation failures are retried; filesystem failures are not.
func (e *DownloadError) Retryable() bool {
	if e.Permanent {
		return false
	}
	switch e.Kind {
	case types.KindNetwork, types.KindTimeout, types.KindValidation:
		return true
	}
	return false
}

func fsError(op string, err error) *DownloadError {
	return &DownloadError{Kind: types.KindFilesystem, Err: fmt.Errorf("%s: %w", op, err)}
}

func validationError(err error) *DownloadError {
	return &DownloadError{Kind: types.KindValidation, Err: err}
}
