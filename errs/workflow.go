package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Admin workflow errors
var (
	ErrFetch            = errors.New("fetch failed")
	ErrUpload           = errors.New("upload failed")
	ErrPersist          = errors.New("persist failed")
	ErrAuth             = errors.New("authentication failed")
	ErrValidation       = errors.New("validation failed")
	ErrSubmitInProgress = errors.New("submission in progress")
	ErrNothingPending   = errors.New("no deletion pending")
	ErrDeleteInProgress = errors.New("deletion in progress")
	ErrUnknownField     = errors.New("unknown field")
)

// OrphanedUploads records objects that were stored before a batch failed.
// They are not removed from the bucket.
type OrphanedUploads struct {
	URLs []string
	Err  error
}

func (o *OrphanedUploads) Error() string {
	if o.Err == nil {
		return "orphaned: " + strings.Join(o.URLs, ", ")
	}
	return fmt.Sprintf("%v (orphaned: %s)", o.Err, strings.Join(o.URLs, ", "))
}

func (o *OrphanedUploads) Unwrap() error {
	return o.Err
}

func NewFetchError(entity string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrFetch,
		Details:    fmt.Sprintf("Could not load %s", entity),
		Cause:      cause,
	}
}

// NewUploadError wraps a storage rejection. orphaned lists public URLs of
// objects uploaded earlier in the same batch.
func NewUploadError(field string, orphaned []string, cause error) *ApiErr {
	if len(orphaned) > 0 {
		cause = &OrphanedUploads{URLs: orphaned, Err: cause}
	}
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrUpload,
		Details:    fmt.Sprintf("Could not upload %s", field),
		Field:      field,
		Cause:      cause,
	}
}

// NewPersistError classifies a table write failure. The status code comes
// from NewDatabaseError; the sentinel is always ErrPersist.
func NewPersistError(operation string, cause error) *ApiErr {
	classified := NewDatabaseError(operation, "project", cause)
	return &ApiErr{
		StatusCode: classified.StatusCode,
		err:        ErrPersist,
		Details:    classified.Error(),
		Cause:      cause,
	}
}

func NewAuthError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrAuth,
		Details:    fmt.Sprintf("Could not %s", operation),
		Cause:      cause,
	}
}

func NewValidationError(field string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrValidation,
		Details:    fmt.Sprintf("%s is required", field),
		Field:      field,
	}
}

func NewSubmitInProgressError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrSubmitInProgress,
		Details:    "Wait for the current submission to finish",
	}
}

func NewNothingPendingError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrNothingPending,
	}
}

func NewDeleteInProgressError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrDeleteInProgress,
	}
}

func NewUnknownFieldError(field string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrUnknownField,
		Details:    fmt.Sprintf("Unknown field: %s", field),
		Field:      field,
	}
}

// Orphans returns the URLs carried by an upload error, if any.
func Orphans(err error) []string {
	var o *OrphanedUploads
	if errors.As(err, &o) {
		return o.URLs
	}
	return nil
}

// WithOrphans records urls as orphaned uploads on err, ahead of any the
// error already carries.
func WithOrphans(err error, urls []string) error {
	if err == nil || len(urls) == 0 {
		return err
	}
	var apiErr *ApiErr
	if !errors.As(err, &apiErr) {
		return &OrphanedUploads{URLs: urls, Err: err}
	}
	var existing *OrphanedUploads
	if apiErr.Cause != nil && errors.As(apiErr.Cause, &existing) {
		existing.URLs = append(append([]string(nil), urls...), existing.URLs...)
		return err
	}
	apiErr.Cause = &OrphanedUploads{URLs: urls, Err: apiErr.Cause}
	return err
}

// Message is the short, user-facing reason for a failure.
func Message(err error) string {
	var apiErr *ApiErr
	if errors.As(err, &apiErr) {
		if apiErr.Cause != nil {
			return fmt.Sprintf("%s: %v", apiErr.Error(), apiErr.Cause)
		}
		return apiErr.Error()
	}
	return err.Error()
}

func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetch)
}

func IsUploadError(err error) bool {
	return errors.Is(err, ErrUpload)
}

func IsPersistError(err error) bool {
	return errors.Is(err, ErrPersist)
}

func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
