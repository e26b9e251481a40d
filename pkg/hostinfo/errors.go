package hostinfo

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/opd-ai/hostinfo/internal/platform"
)

var (
	// ErrUnavailable reports that a value cannot be determined on this host.
	// Resource exhaustion while building a value is reported the same way.
	ErrUnavailable = platform.ErrUnavailable

	// ErrUnsupportedPlatform reports that no implementation exists for an OS.
	ErrUnsupportedPlatform = platform.ErrUnsupported
)

// Unknown is the core count returned when every strategy failed.
const Unknown = platform.Unknown

// UnknownBytes is the RAM size returned when the memory facility failed.
const UnknownBytes = platform.UnknownBytes

// ErrorCategory classifies errors surfaced by this package.
type ErrorCategory int

const (
	ErrorCategoryUnknown ErrorCategory = iota
	// ErrorCategoryUnavailable is for values the host cannot report.
	ErrorCategoryUnavailable
	// ErrorCategoryResource is for allocation and capacity failures.
	ErrorCategoryResource
	// ErrorCategoryEnvironment is for a broken runtime environment.
	ErrorCategoryEnvironment
	// ErrorCategoryConfig is for bad options or configuration files.
	ErrorCategoryConfig
	// ErrorCategoryRemote is for SSH connection and command errors.
	ErrorCategoryRemote
	// ErrorCategoryIO is for file and directory errors.
	ErrorCategoryIO
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryUnavailable:
		return "unavailable"
	case ErrorCategoryResource:
		return "resource"
	case ErrorCategoryEnvironment:
		return "environment"
	case ErrorCategoryConfig:
		return "config"
	case ErrorCategoryRemote:
		return "remote"
	case ErrorCategoryIO:
		return "io"
	default:
		return "unknown"
	}
}

// CategorizedError is an error tagged with a category, the time it was
// created and free-form context such as the remote host or cache path.
type CategorizedError struct {
	Err       error
	Category  ErrorCategory
	Timestamp time.Time
	Context   map[string]string
}

func (e *CategorizedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] (no error)", e.Category)
	}
	return fmt.Sprintf("[%s] %s", e.Category, e.Err.Error())
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorizedError tags err with category.
func NewCategorizedError(err error, category ErrorCategory) *CategorizedError {
	return &CategorizedError{
		Err:       err,
		Category:  category,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
	}
}

// WithContext records key=value on e and returns e for chaining.
func (e *CategorizedError) WithContext(key, value string) *CategorizedError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// CategoryOf returns the category of the first CategorizedError in err's
// chain, or ErrorCategoryUnknown.
func CategoryOf(err error) ErrorCategory {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ErrorCategoryUnknown
}

// categorize picks a category for an error coming out of the platform or
// filesystem layers.
func categorize(err error) ErrorCategory {
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrUnsupportedPlatform):
		return ErrorCategoryUnavailable
	case errors.As(err, &pathErr):
		return ErrorCategoryIO
	}
	return ErrorCategoryUnknown
}

// wrap returns err as a CategorizedError, keeping an existing category.
func wrap(err error, category ErrorCategory) error {
	if err == nil {
		return nil
	}
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return err
	}
	return NewCategorizedError(err, category)
}
