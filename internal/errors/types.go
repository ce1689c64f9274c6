// Package errors provides the structured error type shared by the watch,
// transform and merge layers of srcmerge.
//
// Every failure the pipeline can observe is classified into one of the
// categories below. Only startup and configuration errors are fatal; all
// other categories are logged by the orchestrator and the affected unit of
// work (one file read, one merge write) is abandoned.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeStartup           ErrorType = "startup"
	ErrorTypeWatchRegistration ErrorType = "watch_registration"
	ErrorTypeRead              ErrorType = "read"
	ErrorTypeWrite             ErrorType = "write"
	ErrorTypeUnrecognizedWatch ErrorType = "unrecognized_watch_key"
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeInternal          ErrorType = "internal"
)

// MergeError is a structured error type with context.
type MergeError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *MergeError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *MergeError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *MergeError) Is(target error) bool {
	var t *MergeError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *MergeError) WithContext(key string, value interface{}) *MergeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the file or directory the error refers to.
func (e *MergeError) WithPath(path string) *MergeError {
	e.FilePath = path

	return e
}

// Error codes.
const (
	ErrCodeRootMissing      = "ERR_ROOT_MISSING"
	ErrCodeRootNotDirectory = "ERR_ROOT_NOT_DIR"
	ErrCodeRootWalk         = "ERR_ROOT_WALK"
	ErrCodeWatcherInit      = "ERR_WATCHER_INIT"
	ErrCodeWatchAdd         = "ERR_WATCH_ADD"
	ErrCodeFileOpen         = "ERR_FILE_OPEN"
	ErrCodeFileDecode       = "ERR_FILE_DECODE"
	ErrCodeOutputTemp       = "ERR_OUTPUT_TEMP"
	ErrCodeOutputWrite      = "ERR_OUTPUT_WRITE"
	ErrCodeOutputRename     = "ERR_OUTPUT_RENAME"
	ErrCodeUnknownDirectory = "ERR_UNKNOWN_DIRECTORY"
	ErrCodeInvalidConfig    = "ERR_INVALID_CONFIG"
	ErrCodeUnknownProfile   = "ERR_UNKNOWN_PROFILE"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeInvalidArguments = "ERR_INVALID_ARGS"
	ErrCodeMetricsWrite     = "ERR_METRICS_WRITE"
)

// NewStartupError creates a fatal startup error.
func NewStartupError(code, message string, cause error) *MergeError {
	return &MergeError{
		Type:        ErrorTypeStartup,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewWatchRegistrationError creates an error for a directory that could not
// be added to the watch set.
func NewWatchRegistrationError(code, message string, cause error) *MergeError {
	return &MergeError{
		Type:        ErrorTypeWatchRegistration,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewReadError creates an error for a source file that could not be read.
func NewReadError(code, message string, cause error) *MergeError {
	return &MergeError{
		Type:        ErrorTypeRead,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewWriteError creates an error for a merge output that could not be written.
func NewWriteError(code, message string, cause error) *MergeError {
	return &MergeError{
		Type:        ErrorTypeWrite,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewUnrecognizedWatchError creates an error for an event whose directory is
// no longer tracked.
func NewUnrecognizedWatchError(dir string) *MergeError {
	return &MergeError{
		Type:        ErrorTypeUnrecognizedWatch,
		Code:        ErrCodeUnknownDirectory,
		Message:     "event for untracked directory",
		FilePath:    dir,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *MergeError {
	return &MergeError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *MergeError {
	return &MergeError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Recoverable
	}

	return false
}

// IsFatal reports whether err must abort the process. Only startup and
// configuration failures qualify.
func IsFatal(err error) bool {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Type == ErrorTypeStartup || me.Type == ErrorTypeConfig
	}

	return false
}

// IsType checks whether err carries the given category.
func IsType(err error, errType ErrorType) bool {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Type == errType
	}

	return false
}
