package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a MergeError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *MergeError {
	if err == nil {
		return nil
	}

	// If it's already a MergeError, keep its location and context
	var me *MergeError
	if errors.As(err, &me) {
		return &MergeError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       me,
			Context:     me.Context,
			FilePath:    me.FilePath,
			Recoverable: me.Recoverable,
		}
	}

	return &MergeError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType != ErrorTypeStartup && errType != ErrorTypeConfig && errType != ErrorTypeInternal,
	}
}

// WrapStartup wraps an error as a fatal startup error
func WrapStartup(err error, code, message string) *MergeError {
	me := Wrap(err, ErrorTypeStartup, code, message)
	if me != nil {
		me.Recoverable = false
	}
	return me
}

// WrapRead wraps an error as a file read error
func WrapRead(err error, code, path string) *MergeError {
	me := Wrap(err, ErrorTypeRead, code, "cannot read source file")
	if me != nil {
		me.FilePath = path
	}
	return me
}

// WrapWrite wraps an error as an output write error
func WrapWrite(err error, code, path string) *MergeError {
	me := Wrap(err, ErrorTypeWrite, code, "cannot write merged output")
	if me != nil {
		me.FilePath = path
	}
	return me
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *MergeError {
	me := Wrap(err, ErrorTypeConfig, code, message)
	if me != nil {
		me.Recoverable = false
	}
	return me
}

// ExtractPath returns the file path recorded on err, if any.
func ExtractPath(err error) string {
	var me *MergeError
	if errors.As(err, &me) {
		return me.FilePath
	}
	return ""
}
