// Package errors provides error constructors that record the call site, so a
// failure anywhere in the detection or transport stack can be traced to its
// origin without carrying a full stack trace.
package errors

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// New creates a new error prefixed with the caller's file and line number.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including the caller's file and line number) to an
// existing error. The original error remains visible to Is and As.
// If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target, and if one is
// found, sets target to that error value.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Join bundles multiple errors into one, discarding nils.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
