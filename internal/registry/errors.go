package registry

import (
	"errors"
	"fmt"
	"io/fs"

	"tourism_watch/internal/browser"
)

// WaitTimeoutError means an element or file did not appear in time. Element
// is the selector or the expected filename.
type WaitTimeoutError struct {
	Element string
	Err     error
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for: %s. Increase timeout limit and check that the element exists", e.Element)
}

func (e *WaitTimeoutError) Unwrap() error { return e.Err }

func (e *WaitTimeoutError) Is(target error) bool { return target == browser.ErrWaitTimeout }

// ElementNotFoundError means a control or option is missing. Element is the
// selector or the option text.
type ElementNotFoundError struct {
	Element string
	Err     error
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s", e.Element)
}

func (e *ElementNotFoundError) Unwrap() error { return e.Err }

func (e *ElementNotFoundError) Is(target error) bool { return target == browser.ErrElementNotFound }

// RenameFileError wraps a filesystem failure while renaming an export.
type RenameFileError struct {
	Filename string
	Err      error
}

func (e *RenameFileError) Error() string {
	switch {
	case errors.Is(e.Err, fs.ErrNotExist):
		return fmt.Sprintf("no such file or directory: '%s'", e.Filename)
	case errors.Is(e.Err, fs.ErrPermission):
		return fmt.Sprintf("not allowed to access: '%s'", e.Filename)
	default:
		return fmt.Sprintf("unexpected error renaming file: '%s'", e.Filename)
	}
}

func (e *RenameFileError) Unwrap() error { return e.Err }
