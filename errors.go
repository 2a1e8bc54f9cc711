package compositefs

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is returned when a path is absent at the resolved layer
	ErrNotFound = fs.ErrNotExist
	// ErrAlreadyExists is returned when creating a path that already exists
	ErrAlreadyExists = fs.ErrExist
	// ErrNotEmpty is returned by non-recursive removal of a non-empty directory
	ErrNotEmpty = errors.New("directory not empty")
	// ErrInvalidOperation covers root removal and bad configuration
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrUnsupported is returned for operations this layer does not implement
	ErrUnsupported = fmt.Errorf("operation not implemented: %w", errors.ErrUnsupported)
	// ErrPermissionDenied is returned by an enforced mount permission policy
	ErrPermissionDenied = fs.ErrPermission
	// ErrNoMount is returned when a path resolves to no mounted filesystem
	ErrNoMount = fmt.Errorf("%w: no filesystem mounted", ErrInvalidOperation)
	// ErrIsDir is returned when a file operation targets a directory
	ErrIsDir = errors.New("is a directory")
	// ErrNotDir is returned when a directory operation targets a file
	ErrNotDir = errors.New("not a directory")
)

// pathError wraps err with the operation and path it applies to
func pathError(op, p string, err error) error {
	return &fs.PathError{Op: op, Path: p, Err: err}
}
