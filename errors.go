package kvfs

import (
	"errors"
	"io/fs"
)

// ErrorCode classifies why an operation failed.
type ErrorCode int

const (
	// ErrNotFound means the path does not hold an entry of the required kind,
	// or holds nothing at all.
	ErrNotFound ErrorCode = iota + 1

	// ErrTypeConflict means a file was found where a directory is required,
	// or the other way around.
	ErrTypeConflict

	// ErrParentUnavailable means the parent directories of the target could
	// not be created.
	ErrParentUnavailable

	// ErrInvalidArgument means the request can never succeed, such as removing
	// the root or an unknown visibility value.
	ErrInvalidArgument
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrTypeConflict:
		return "TypeConflict"
	case ErrParentUnavailable:
		return "ParentUnavailable"
	case ErrInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. ErrNotExist and ErrInvalid also match their io/fs
// counterparts.
var (
	ErrNotExist = errors.New("no such file or directory")
	ErrConflict = errors.New("file type conflict")
	ErrParent   = errors.New("parent directory unavailable")
	ErrInvalid  = errors.New("invalid argument")
)

func (c ErrorCode) sentinel() error {
	switch c {
	case ErrNotFound:
		return ErrNotExist
	case ErrTypeConflict:
		return ErrConflict
	case ErrParentUnavailable:
		return ErrParent
	case ErrInvalidArgument:
		return ErrInvalid
	}
	return nil
}

// Error is returned by every failing FileSystem operation.
type Error struct {
	Op   string
	Path string
	Code ErrorCode
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op + " " + e.Path + ": "
	if s := e.Code.sentinel(); s != nil {
		msg += s.Error()
	} else {
		msg += e.Code.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Code and the io/fs errors it stands for.
func (e *Error) Is(target error) bool {
	if target == e.Code.sentinel() {
		return true
	}
	switch e.Code {
	case ErrNotFound:
		return target == fs.ErrNotExist
	case ErrInvalidArgument:
		return target == fs.ErrInvalid
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func newError(op, path string, code ErrorCode, cause error) *Error {
	return &Error{Op: op, Path: path, Code: code, Err: cause}
}
