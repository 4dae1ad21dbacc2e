package nskv

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidNamespace  = fmt.Errorf("nskv: invalid namespace")
	ErrInvalidKey        = fmt.Errorf("nskv: invalid key")
	ErrNamespaceNotFound = fmt.Errorf("nskv: namespace not found")
	ErrKeyNotFound       = fmt.Errorf("nskv: key not found")
	ErrBackend           = fmt.Errorf("nskv: backend failure")
)

// Result is returned by every Store operation. OK carries the operation's
// boolean outcome; Err explains a false OK and is never a panic.
type Result struct {
	OK    bool
	Value []byte
	Err   error
}

// NotFound reports whether the operation failed only because the namespace
// or key does not exist.
func (r Result) NotFound() bool {
	return !r.OK && (errors.Is(r.Err, ErrNamespaceNotFound) || errors.Is(r.Err, ErrKeyNotFound))
}

func succeeded() Result {
	return Result{OK: true}
}

func found(val []byte) Result {
	return Result{OK: true, Value: val}
}

func failed(err error) Result {
	return Result{Err: err}
}

func backendError(err error) error {
	return fmt.Errorf("%w: %w", ErrBackend, err)
}
