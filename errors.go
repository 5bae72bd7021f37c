package main

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies core failures so handlers can map them to HTTP codes
// and operators can tell a duplicate scan from an out-of-order one.
type ErrorKind int

const (
	ErrNotFound ErrorKind = iota
	ErrConflict
	ErrInvalidTransition
	ErrStoreCorrupt
	ErrInternal
)

// CoreError carries a kind plus an operator-facing message with enough
// detail to reproduce the decision.
type CoreError struct {
	Kind    ErrorKind
	Message string
}

func (e *CoreError) Error() string { return e.Message }

func notFoundErr(format string, args ...interface{}) *CoreError {
	return &CoreError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictErr(format string, args ...interface{}) *CoreError {
	return &CoreError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func invalidTransitionErr(format string, args ...interface{}) *CoreError {
	return &CoreError{Kind: ErrInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func storeCorruptErr(format string, args ...interface{}) *CoreError {
	return &CoreError{Kind: ErrStoreCorrupt, Message: fmt.Sprintf(format, args...)}
}

// errKind extracts the kind from an error chain, ErrInternal otherwise.
func errKind(err error) ErrorKind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrInternal
}

// httpStatus maps an error to its HTTP response code.
func httpStatus(err error) int {
	switch errKind(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrInvalidTransition:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeErr writes an error response, hiding internal detail for plain 5xx.
func writeErr(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		var ce *CoreError
		if !errors.As(err, &ce) {
			msg = "internal error"
		}
	}
	jsonErr(w, msg, code)
}
