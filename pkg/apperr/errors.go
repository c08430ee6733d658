package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies failures by how callers are expected to react to them.
type Kind string

const (
	// KindTransport covers network failures and timeouts talking to a backend.
	KindTransport Kind = "transport"
	// KindMalformedResponse covers backend replies that could not be decoded or lacked required fields.
	KindMalformedResponse Kind = "malformed_response"
	// KindStorage covers vector store and history store failures.
	KindStorage Kind = "storage"
	// KindInput covers caller mistakes that are rejected immediately and never retried.
	KindInput Kind = "input"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text that is safe to show to an end user.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind) + " error"
}

func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func Malformed(op, message string, err error) *Error {
	return &Error{Kind: KindMalformedResponse, Op: op, Message: message, Err: err}
}

func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

func Input(message string) *Error {
	return &Error{Kind: KindInput, Message: message}
}

func InputWrap(message string, err error) *Error {
	return &Error{Kind: KindInput, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether err is worth another attempt against the same backend.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindMalformedResponse:
		return true
	}
	return false
}

// IsTimeout reports whether err was caused by a deadline rather than a refused or reset connection.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
