package errors

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Kind classifies failures seen by the agent runtime.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport is a provider/network failure during a model call. Retried.
	KindTransport
	// KindExecution is a failed capability invocation or an unknown tool name.
	KindExecution
	// KindPolicy is a refusal by a configured limit: the step budget, an
	// access rule or a command allowlist.
	KindPolicy
	// KindVisionUnavailable means an image follow-up hit a provider without vision.
	KindVisionUnavailable
	// KindProtocol is a conversation that does not follow the tool-call encoding.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindExecution:
		return "execution"
	case KindPolicy:
		return "policy"
	case KindVisionUnavailable:
		return "vision unavailable"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error is an error tagged with a Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a new error with file and line number information.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including file and line number) to an existing error.
// If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}

// Tag marks err with kind. A nil err stays nil.
func Tag(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf is New followed by Tag.
func Errorf(kind Kind, format string, a ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))}
}

// KindOf reports the outermost Kind attached to err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

// caller returns file:line two frames up, i.e. the caller of the exported helper.
func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
