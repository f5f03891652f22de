// Package errs holds the error taxonomy shared by the pipeline and messaging cores.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindFetch             Kind = "fetch"
	KindTransitionPersist Kind = "transition_persist"
	KindEmptyMessage      Kind = "empty_message"
	KindSendFailure       Kind = "send_failure"
	KindDiscarded         Kind = "discarded"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrFetch             = errors.New("fetch failed")
	ErrTransitionPersist = errors.New("transition persist failure")
	ErrEmptyMessage      = errors.New("empty message")
	ErrSendFailure       = errors.New("send failure")
	// ErrDiscarded marks results dropped because the originating view was detached.
	ErrDiscarded = errors.New("result discarded")
)

var sentinels = map[Kind]error{
	KindInvalidTransition: ErrInvalidTransition,
	KindNotFound:          ErrNotFound,
	KindFetch:             ErrFetch,
	KindTransitionPersist: ErrTransitionPersist,
	KindEmptyMessage:      ErrEmptyMessage,
	KindSendFailure:       ErrSendFailure,
	KindDiscarded:         ErrDiscarded,
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, sentinels[e.Kind])
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, sentinels[e.Kind], e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func New(kind Kind, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

func InvalidTransition(op string, cause error) error { return New(KindInvalidTransition, op, cause) }

func NotFound(op, id string) error {
	return New(KindNotFound, op, fmt.Errorf("id %q", id))
}

func Fetch(op string, cause error) error { return New(KindFetch, op, cause) }

func TransitionPersist(op string, cause error) error { return New(KindTransitionPersist, op, cause) }

func EmptyMessage(op string) error { return New(KindEmptyMessage, op, nil) }

func SendFailure(op string, cause error) error { return New(KindSendFailure, op, cause) }

func Discarded(op string) error { return New(KindDiscarded, op, nil) }

// KindOf returns the taxonomy kind of err, or "" when err is outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
