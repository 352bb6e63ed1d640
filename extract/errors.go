package extract

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/samber/mo"
)

// Kind classifies an extraction failure.
type Kind string

const (
	AuthRequired      Kind = "authRequired"
	NotFound          Kind = "notFound"
	Transient         Kind = "transient"
	MalformedResponse Kind = "malformedResponse"
)

// Error is the failure every strategy reports.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
	// Lead is set when a media URL was resolved but refused without credentials.
	Lead mo.Option[Lead]
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// AsError converts any error into an *Error. Timeouts and network errors
// are transient; anything unrecognised is treated as a malformed response.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fail(Transient, "timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fail(Transient, "network error", err)
	}

	return fail(MalformedResponse, "", err)
}

// KindOf returns the classification of err.
func KindOf(err error) Kind {
	return AsError(err).Kind
}
