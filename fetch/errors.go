package fetch

import "fmt"

// Kind classifies a fetch failure.
type Kind string

const (
	NetworkError Kind = "networkError"
	EmptyBody    Kind = "emptyBody"
	WriteError   Kind = "writeError"
)

// Error is returned by Persist.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}
