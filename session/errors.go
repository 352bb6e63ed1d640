package session

import (
	"errors"
	"fmt"
)

// Reason classifies why a refresh failed.
type Reason string

const (
	Exhausted   Reason = "exhausted"
	Unavailable Reason = "unavailable"
	Challenged  Reason = "challenged"
)

// RefreshError is returned when no fresh bundle could be minted.
type RefreshError struct {
	Reason Reason
	Err    error
}

func (e *RefreshError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("session refresh %s", e.Reason)
	}
	return fmt.Sprintf("session refresh %s: %s", e.Reason, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

var (
	errChallenge = errors.New("identity provider asked for extra verification")
	errNoBrowser = errors.New("no browser configured")
	errNoCookies = errors.New("no session cookies survived filtering")
)
