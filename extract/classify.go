package extract

import (
	"net/http"
	"strings"
)

// Classifier maps free-text diagnostics to a failure kind by keyword.
// Matching is case-insensitive and checks authentication markers first.
type Classifier struct {
	Auth      []string
	NotFound  []string
	Transient []string
}

// Classify returns the kind text most likely describes. Only text carrying a
// transient marker is retried in place; text matching no keyword is malformed.
func (c Classifier) Classify(text string) Kind {
	text = strings.ToLower(text)

	switch {
	case matchAny(text, c.Auth):
		return AuthRequired
	case matchAny(text, c.NotFound):
		return NotFound
	case matchAny(text, c.Transient):
		return Transient
	default:
		return MalformedResponse
	}
}

// ClassifyStatus maps an HTTP status to a failure kind. ok is false for success statuses.
func ClassifyStatus(code int) (kind Kind, ok bool) {
	switch {
	case code >= 200 && code < 300:
		return "", false
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return AuthRequired, true
	case code == http.StatusNotFound, code == http.StatusGone:
		return NotFound, true
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return Transient, true
	default:
		return MalformedResponse, true
	}
}

func matchAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
