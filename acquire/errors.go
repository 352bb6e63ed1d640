package acquire

import (
	"fmt"
	"strings"

	"github.com/offtube/offtube/extract"
)

// Attempt is one strategy outcome recorded during an acquisition.
type Attempt struct {
	Strategy string
	Err      *extract.Error
	// Refresh is set when the session refresh triggered by this attempt failed.
	Refresh error
}

func (a Attempt) String() string {
	s := fmt.Sprintf("%s: %s", a.Strategy, a.Err)
	if a.Refresh != nil {
		s += fmt.Sprintf(" (refresh: %s)", a.Refresh)
	}
	return s
}

// AcquisitionError is returned when every strategy failed.
type AcquisitionError struct {
	SourceID string
	Attempts []Attempt
}

func (e *AcquisitionError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("acquire %s: no strategies configured", e.SourceID)
	}

	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}

	return fmt.Sprintf("acquire %s: all strategies failed: %s", e.SourceID, strings.Join(parts, "; "))
}

// Kinds returns the failure kind of every attempt in order.
func (e *AcquisitionError) Kinds() []extract.Kind {
	kinds := make([]extract.Kind, len(e.Attempts))
	for i, a := range e.Attempts {
		kinds[i] = a.Err.Kind
	}
	return kinds
}
