// Package parse normalizes externally supplied time windows at the API
// boundary. Business logic only ever sees canonical UTC instants; it never
// re-parses or falls back on alternative field shapes.
package parse

import (
	"fmt"
	"time"
)

// Window is a normalized half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseWindow parses RFC3339 start/end strings into a Window. Timestamps of
// arbitrary resolution are accepted; 30-minute alignment is a UI policy, not
// enforced here.
func ParseWindow(startStr, endStr string) (Window, error) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start timestamp %q: use RFC3339", startStr)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end timestamp %q: use RFC3339", endStr)
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}
