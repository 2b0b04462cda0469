package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bound selects how a date-only value is widened into a timestamp.
type Bound int

const (
	// Start floors a bare date to 00:00:00.
	Start Bound = iota
	// End ceils a bare date to 23:59:59.
	End
)

const dateLayout = "2006-01-02"

// ParseDate parses a range bound. Full RFC3339 timestamps are used verbatim
// (converted to UTC); a bare YYYY-MM-DD date becomes the first or last second
// of that UTC day depending on bound, so it acts as an inclusive whole-day
// limit.
func ParseDate(s string, bound Bound) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("query: empty date")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("query: %q is neither YYYY-MM-DD nor RFC3339", s)
	}
	if bound == End {
		return d.Add(24*time.Hour - time.Second), nil
	}
	return d, nil
}

// ParseUint16 parses a limit or page argument.
func ParseUint16(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("query: %q is not a number between 0 and 65535", s)
	}
	return uint16(n), nil
}
