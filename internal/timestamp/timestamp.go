// Package timestamp converts between seconds and the textual timestamp
// forms used by transcripts and subtitle files.
package timestamp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrFormat is matched by every *FormatError.
var ErrFormat = errors.New("malformed timestamp")

// FormatError reports a timestamp string that cannot be parsed.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed timestamp %q: %s", e.Input, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// Human formats seconds as H:MM:SS, truncating the fractional part.
func Human(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// SRT formats seconds as HH:MM:SS,mmm.
func SRT(seconds float64) string {
	return clock(seconds, ',')
}

// VTT formats seconds as HH:MM:SS.mmm.
func VTT(seconds float64) string {
	return clock(seconds, '.')
}

// clock mirrors the subtitle formatter: milliseconds are truncated from the
// fractional remainder, never rounded.
func clock(seconds float64, sep byte) string {
	hours := int(seconds / 3600)
	remainder := math.Mod(seconds, 3600)
	minutes := int(remainder / 60)
	secs := math.Mod(remainder, 60)
	millis := int((secs - math.Trunc(secs)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, int(secs), sep, millis)
}

// ParseHuman parses an H:MM:SS string back into whole seconds.
func ParseHuman(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return 0, &FormatError{Input: s, Reason: "expected H:MM:SS"}
	}

	var fields [3]int
	for i := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return 0, &FormatError{Input: s, Reason: fmt.Sprintf("field %d is not a number", i+1)}
		}
		fields[i] = v
	}

	return fields[0]*3600 + fields[1]*60 + fields[2], nil
}
