package disc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParseLine splits one robot-mode record on commas. Double quotes toggle a
// quoted section in which commas do not split; the quote characters are
// dropped and there is no escaping. An unterminated quote runs to the end of
// the line, and an empty line yields a single empty field.
func ParseLine(line string) []string {
	fields := make([]string, 0, 8)
	var current strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, current.String())
}

// ErrInvalidDuration is returned for anything that is not HH:MM:SS.
var ErrInvalidDuration = errors.New("invalid duration")

// ParseDuration converts "HH:MM:SS" to total seconds.
func ParseDuration(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
	}
	var total int
	for i, unit := range []int{3600, 60, 1} {
		n, err := strconv.ParseUint(parts[i], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
		}
		total += int(n) * unit
	}
	return total, nil
}
