package license

import (
	"fmt"
	"strconv"
	"time"
)

// ParseDurationSpec parses the admin duration grammar: a positive integer
// followed by exactly one unit suffix (s, m, h, d, y). An empty string or a
// bare "0" means lifetime and returns nil. Anything else is rejected rather
// than defaulted.
func ParseDurationSpec(spec string) (*time.Duration, error) {
	if spec == "" || spec == "0" {
		return nil, nil
	}
	if len(spec) < 2 {
		return nil, fmt.Errorf("invalid duration %q", spec)
	}

	var unit time.Duration
	switch spec[len(spec)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'y':
		unit = 365 * 24 * time.Hour
	default:
		return nil, fmt.Errorf("invalid duration unit in %q", spec)
	}

	n, err := strconv.Atoi(spec[:len(spec)-1])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid duration %q", spec)
	}
	if n == 0 {
		return nil, nil
	}

	d := time.Duration(n) * unit
	return &d, nil
}
