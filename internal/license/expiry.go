package license

import (
	"fmt"
	"time"
)

type ExpiryState int

const (
	Lifetime ExpiryState = iota
	Expired
	Remaining
)

// Expiry is the classified expiration of a key at one instant.
type Expiry struct {
	State    ExpiryState
	TimeLeft time.Duration // only set when State == Remaining
}

// ClassifyExpiry maps a nullable expiration timestamp to its state. A nil
// expiry means lifetime. The boundary is exclusive: a key whose expiry
// equals now is already expired.
func ClassifyExpiry(expiry *time.Time, now time.Time) Expiry {
	if expiry == nil {
		return Expiry{State: Lifetime}
	}
	if !expiry.After(now) {
		return Expiry{State: Expired}
	}
	return Expiry{State: Remaining, TimeLeft: expiry.Sub(now)}
}

// String renders the state for admin tables and check responses. The engine
// verdict carries the exact duration; this is only the display form.
func (e Expiry) String() string {
	switch e.State {
	case Lifetime:
		return "Lifetime"
	case Expired:
		return "Expired"
	}
	d := e.TimeLeft
	if d >= 24*time.Hour {
		days := int(d / (24 * time.Hour))
		hours := int(d % (24 * time.Hour) / time.Hour)
		return fmt.Sprintf("in %dd %dh", days, hours)
	}
	if d >= time.Hour {
		return fmt.Sprintf("in %dh %dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	}
	if d >= time.Minute {
		return fmt.Sprintf("in %dm", int(d/time.Minute))
	}
	return fmt.Sprintf("in %ds", int(d/time.Second))
}
