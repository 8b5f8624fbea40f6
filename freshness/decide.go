package freshness

import "time"

// Decision is the outcome of a freshness check.
type Decision int

const (
	// Miss means the function must be (re)computed.
	Miss Decision = iota
	// Hit means the stored result is served.
	Hit
	// HitFailure means the stored failure is replayed without recomputing.
	HitFailure
)

// String returns the decision name used in logs and metrics.
func (d Decision) String() string {
	switch d {
	case Hit:
		return "hit"
	case HitFailure:
		return "hit_failure"
	default:
		return "miss"
	}
}

// Entry is the part of a stored record that freshness looks at.
type Entry struct {
	// Failed is true when the stored outcome is an error.
	Failed bool

	// CreatedAt is when the record store wrote the entry.
	CreatedAt time.Time
}

// Decide applies results to successful entries and errs to failed ones.
// A nil entry is a Miss.
func Decide(e *Entry, now time.Time, results, errs Policy) Decision {
	if e == nil {
		return Miss
	}
	age := now.Sub(e.CreatedAt)
	if e.Failed {
		if errs.Fresh(age) {
			return HitFailure
		}
		return Miss
	}
	if results.Fresh(age) {
		return Hit
	}
	return Miss
}

// ShouldStore reports whether a freshly computed outcome is written.
func ShouldStore(failed bool, results, errs Policy) bool {
	if failed {
		return !errs.IsNever()
	}
	return !results.IsNever()
}

// TTLFor is the record-store expiry for a freshly computed outcome.
func TTLFor(failed bool, results, errs Policy) time.Duration {
	if failed {
		return errs.TTL()
	}
	return results.TTL()
}
