package freshness

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPolicy is returned by ParsePolicy for unrecognized input.
var ErrInvalidPolicy = errors.New("freshness: invalid policy")

type kind int

const (
	kindUnbounded kind = iota
	kindBounded
	kindNever
)

// Policy is how long a stored outcome stays servable.
// The zero Policy is Unbounded.
type Policy struct {
	kind   kind
	maxAge time.Duration
}

// Unbounded returns a policy under which entries never expire.
func Unbounded() Policy {
	return Policy{kind: kindUnbounded}
}

// Never returns a policy under which outcomes are not persisted at all.
func Never() Policy {
	return Policy{kind: kindNever}
}

// For returns a policy that serves entries up to d old.
// For(0) keeps writing entries but treats every one as stale.
func For(d time.Duration) Policy {
	if d < 0 {
		d = 0
	}
	return Policy{kind: kindBounded, maxAge: d}
}

// IsUnbounded reports whether entries never expire.
func (p Policy) IsUnbounded() bool { return p.kind == kindUnbounded }

// IsNever reports whether outcomes are not persisted.
func (p Policy) IsNever() bool { return p.kind == kindNever }

// MaxAge returns the bound and whether there is one.
func (p Policy) MaxAge() (time.Duration, bool) {
	return p.maxAge, p.kind == kindBounded
}

// Fresh reports whether an entry of the given age may be served. A
// bounded policy never serves entries from the future, and For(0)
// serves nothing, even at age zero.
func (p Policy) Fresh(age time.Duration) bool {
	switch p.kind {
	case kindUnbounded:
		return true
	case kindBounded:
		return p.maxAge > 0 && age >= 0 && age <= p.maxAge
	default:
		return false
	}
}

// TTL is the expiry handed to the record store alongside a write.
// A negative TTL means no expiry.
func (p Policy) TTL() time.Duration {
	switch p.kind {
	case kindUnbounded:
		return -1
	case kindBounded:
		return p.maxAge
	default:
		return 0
	}
}

// String renders the policy in the form ParsePolicy accepts.
func (p Policy) String() string {
	switch p.kind {
	case kindUnbounded:
		return "unbounded"
	case kindNever:
		return "never"
	default:
		return p.maxAge.String()
	}
}

// ParsePolicy parses "unbounded", "never", or a Go duration string.
// The empty string is Unbounded.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unbounded":
		return Unbounded(), nil
	case "never":
		return Never(), nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return Policy{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	if d < 0 {
		return Policy{}, fmt.Errorf("%w: negative duration %q", ErrInvalidPolicy, s)
	}
	return For(d), nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
