package model

import (
	"fmt"

	"github.com/and161185/glean-metrics/internal/errs"
)

// Lifetime describes when a metric's stored value is cleared.
// The zero value is LifetimePing.
type Lifetime int

const (
	LifetimePing        Lifetime = iota // Reset with each sent ping.
	LifetimeApplication                 // Reset on application restart.
	LifetimeUser                        // Reset with each user profile.
)

var lifetimeNames = map[Lifetime]string{
	LifetimePing:        "ping",
	LifetimeApplication: "application",
	LifetimeUser:        "user",
}

func (l Lifetime) String() string {
	if s, ok := lifetimeNames[l]; ok {
		return s
	}
	return fmt.Sprintf("lifetime(%d)", int(l))
}

// ParseLifetime converts a lifetime name into a Lifetime.
// An empty string yields LifetimePing.
func ParseLifetime(s string) (Lifetime, error) {
	if s == "" {
		return LifetimePing, nil
	}
	for l, name := range lifetimeNames {
		if name == s {
			return l, nil
		}
	}
	return LifetimePing, fmt.Errorf("%w: %q", errs.ErrInvalidLifetime, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	s, ok := lifetimeNames[l]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidLifetime, int(l))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(b []byte) error {
	v, err := ParseLifetime(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
