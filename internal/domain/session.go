package domain

import "time"

// Environment selects the broker's production or paper-trading surface.
type Environment string

const (
	EnvProduction Environment = "prod"
	EnvPaper      Environment = "paper"
)

// SafetyMargin is subtracted from a session's expiry before it is considered
// stale, so callers never race a token that the broker is about to reject.
const SafetyMargin = 5 * time.Minute

// Session is a broker access token. Identity is (Environment, AppKeyHash);
// a new mint for the same identity replaces the old one.
type Session struct {
	Token       string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Environment Environment
	AppKeyHash  string
}

// Expired reports whether the session should be treated as unusable now,
// applying the 5-minute safety margin from spec.md §4.B.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt.Add(-SafetyMargin))
}
