// Package broker talks to the KIS-shaped brokerage HTTP API: minting
// tokens, fetching daily bars and quotes, and looking up instrument names.
package broker

import (
	"context"
	"time"
)

// Quote is a point-in-time snapshot of an instrument's price and
// fundamentals. Fundamentals are nullable: the broker omits them for
// instruments that have none (e.g. ETFs).
type Quote struct {
	Price     float64
	MarketCap *float64
	PER       *float64
	PBR       *float64
	EPS       *float64
	BPS       *float64
}

// Bar is one daily OHLCV reading as returned by the broker, newest-first
// when returned in a slice.
type Bar struct {
	TradeDate string // YYYY-MM-DD, normalised from the broker's raw YYYYMMDD
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    uint64
}

// Client is the typed broker surface every operation in spec.md §4.D maps
// onto. Each outbound call is gated by a rate limiter and a session
// manager before it reaches the wire; that gating lives in the concrete
// implementation, not in this interface.
type Client interface {
	// MintToken exchanges app key/secret for a fresh access token.
	MintToken(ctx context.Context) (token string, ttl time.Duration, err error)

	// RecentDaily returns up to n most-recent bars, newest-first. n is
	// capped by the broker at roughly 30 regardless of the requested size.
	RecentDaily(ctx context.Context, id string, n int) ([]Bar, error)

	// PeriodDaily returns bars in [start, end] (YYYYMMDD), newest-first.
	PeriodDaily(ctx context.Context, id string, start, end string) ([]Bar, error)

	// CurrentQuote returns the latest quote and fundamentals for id.
	CurrentQuote(ctx context.Context, id string) (Quote, error)

	// LookupName returns the human-readable short name for id.
	LookupName(ctx context.Context, id string) (string, error)

	// USDailyPrice returns daily bars for a US-listed symbol on exchange
	// (one of NAS, NYS, AMS), newest-first.
	USDailyPrice(ctx context.Context, exchange, symbol string) ([]Bar, error)
}
