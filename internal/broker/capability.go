package broker

import (
	"context"
	"regexp"

	"github.com/aristath/stockhunter/internal/domain"
)

// MarketCapability is the polymorphism seam between the collector/universe
// layer and a specific market's quirks, per spec.md §9: "express as a
// capability record". Concrete KR and US implementations wrap a Client
// with the market-specific identifiers, endpoints, and name heuristics;
// callers never branch on domain.Market themselves.
type MarketCapability interface {
	Market() domain.Market

	// RecentBars returns up to n most-recent bars for id, newest-first.
	RecentBars(ctx context.Context, id string, n int) ([]Bar, error)

	// HistoricalBars returns bars in [start, end] (YYYYMMDD), newest-first.
	HistoricalBars(ctx context.Context, id, start, end string) ([]Bar, error)

	// Quote returns the current price and fundamentals for id.
	Quote(ctx context.Context, id string) (Quote, error)

	// Name returns the human-readable short name for id.
	Name(ctx context.Context, id string) (string, error)

	// ValidID reports whether id is a syntactically valid identifier for
	// this market.
	ValidID(id string) bool

	// LooksLikeETF applies this market's naming heuristic for ETF
	// exclusion. Callers pass whatever field the market keys its heuristic
	// on: the Korean name for KRCapability, the ticker for USCapability.
	LooksLikeETF(name string) bool

	// LooksLikeETN applies this market's naming heuristic for ETN
	// exclusion.
	LooksLikeETN(name string) bool

	// LooksLikeManagementCompany applies this market's naming heuristic
	// for the exclude_management gate (asset managers and fund trusts
	// rather than operating companies).
	LooksLikeManagementCompany(name string) bool
}

var krCodePattern = regexp.MustCompile(`^\d{6}$`)
var usTickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)
