package broker

import (
	"context"
	"strings"

	"github.com/aristath/stockhunter/internal/domain"
)

// KRCapability wires a Client to KOSPI/KOSDAQ instruments: six-digit
// numeric codes, the domestic-stock endpoints, and Korean name heuristics:
// names containing "ETF" or "ETN", and names containing a
// management-company fragment for the exclude_management gate.
type KRCapability struct {
	client Client
	market domain.Market
}

// NewKRCapability binds a Client to either MarketKOSPI or MarketKOSDAQ.
func NewKRCapability(client Client, market domain.Market) *KRCapability {
	return &KRCapability{client: client, market: market}
}

func (c *KRCapability) Market() domain.Market { return c.market }

func (c *KRCapability) RecentBars(ctx context.Context, id string, n int) ([]Bar, error) {
	return c.client.RecentDaily(ctx, id, n)
}

func (c *KRCapability) HistoricalBars(ctx context.Context, id, start, end string) ([]Bar, error) {
	return c.client.PeriodDaily(ctx, id, start, end)
}

func (c *KRCapability) Quote(ctx context.Context, id string) (Quote, error) {
	return c.client.CurrentQuote(ctx, id)
}

func (c *KRCapability) Name(ctx context.Context, id string) (string, error) {
	return c.client.LookupName(ctx, id)
}

func (c *KRCapability) ValidID(id string) bool {
	return krCodePattern.MatchString(id)
}

// krManagementSuffixes are name fragments that flag an instrument as a
// fund wrapper rather than an operating company, per spec.md's
// exclude_management gate.
var krManagementSuffixes = []string{"자산운용", "운용사", "투자신탁"}

func (c *KRCapability) LooksLikeETF(name string) bool {
	return strings.Contains(strings.ToUpper(name), "ETF")
}

func (c *KRCapability) LooksLikeETN(name string) bool {
	return strings.Contains(strings.ToUpper(name), "ETN")
}

func (c *KRCapability) LooksLikeManagementCompany(name string) bool {
	for _, s := range krManagementSuffixes {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}
