package broker

import (
	"context"
	"strings"

	"github.com/aristath/stockhunter/internal/domain"
)

// usExchangeCode maps a domain.Market to the broker's EXCD parameter for
// the overseas-price endpoints.
var usExchangeCode = map[domain.Market]string{
	domain.MarketNASDAQ: "NAS",
	domain.MarketNYSE:   "NYS",
	domain.MarketAMEX:   "AMS",
}

// usETFTickers is the small, explicit exclusion list spec.md §4.H calls
// for ("US-ETF-ticker-list"): well-known US-listed ETF tickers that do not
// otherwise carry a structural marker the way Korean ETFs do.
var usETFTickers = map[string]bool{
	"SPY": true, "QQQ": true, "IWM": true, "DIA": true, "VOO": true,
	"VTI": true, "GLD": true, "SLV": true, "XLF": true, "XLK": true,
	"ARKK": true, "EEM": true, "EFA": true, "AGG": true, "TLT": true,
}

// USCapability wires a Client to one US exchange: one-to-five letter
// tickers, the overseas-price endpoints, and the static ETF ticker list.
type USCapability struct {
	client   Client
	market   domain.Market
	exchange string
}

// NewUSCapability binds a Client to one of MarketNASDAQ/NYSE/AMEX.
func NewUSCapability(client Client, market domain.Market) *USCapability {
	return &USCapability{client: client, market: market, exchange: usExchangeCode[market]}
}

func (c *USCapability) Market() domain.Market { return c.market }

func (c *USCapability) RecentBars(ctx context.Context, id string, n int) ([]Bar, error) {
	bars, err := c.client.USDailyPrice(ctx, c.exchange, id)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(bars) > n {
		bars = bars[:n]
	}
	return bars, nil
}

// HistoricalBars has no dedicated period endpoint on the broker's
// overseas-price surface; the daily endpoint's own window is used for
// both recent and historical fetches, per spec.md §6.1.
func (c *USCapability) HistoricalBars(ctx context.Context, id, start, end string) ([]Bar, error) {
	return c.client.USDailyPrice(ctx, c.exchange, id)
}

func (c *USCapability) Quote(ctx context.Context, id string) (Quote, error) {
	return c.client.CurrentQuote(ctx, id)
}

func (c *USCapability) Name(ctx context.Context, id string) (string, error) {
	return c.client.LookupName(ctx, id)
}

func (c *USCapability) ValidID(id string) bool {
	return usTickerPattern.MatchString(id)
}

func (c *USCapability) LooksLikeETF(name string) bool {
	return usETFTickers[strings.ToUpper(name)]
}

func (c *USCapability) LooksLikeETN(name string) bool {
	return false
}

func (c *USCapability) LooksLikeManagementCompany(name string) bool {
	return false
}
