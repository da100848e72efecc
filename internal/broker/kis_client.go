package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockhunter/internal/domain"
	"github.com/aristath/stockhunter/internal/ratelimit"
)

// sessionSource is the subset of *session.Manager the client needs. Kept
// as an interface here (rather than importing internal/session directly)
// to avoid a client<->session manager import cycle: the session manager
// depends on Client as its Minter, and the client depends on it for
// Acquire. The concrete *session.Manager satisfies this trivially.
type sessionSource interface {
	Acquire(ctx context.Context) (string, error)
}

// KISClient is the concrete HTTP implementation of the broker API
// described in spec.md §6.1. Every call pre-gates on a rate limiter and,
// except MintToken itself, on a session manager.
type KISClient struct {
	baseURL    string
	appKey     string
	appSecret  string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	sessions   sessionSource
	log        zerolog.Logger
}

// NewKISClient constructs a client bound to one environment's base URL.
// Call SetSessions once a session.Manager wrapping this client exists.
func NewKISClient(baseURL, appKey, appSecret string, limiter *ratelimit.Limiter, log zerolog.Logger) *KISClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	return &KISClient{
		baseURL:    baseURL,
		appKey:     appKey,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: 30 * time.Second, Transport: transport},
		limiter:    limiter,
		log:        log.With().Str("component", "broker.KISClient").Logger(),
	}
}

// SetSessions wires the session manager used to authorise every call other
// than MintToken. Must be called before any other method.
func (c *KISClient) SetSessions(s sessionSource) {
	c.sessions = s
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// MintToken exchanges app key/secret for a fresh access token.
func (c *KISClient) MintToken(ctx context.Context) (string, time.Duration, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return "", 0, err
	}

	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.appKey,
		"appsecret":  c.appSecret,
	})
	if err != nil {
		return "", 0, domain.NewError(domain.KindTransport, "broker.MintToken", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return "", 0, domain.NewError(domain.KindTransport, "broker.MintToken", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, domain.NewError(domain.KindAuthFailure, "broker.MintToken", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, domain.NewError(domain.KindTransport, "broker.MintToken", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, domain.NewError(domain.KindAuthFailure, "broker.MintToken", fmt.Errorf("status %d: %s", resp.StatusCode, raw))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", 0, domain.NewError(domain.KindAuthFailure, "broker.MintToken", err)
	}
	return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
}

// authedRequest builds a GET request carrying the standard auth headers
// with tr_id set per operation, per spec.md §6.1.
func (c *KISClient) authedRequest(ctx context.Context, path string, params url.Values, trID string) (*http.Request, error) {
	token, err := c.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	full := c.baseURL + path
	if len(params) > 0 {
		full += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, domain.NewError(domain.KindTransport, "broker.authedRequest", err)
	}
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", c.appKey)
	req.Header.Set("appsecret", c.appSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("custtype", "P")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return req, nil
}

func (c *KISClient) do(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.KindTransport, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.KindTransport, op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(domain.KindBrokerError, op, &domain.BrokerError{
			Code:    strconv.Itoa(resp.StatusCode),
			Message: string(raw),
		})
	}
	return raw, nil
}

type krOutput struct {
	StckBsopDate string `json:"stck_bsop_date"`
	StckOprc     string `json:"stck_oprc"`
	StckHgpr     string `json:"stck_hgpr"`
	StckLwpr     string `json:"stck_lwpr"`
	StckClpr     string `json:"stck_clpr"`
	AcmlVol      string `json:"acml_vol"`
}

type krDailyResponse struct {
	RtCd    string     `json:"rt_cd"`
	MsgCd   string     `json:"msg_cd"`
	Msg1    string     `json:"msg1"`
	Output  []krOutput `json:"output"`
	Output2 []krOutput `json:"output2"`
}

func (c *KISClient) parseKRDaily(raw []byte, op string) ([]Bar, error) {
	var dr krDailyResponse
	if err := json.Unmarshal(raw, &dr); err != nil {
		return nil, domain.NewError(domain.KindTransport, op, err)
	}
	if dr.RtCd != "0" {
		return nil, domain.NewError(domain.KindBrokerError, op, &domain.BrokerError{Code: dr.MsgCd, Message: dr.Msg1})
	}
	rows := dr.Output
	if len(rows) == 0 {
		rows = dr.Output2
	}
	bars := make([]Bar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, Bar{
			TradeDate: formatTradeDate(row.StckBsopDate),
			Open:      atof(row.StckOprc),
			High:      atof(row.StckHgpr),
			Low:       atof(row.StckLwpr),
			Close:     atof(row.StckClpr),
			Volume:    atou(row.AcmlVol),
		})
	}
	return bars, nil
}

// RecentDaily returns up to n most-recent bars; the broker caps this at
// roughly 30 regardless of n (spec.md §9).
func (c *KISClient) RecentDaily(ctx context.Context, id string, n int) ([]Bar, error) {
	params := url.Values{
		"fid_cond_mrkt_div_code": {"J"},
		"fid_input_iscd":         {id},
		"fid_period_div_code":    {"D"},
		"fid_org_adj_prc":        {"0"},
	}
	req, err := c.authedRequest(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-price", params, "FHKST01010400")
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, "broker.RecentDaily", req)
	if err != nil {
		return nil, err
	}
	bars, err := c.parseKRDaily(raw, "broker.RecentDaily")
	if err != nil {
		return nil, err
	}
	if n > 0 && len(bars) > n {
		bars = bars[:n]
	}
	return bars, nil
}

// PeriodDaily returns bars in [start, end] (YYYYMMDD), newest-first.
func (c *KISClient) PeriodDaily(ctx context.Context, id string, start, end string) ([]Bar, error) {
	params := url.Values{
		"FID_COND_MRKT_DIV_CODE": {"J"},
		"FID_INPUT_ISCD":         {id},
		"FID_INPUT_DATE_1":       {start},
		"FID_INPUT_DATE_2":       {end},
		"FID_PERIOD_DIV_CODE":    {"D"},
		"FID_ORG_ADJ_PRC":        {"0"},
	}
	req, err := c.authedRequest(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice", params, "FHKST03010100")
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, "broker.PeriodDaily", req)
	if err != nil {
		return nil, err
	}
	return c.parseKRDaily(raw, "broker.PeriodDaily")
}

type krQuoteOutput struct {
	StckPrpr string `json:"stck_prpr"`
	HtsAvls  string `json:"hts_avls"`
	Per      string `json:"per"`
	Pbr      string `json:"pbr"`
	Eps      string `json:"eps"`
	Bps      string `json:"bps"`
}

type krQuoteResponse struct {
	RtCd   string        `json:"rt_cd"`
	MsgCd  string        `json:"msg_cd"`
	Msg1   string        `json:"msg1"`
	Output krQuoteOutput `json:"output"`
}

// CurrentQuote returns the latest price and fundamentals for id.
func (c *KISClient) CurrentQuote(ctx context.Context, id string) (Quote, error) {
	params := url.Values{
		"fid_cond_mrkt_div_code": {"J"},
		"fid_input_iscd":         {id},
	}
	req, err := c.authedRequest(ctx, "/uapi/domestic-stock/v1/quotations/inquire-price", params, "FHKST01010100")
	if err != nil {
		return Quote{}, err
	}
	raw, err := c.do(ctx, "broker.CurrentQuote", req)
	if err != nil {
		return Quote{}, err
	}
	var qr krQuoteResponse
	if err := json.Unmarshal(raw, &qr); err != nil {
		return Quote{}, domain.NewError(domain.KindTransport, "broker.CurrentQuote", err)
	}
	if qr.RtCd != "0" {
		return Quote{}, domain.NewError(domain.KindBrokerError, "broker.CurrentQuote", &domain.BrokerError{Code: qr.MsgCd, Message: qr.Msg1})
	}
	out := qr.Output
	return Quote{
		Price:     atof(out.StckPrpr),
		MarketCap: atofPtr(out.HtsAvls),
		PER:       atofPtr(out.Per),
		PBR:       atofPtr(out.Pbr),
		EPS:       atofPtr(out.Eps),
		BPS:       atofPtr(out.Bps),
	}, nil
}

type krNameOutput struct {
	PrdtName string `json:"prdt_name"`
}

type krNameResponse struct {
	RtCd   string       `json:"rt_cd"`
	MsgCd  string       `json:"msg_cd"`
	Msg1   string       `json:"msg1"`
	Output krNameOutput `json:"output"`
}

// LookupName returns the human-readable short name for id.
func (c *KISClient) LookupName(ctx context.Context, id string) (string, error) {
	params := url.Values{
		"PRDT_TYPE_CD": {"300"},
		"PDNO":         {id},
	}
	req, err := c.authedRequest(ctx, "/uapi/domestic-stock/v1/quotations/search-info", params, "CTPF1604R")
	if err != nil {
		return "", err
	}
	raw, err := c.do(ctx, "broker.LookupName", req)
	if err != nil {
		return "", err
	}
	var nr krNameResponse
	if err := json.Unmarshal(raw, &nr); err != nil {
		return "", domain.NewError(domain.KindTransport, "broker.LookupName", err)
	}
	if nr.RtCd != "0" {
		return "", domain.NewError(domain.KindBrokerError, "broker.LookupName", &domain.BrokerError{Code: nr.MsgCd, Message: nr.Msg1})
	}
	return nr.Output.PrdtName, nil
}

type usOutput struct {
	Xymd string `json:"xymd"`
	Open string `json:"open"`
	High string `json:"high"`
	Low  string `json:"low"`
	Clos string `json:"clos"`
	Tvol string `json:"tvol"`
}

type usDailyResponse struct {
	RtCd   string     `json:"rt_cd"`
	MsgCd  string     `json:"msg_cd"`
	Msg1   string     `json:"msg1"`
	Output []usOutput `json:"output2"`
}

// USDailyPrice returns daily bars for a US-listed symbol, newest-first.
func (c *KISClient) USDailyPrice(ctx context.Context, exchange, symbol string) ([]Bar, error) {
	params := url.Values{
		"EXCD": {exchange},
		"SYMB": {symbol},
		"GUBN": {"0"},
		"MODP": {"0"},
	}
	req, err := c.authedRequest(ctx, "/uapi/overseas-price/v1/quotations/dailyprice", params, "HHDFS76240000")
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, "broker.USDailyPrice", req)
	if err != nil {
		return nil, err
	}
	var dr usDailyResponse
	if err := json.Unmarshal(raw, &dr); err != nil {
		return nil, domain.NewError(domain.KindTransport, "broker.USDailyPrice", err)
	}
	if dr.RtCd != "0" {
		return nil, domain.NewError(domain.KindBrokerError, "broker.USDailyPrice", &domain.BrokerError{Code: dr.MsgCd, Message: dr.Msg1})
	}
	bars := make([]Bar, 0, len(dr.Output))
	for _, row := range dr.Output {
		bars = append(bars, Bar{
			TradeDate: formatTradeDate(row.Xymd),
			Open:      atof(row.Open),
			High:      atof(row.High),
			Low:       atof(row.Low),
			Close:     atof(row.Clos),
			Volume:    atou(row.Tvol),
		})
	}
	return bars, nil
}

// formatTradeDate converts the broker's raw YYYYMMDD trade date into the
// domain's canonical YYYY-MM-DD, the one place the broker wire format
// crosses into the domain model. Malformed input (wrong length) is passed
// through unchanged rather than silently dropped, so a broker response
// shape the client doesn't anticipate still surfaces visibly downstream
// instead of vanishing.
func formatTradeDate(raw string) string {
	if len(raw) != 8 {
		return raw
	}
	return raw[:4] + "-" + raw[4:6] + "-" + raw[6:8]
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func atofPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func atou(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}
