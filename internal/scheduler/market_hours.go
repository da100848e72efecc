package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockhunter/internal/domain"
)

// TradingWindow represents a single trading period within a day.
type TradingWindow struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// ExchangeCalendar defines trading hours and holidays for an exchange.
type ExchangeCalendar struct {
	Code           string
	Name           string
	TimezoneStr    string
	Timezone       *time.Location
	TradingWindows []TradingWindow
	Holidays2026   []time.Time // Year-specific holidays
	StrictHours    bool        // Asian markets - trades only when open
}

// MarketHoursService resolves exchange calendars for the five markets the
// collector and scheduler care about (spec.md §1): KOSPI, KOSDAQ, NASDAQ,
// NYSE, AMEX. It answers "what is today's trade date in this market's
// timezone" for the collector's backfill/prune logic. IsMarketOpen also
// reports whether a market is inside its trading window; the scheduled
// jobs in this package do not consult it.
type MarketHoursService struct {
	calendars map[domain.Market]*ExchangeCalendar
	log       zerolog.Logger
}

// NewMarketHoursService creates a new market hours service.
func NewMarketHoursService(log zerolog.Logger) *MarketHoursService {
	service := &MarketHoursService{
		calendars: make(map[domain.Market]*ExchangeCalendar),
		log:       log.With().Str("component", "market_hours").Logger(),
	}

	service.initializeCalendars()
	return service
}

func (s *MarketHoursService) initializeCalendars() {
	seoulLoc, _ := time.LoadLocation("Asia/Seoul")
	krHolidays := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 1, 29, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 1, 30, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 1, 31, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 3, 1, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 5, 5, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 5, 19, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 6, 6, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 8, 15, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 10, 1, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 10, 2, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 10, 3, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 10, 9, 0, 0, 0, 0, seoulLoc),
		time.Date(2026, 12, 25, 0, 0, 0, 0, seoulLoc),
	}

	krCal := &ExchangeCalendar{
		Code:        "XKRX",
		Name:        "KRX",
		TimezoneStr: "Asia/Seoul",
		Timezone:    seoulLoc,
		TradingWindows: []TradingWindow{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 15, CloseMinute: 30},
		},
		Holidays2026: krHolidays,
		StrictHours:  true,
	}
	s.calendars[domain.MarketKOSPI] = krCal
	s.calendars[domain.MarketKOSDAQ] = krCal

	nyLoc, _ := time.LoadLocation("America/New_York")
	usHolidays := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, nyLoc),
		time.Date(2026, 1, 19, 0, 0, 0, 0, nyLoc),
		time.Date(2026, 2, 16, 0, 0, 0, 0, nyLoc),
		time.Date(2026, 4, 10, 0, 0, 0, 0, nyLoc),
		time.Date(2026, 5, 25, 0, 0, 0, 0, nyLoc),
		time.Date(2026, 7, 3, 0, 0, 0, 0, nyLoc),
		time.Date(2026, 9, 7, 0, 0, 0, 0, nyLoc),
		time.Date(2026, 11, 26, 0, 0, 0, 0, nyLoc),
		time.Date(2026, 12, 25, 0, 0, 0, 0, nyLoc),
	}

	usCal := &ExchangeCalendar{
		Code:        "XNYS",
		Name:        "NYSE",
		TimezoneStr: "America/New_York",
		Timezone:    nyLoc,
		TradingWindows: []TradingWindow{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		},
		Holidays2026: usHolidays,
		StrictHours:  false,
	}
	s.calendars[domain.MarketNYSE] = usCal
	s.calendars[domain.MarketNASDAQ] = usCal
	s.calendars[domain.MarketAMEX] = usCal

	s.log.Info().Int("calendars", len(s.calendars)).Msg("market hours calendars initialized")
}

// GetCalendar returns the calendar for a market, or the NYSE calendar if the
// market isn't configured.
func (s *MarketHoursService) GetCalendar(market domain.Market) *ExchangeCalendar {
	if cal, ok := s.calendars[market]; ok {
		return cal
	}
	s.log.Warn().Str("market", string(market)).Msg("unknown market, defaulting to NYSE calendar")
	return s.calendars[domain.MarketNYSE]
}

// TodayIn returns the current trade date in the given market's timezone,
// truncated to midnight, for retention-horizon and backfill-window math
// (spec.md §4.F, §4.G).
func (s *MarketHoursService) TodayIn(market domain.Market) time.Time {
	cal := s.GetCalendar(market)
	now := time.Now().In(cal.Timezone)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cal.Timezone)
}

// IsMarketOpen checks if a market is currently within its trading window,
// accounting for weekends and the fixed 2026 holiday calendar.
func (s *MarketHoursService) IsMarketOpen(market domain.Market) bool {
	cal := s.GetCalendar(market)
	now := time.Now().In(cal.Timezone)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cal.Timezone)
	for _, holiday := range cal.Holidays2026 {
		if holiday.Equal(today) {
			return false
		}
	}

	currentMinutes := now.Hour()*60 + now.Minute()
	for _, window := range cal.TradingWindows {
		openMinutes := window.OpenHour*60 + window.OpenMinute
		closeMinutes := window.CloseHour*60 + window.CloseMinute
		if currentMinutes >= openMinutes && currentMinutes < closeMinutes {
			return true
		}
	}
	return false
}

// MarketStatus represents the status of a market.
type MarketStatus struct {
	Market   domain.Market `json:"market"`
	IsOpen   bool          `json:"is_open"`
	Timezone string        `json:"timezone"`
}

// GetAllMarketStatuses returns status for all configured markets.
func (s *MarketHoursService) GetAllMarketStatuses() []MarketStatus {
	markets := []domain.Market{
		domain.MarketKOSPI, domain.MarketKOSDAQ,
		domain.MarketNASDAQ, domain.MarketNYSE, domain.MarketAMEX,
	}
	statuses := make([]MarketStatus, 0, len(markets))
	for _, m := range markets {
		cal := s.GetCalendar(m)
		statuses = append(statuses, MarketStatus{
			Market:   m,
			IsOpen:   s.IsMarketOpen(m),
			Timezone: cal.TimezoneStr,
		})
	}
	return statuses
}
