// Package universe resolves the ordered set of instruments eligible for a
// screening run, per spec.md §4.E's source precedence: durable store,
// operator upload, packaged CSV, hard-coded fallback.
package universe

import (
	"bufio"
	"embed"
	"encoding/csv"
	"io"
	"strings"

	"github.com/aristath/stockhunter/internal/domain"
)

//go:embed fallback_kr.csv fallback_us.csv
var packagedFS embed.FS

// Fixed-width offsets for the operator-upload listing format: a 6-digit
// leading numeric code followed by a 40-character name field.
const (
	fixedWidthCodeLen = 6
	fixedWidthNameLen = 40
)

// ParseFixedWidth reads an operator-supplied listing file. Market is
// inferred by the caller from the filename (kospi/kosdaq substring) and
// passed in directly since the format itself carries no market column.
func ParseFixedWidth(r io.Reader, market domain.Market) ([]domain.Instrument, error) {
	scanner := bufio.NewScanner(r)
	var out []domain.Instrument
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < fixedWidthCodeLen {
			continue
		}
		code := strings.TrimSpace(line[:fixedWidthCodeLen])
		if code == "" {
			continue
		}
		nameEnd := fixedWidthCodeLen + fixedWidthNameLen
		if nameEnd > len(line) {
			nameEnd = len(line)
		}
		name := strings.TrimSpace(line[fixedWidthCodeLen:nameEnd])
		out = append(out, domain.Instrument{
			ID:       code,
			Name:     name,
			Market:   market,
			IsActive: true,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarketFromFilename infers a market from a listing filename substring,
// per spec.md §4.E ("kospi" -> KOSPI, "kosdaq" -> KOSDAQ).
func MarketFromFilename(name string) (domain.Market, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "kosdaq"):
		return domain.MarketKOSDAQ, true
	case strings.Contains(lower, "kospi"):
		return domain.MarketKOSPI, true
	default:
		return "", false
	}
}

// PackagedCSV reads the binary-embedded fallback listing for market.
// Columns are code,name,market[,sector].
func PackagedCSV(market domain.Market) ([]domain.Instrument, error) {
	var filename string
	switch market {
	case domain.MarketKOSPI, domain.MarketKOSDAQ:
		filename = "fallback_kr.csv"
	case domain.MarketNASDAQ, domain.MarketNYSE, domain.MarketAMEX:
		filename = "fallback_us.csv"
	default:
		return nil, nil
	}

	f, err := packagedFS.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var out []domain.Instrument
	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue // header
		}
		rowMarket := domain.Market(row[2])
		if rowMarket != market {
			continue
		}
		out = append(out, domain.Instrument{
			ID:       row[0],
			Name:     row[1],
			Market:   rowMarket,
			IsActive: true,
		})
	}
	return out, nil
}

// hardcodedUniverse is the last-resort, in-binary universe: no file I/O,
// no embed lookup, just literal data, for when even the packaged CSV
// cannot be read.
var hardcodedUniverse = map[domain.Market][]domain.Instrument{
	domain.MarketKOSPI: {
		{ID: "005930", Name: "Samsung Electronics", Market: domain.MarketKOSPI, IsActive: true},
		{ID: "000660", Name: "SK Hynix", Market: domain.MarketKOSPI, IsActive: true},
		{ID: "005380", Name: "Hyundai Motor", Market: domain.MarketKOSPI, IsActive: true},
		{ID: "035420", Name: "NAVER", Market: domain.MarketKOSPI, IsActive: true},
		{ID: "005490", Name: "POSCO Holdings", Market: domain.MarketKOSPI, IsActive: true},
	},
	domain.MarketKOSDAQ: {
		{ID: "247540", Name: "Ecopro BM", Market: domain.MarketKOSDAQ, IsActive: true},
		{ID: "086520", Name: "Ecopro", Market: domain.MarketKOSDAQ, IsActive: true},
		{ID: "068270", Name: "Celltrion", Market: domain.MarketKOSDAQ, IsActive: true},
	},
	domain.MarketNASDAQ: {
		{ID: "AAPL", Name: "Apple Inc", Market: domain.MarketNASDAQ, IsActive: true},
		{ID: "MSFT", Name: "Microsoft Corp", Market: domain.MarketNASDAQ, IsActive: true},
		{ID: "NVDA", Name: "NVIDIA Corp", Market: domain.MarketNASDAQ, IsActive: true},
	},
	domain.MarketNYSE: {
		{ID: "JPM", Name: "JPMorgan Chase & Co", Market: domain.MarketNYSE, IsActive: true},
		{ID: "JNJ", Name: "Johnson & Johnson", Market: domain.MarketNYSE, IsActive: true},
	},
	domain.MarketAMEX: {},
}

// HardcodedFallback is the last-resort, ≤40-instrument universe for
// market, used only when no store snapshot, upload, or packaged CSV is
// available.
func HardcodedFallback(market domain.Market) []domain.Instrument {
	return hardcodedUniverse[market]
}
