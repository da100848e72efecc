package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aristath/stockhunter/internal/domain"
)

// ensureInitialised rejects a screen request against a price store that
// has never been backfilled (spec.md §7's NotInitialised error kind).
// Screening an empty store silently returns zero matches otherwise, which
// reads indistinguishably from "nothing passed the gate".
func (s *Server) ensureInitialised(op string) error {
	refs, err := s.priceStore.AllInstrumentsWithBars()
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return domain.NewError(domain.KindNotInitialised, op, fmt.Errorf("price store has no bars; run database initialize first"))
	}
	return nil
}

// handleScreen runs a screening condition against the combined KOSPI +
// KOSDAQ universe (spec.md §6.2 POST /api/v1/screen).
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	var cond domain.ScreeningCondition
	if err := json.NewDecoder(r.Body).Decode(&cond); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.ensureInitialised("server.handleScreen"); err != nil {
		s.writeDomainError(w, "server.handleScreen", err)
		return
	}

	universe, err := s.krUniverse()
	if err != nil {
		s.writeDomainError(w, "server.handleScreen", err)
		return
	}

	result, err := s.engine.Screen(r.Context(), "kr", universe, cond)
	if err != nil {
		s.writeDomainError(w, "server.handleScreen", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleUSScreen runs a screening condition against the combined NASDAQ +
// NYSE + AMEX universe (spec.md §6.2 POST /api/v1/us/screen).
func (s *Server) handleUSScreen(w http.ResponseWriter, r *http.Request) {
	var cond domain.ScreeningCondition
	if err := json.NewDecoder(r.Body).Decode(&cond); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.ensureInitialised("server.handleUSScreen"); err != nil {
		s.writeDomainError(w, "server.handleUSScreen", err)
		return
	}

	universe, err := s.usUniverse()
	if err != nil {
		s.writeDomainError(w, "server.handleUSScreen", err)
		return
	}

	result, err := s.engine.Screen(r.Context(), "us", universe, cond)
	if err != nil {
		s.writeDomainError(w, "server.handleUSScreen", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type validateCredentialsRequest struct {
	AppKey       string `json:"app_key"`
	AppSecret    string `json:"app_secret"`
	IsProduction bool   `json:"is_production"`
}

// handleValidateCredentials mints a token against the supplied credentials
// without touching the server's own configured session (spec.md §6.2 POST
// /api/v1/validate-credentials). 200 on success, 401 on AuthFailure.
func (s *Server) handleValidateCredentials(w http.ResponseWriter, r *http.Request) {
	var req validateCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.AppKey == "" || req.AppSecret == "" {
		s.writeError(w, http.StatusBadRequest, "app_key and app_secret are required")
		return
	}

	if err := s.credentialCheck(r.Context(), req.AppKey, req.AppSecret, req.IsProduction); err != nil {
		s.writeDomainError(w, "server.handleValidateCredentials", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// handleStockCodes lists the combined KOSPI + KOSDAQ universe (spec.md
// §6.2 GET /api/v1/stock-codes).
func (s *Server) handleStockCodes(w http.ResponseWriter, r *http.Request) {
	universe, err := s.krUniverse()
	if err != nil {
		s.writeDomainError(w, "server.handleStockCodes", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"instruments": universe, "count": len(universe)})
}

// handleUSSymbols lists one US exchange's universe, selected by the
// exchange query parameter (spec.md §6.2 GET /api/v1/us/symbols).
func (s *Server) handleUSSymbols(w http.ResponseWriter, r *http.Request) {
	market, ok := usExchangeParam(r.URL.Query().Get("exchange"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "exchange must be one of NAS, NYS, AMS")
		return
	}

	instruments, err := s.universeFor(market)
	if err != nil {
		s.writeDomainError(w, "server.handleUSSymbols", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"instruments": instruments, "count": len(instruments)})
}

func usExchangeParam(exchange string) (domain.Market, bool) {
	switch exchange {
	case "NAS", "":
		return domain.MarketNASDAQ, true
	case "NYS":
		return domain.MarketNYSE, true
	case "AMS":
		return domain.MarketAMEX, true
	default:
		return "", false
	}
}

// krUniverse combines the KOSPI and KOSDAQ universes into one screening
// pool, per spec.md §3's single Korean screen endpoint.
func (s *Server) krUniverse() ([]domain.Instrument, error) {
	return s.combinedUniverse(domain.MarketKOSPI, domain.MarketKOSDAQ)
}

// usUniverse combines NASDAQ, NYSE, and AMEX into one screening pool.
func (s *Server) usUniverse() ([]domain.Instrument, error) {
	return s.combinedUniverse(domain.MarketNASDAQ, domain.MarketNYSE, domain.MarketAMEX)
}

func (s *Server) combinedUniverse(markets ...domain.Market) ([]domain.Instrument, error) {
	var out []domain.Instrument
	for _, m := range markets {
		instruments, err := s.universeFor(m)
		if err != nil {
			return nil, err
		}
		out = append(out, instruments...)
	}
	return out, nil
}
