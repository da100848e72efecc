package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockhunter/internal/domain"
	"github.com/aristath/stockhunter/internal/store"
)

func testServer(t *testing.T, universeFor UniverseFor, credCheck CredentialChecker) *Server {
	t.Helper()
	return New(Config{
		Port:            0,
		Log:             zerolog.Nop(),
		DevMode:         true,
		UniverseFor:     universeFor,
		CredentialCheck: credCheck,
	})
}

func openTestStore(t *testing.T) *store.PriceStore {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "price_data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewPriceStore(db)
}

func TestHandleScreenRejectsUninitialisedStore(t *testing.T) {
	s := testServer(t, func(domain.Market) ([]domain.Instrument, error) { return nil, nil }, nil)
	s.priceStore = openTestStore(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/screen", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "NotInitialised")
}

func TestHandleUSScreenRejectsUninitialisedStore(t *testing.T) {
	s := testServer(t, func(domain.Market) ([]domain.Instrument, error) { return nil, nil }, nil)
	s.priceStore = openTestStore(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/us/screen", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleStockCodesCombinesKOSPIAndKOSDAQ(t *testing.T) {
	seen := map[domain.Market]bool{}
	universeFor := func(market domain.Market) ([]domain.Instrument, error) {
		seen[market] = true
		return []domain.Instrument{{ID: "X", Market: market}}, nil
	}
	s := testServer(t, universeFor, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock-codes", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, seen[domain.MarketKOSPI])
	assert.True(t, seen[domain.MarketKOSDAQ])
	assert.False(t, seen[domain.MarketNASDAQ])
}

func TestHandleUSSymbolsRejectsUnknownExchange(t *testing.T) {
	s := testServer(t, func(domain.Market) ([]domain.Instrument, error) { return nil, nil }, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/us/symbols?exchange=BOGUS", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUSSymbolsResolvesByExchangeCode(t *testing.T) {
	var got domain.Market
	universeFor := func(market domain.Market) ([]domain.Instrument, error) {
		got = market
		return []domain.Instrument{{ID: "AAPL", Market: market}}, nil
	}
	s := testServer(t, universeFor, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/us/symbols?exchange=NYS", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.MarketNYSE, got)
}

func TestHandleValidateCredentialsRequiresBothFields(t *testing.T) {
	s := testServer(t, nil, func(ctx context.Context, appKey, appSecret string, isProduction bool) error {
		return nil
	})

	body, _ := json.Marshal(map[string]string{"app_key": "only-key"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate-credentials", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleValidateCredentialsMapsAuthFailureTo401(t *testing.T) {
	s := testServer(t, nil, func(ctx context.Context, appKey, appSecret string, isProduction bool) error {
		return domain.NewError(domain.KindAuthFailure, "test", errors.New("bad creds"))
	})

	body, _ := json.Marshal(map[string]string{"app_key": "k", "app_secret": "s"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate-credentials", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleValidateCredentialsOKOnSuccess(t *testing.T) {
	s := testServer(t, nil, func(ctx context.Context, appKey, appSecret string, isProduction bool) error {
		return nil
	})

	body, _ := json.Marshal(map[string]string{"app_key": "k", "app_secret": "s"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate-credentials", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body2 map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body2))
	assert.True(t, body2["valid"])
}

func TestWriteDomainErrorMapsKinds(t *testing.T) {
	cases := []struct {
		kind domain.Kind
		want int
	}{
		{domain.KindAuthFailure, http.StatusUnauthorized},
		{domain.KindNotInitialised, http.StatusBadRequest},
		{domain.KindAlreadyInitialised, http.StatusConflict},
		{domain.KindInvalidInput, http.StatusBadRequest},
		{domain.KindStoreFailure, http.StatusInternalServerError},
		{domain.KindTransport, http.StatusBadGateway},
		{domain.KindBrokerError, http.StatusBadGateway},
		{domain.KindUnknown, http.StatusInternalServerError},
	}
	s := testServer(t, nil, nil)
	for _, c := range cases {
		w := httptest.NewRecorder()
		s.writeDomainError(w, "test.op", domain.NewError(c.kind, "test.op", errors.New("boom")))
		assert.Equal(t, c.want, w.Code, "kind %v", c.kind)
	}
}

func TestHandleUploadStockMasterRejectsUnknownFilename(t *testing.T) {
	s := testServer(t, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "unrelated.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("005930" + padTo("Samsung", 40)))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/database/upload-stock-master", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func padTo(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}
