package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/stockhunter/internal/store"
)

// databaseStatusResponse mirrors spec.md §6.2 GET /api/v1/database/status.
type databaseStatusResponse struct {
	store.Statistics
	MasterCacheTotal     int       `json:"master_cache_total"`
	LastFullInit         string    `json:"last_full_init,omitempty"`
	LastDailyUpdate      string    `json:"last_daily_update,omitempty"`
	MasterCacheRefreshed time.Time `json:"master_cache_refreshed_at,omitempty"`
}

// handleDatabaseStatus reports store coverage and last-run timestamps
// (spec.md §6.2 GET /api/v1/database/status).
func (s *Server) handleDatabaseStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.priceStore.Statistics()
	if err != nil {
		s.writeDomainError(w, "server.handleDatabaseStatus", err)
		return
	}
	masterStats, err := s.masterCache.Stats()
	if err != nil {
		s.writeDomainError(w, "server.handleDatabaseStatus", err)
		return
	}

	lastFullInit, _, _ := s.meta.GetMeta(store.MetaLastFullInit)
	lastDailyUpdate, _, _ := s.meta.GetMeta(store.MetaLastDailyUpdate)

	s.writeJSON(w, http.StatusOK, databaseStatusResponse{
		Statistics:           stats,
		MasterCacheTotal:     masterStats.Total,
		LastFullInit:         lastFullInit,
		LastDailyUpdate:      lastDailyUpdate,
		MasterCacheRefreshed: masterStats.LastRefresh,
	})
}

// handleDatabaseProgress reports the current collector run, if any
// (spec.md §6.2 GET /api/v1/database/progress, §9).
func (s *Server) handleDatabaseProgress(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.Snapshot())
}

type databaseInitializeRequest struct {
	AppKey       string `json:"appKey"`
	AppSecret    string `json:"appSecret"`
	IsProduction bool   `json:"isProduction"`
	ForceRebuild bool   `json:"forceRebuild"`
}

// handleDatabaseInitialize launches a full backfill in the background and
// returns immediately (spec.md §6.2 POST /api/v1/database/initialize). When
// appKey/appSecret are supplied the backfill runs against a broker client
// minted for those credentials instead of the server's own configured
// session, mirroring handleValidateCredentials' one-off probe. A synchronous
// AlreadyInitialised check runs first so the caller learns about a no-op
// request without waiting for the background run.
func (s *Server) handleDatabaseInitialize(w http.ResponseWriter, r *http.Request) {
	var req databaseInitializeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	if !req.ForceRebuild {
		existing, err := s.priceStore.AllInstrumentsWithBars()
		if err != nil {
			s.writeDomainError(w, "server.handleDatabaseInitialize", err)
			return
		}
		if len(existing) > 0 {
			s.writeError(w, http.StatusConflict, "database already initialized; pass forceRebuild to rebuild")
			return
		}
	}

	coll := s.collector
	if req.AppKey != "" || req.AppSecret != "" {
		if req.AppKey == "" || req.AppSecret == "" {
			s.writeError(w, http.StatusBadRequest, "appKey and appSecret are both required to override the broker session")
			return
		}
		if s.backfillCollectorFor == nil {
			s.writeError(w, http.StatusBadRequest, "credential override is not supported by this deployment")
			return
		}
		overridden, err := s.backfillCollectorFor(r.Context(), req.AppKey, req.AppSecret, req.IsProduction)
		if err != nil {
			s.writeDomainError(w, "server.handleDatabaseInitialize", err)
			return
		}
		coll = overridden
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()
		if err := coll.FullBackfill(ctx, req.ForceRebuild); err != nil {
			s.log.Error().Err(err).Msg("full backfill failed")
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "operation": "full_backfill"})
}

// handleDatabaseUpdate launches an incremental update in the background
// (spec.md §6.2 POST /api/v1/database/update).
func (s *Server) handleDatabaseUpdate(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := s.collector.IncrementalUpdate(ctx); err != nil {
			s.log.Error().Err(err).Msg("incremental update failed")
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "operation": "incremental_update"})
}

// handleSyncStockNames launches a stock-name resolution pass in the
// background (spec.md §6.2 POST /api/v1/database/sync-stock-names).
func (s *Server) handleSyncStockNames(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if err := s.collector.SyncStockNames(ctx, s.instrumentNeedsName, s.masterCache.UpdateName); err != nil {
			s.log.Error().Err(err).Msg("sync stock names failed")
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "operation": "sync_stock_names"})
}
