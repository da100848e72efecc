package scheduler

import (
	"context"
	"time"

	"github.com/aristath/stockhunter/internal/domain"
)

// incrementalUpdater is the subset of *collector.Collector the cron job
// needs.
type incrementalUpdater interface {
	IncrementalUpdate(ctx context.Context) error
}

// IncrementalUpdateJob runs the collector's gap-fill across every known
// instrument on a cron cadence, independent of the HTTP-triggered path
// (spec.md §6.2 POST /api/v1/database/update does the same work on demand).
type IncrementalUpdateJob struct {
	collector incrementalUpdater
	timeout   time.Duration
}

// NewIncrementalUpdateJob constructs the job. timeout bounds one run.
func NewIncrementalUpdateJob(collector incrementalUpdater, timeout time.Duration) *IncrementalUpdateJob {
	return &IncrementalUpdateJob{collector: collector, timeout: timeout}
}

func (j *IncrementalUpdateJob) Name() string { return "incremental_update" }

func (j *IncrementalUpdateJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.collector.IncrementalUpdate(ctx)
}

// marketRefresher is the subset of *universe.Service the cron job needs.
type marketRefresher interface {
	Refresh(market domain.Market) error
}

// MasterCacheRefreshJob re-resolves and persists the instrument universe
// for every configured market on the master-cache TTL cadence, belt and
// braces alongside the 7-day TTL gate already enforced inside Refresh
// itself: this job fires more often so a process restarted near a refresh
// boundary doesn't wait a further TTL period to pick up a stale store.
type MasterCacheRefreshJob struct {
	refresher marketRefresher
	markets   []domain.Market
}

// NewMasterCacheRefreshJob constructs the job for the given markets.
func NewMasterCacheRefreshJob(refresher marketRefresher, markets []domain.Market) *MasterCacheRefreshJob {
	return &MasterCacheRefreshJob{refresher: refresher, markets: markets}
}

func (j *MasterCacheRefreshJob) Name() string { return "master_cache_refresh" }

func (j *MasterCacheRefreshJob) Run() error {
	for _, market := range j.markets {
		if err := j.refresher.Refresh(market); err != nil {
			return err
		}
	}
	return nil
}
