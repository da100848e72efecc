package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockhunter/internal/domain"
)

type fakeIncrementalUpdater struct {
	called  bool
	err     error
	gotCtx  context.Context
}

func (f *fakeIncrementalUpdater) IncrementalUpdate(ctx context.Context) error {
	f.called = true
	f.gotCtx = ctx
	return f.err
}

func TestIncrementalUpdateJobRunsWithBoundedContext(t *testing.T) {
	updater := &fakeIncrementalUpdater{}
	job := NewIncrementalUpdateJob(updater, time.Minute)

	require.NoError(t, job.Run())
	assert.True(t, updater.called)
	assert.Equal(t, "incremental_update", job.Name())

	deadline, ok := updater.gotCtx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestIncrementalUpdateJobPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	job := NewIncrementalUpdateJob(&fakeIncrementalUpdater{err: wantErr}, time.Second)
	assert.ErrorIs(t, job.Run(), wantErr)
}

type fakeMarketRefresher struct {
	refreshed []domain.Market
	failOn    domain.Market
}

func (f *fakeMarketRefresher) Refresh(market domain.Market) error {
	f.refreshed = append(f.refreshed, market)
	if market == f.failOn {
		return errors.New("refresh failed")
	}
	return nil
}

func TestMasterCacheRefreshJobRefreshesEveryMarket(t *testing.T) {
	refresher := &fakeMarketRefresher{}
	job := NewMasterCacheRefreshJob(refresher, []domain.Market{domain.MarketKOSPI, domain.MarketNASDAQ})

	require.NoError(t, job.Run())
	assert.Equal(t, []domain.Market{domain.MarketKOSPI, domain.MarketNASDAQ}, refresher.refreshed)
	assert.Equal(t, "master_cache_refresh", job.Name())
}

func TestMasterCacheRefreshJobStopsOnFirstError(t *testing.T) {
	refresher := &fakeMarketRefresher{failOn: domain.MarketKOSPI}
	job := NewMasterCacheRefreshJob(refresher, []domain.Market{domain.MarketKOSPI, domain.MarketNASDAQ})

	assert.Error(t, job.Run())
	assert.Equal(t, []domain.Market{domain.MarketKOSPI}, refresher.refreshed)
}
