package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockhunter/internal/domain"
)

type fakeMinter struct {
	calls int
	token string
	ttl   time.Duration
	err   error
}

func (f *fakeMinter) MintToken(ctx context.Context) (string, time.Duration, error) {
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.token, f.ttl, nil
}

func newTestManager(t *testing.T, minter Minter) *Manager {
	t.Helper()
	return New(minter, domain.EnvPaper, "app-key", t.TempDir(), zerolog.Nop())
}

func TestAcquireMintsOnce(t *testing.T) {
	minter := &fakeMinter{token: "tok-1", ttl: time.Hour}
	m := newTestManager(t, minter)

	tok1, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok1)

	tok2, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok2)
	assert.Equal(t, 1, minter.calls)
}

func TestAcquireRemintsAfterExpiry(t *testing.T) {
	minter := &fakeMinter{token: "tok-1", ttl: time.Second}
	m := newTestManager(t, minter)

	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	minter.token = "tok-2"

	tok, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, 2, minter.calls)
}

func TestAcquireWrapsMintFailureAsAuthFailure(t *testing.T) {
	minter := &fakeMinter{err: assertErr("network down")}
	m := newTestManager(t, minter)

	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthFailure, domain.KindOf(err))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
