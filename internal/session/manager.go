// Package session guarantees at most one in-flight broker token mint per
// (environment, app key), reusing a prior mint across process restarts and
// renewing transparently as it nears expiry (spec.md §4.B).
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockhunter/internal/domain"
)

// Minter mints a new broker token. Implemented by the broker client.
type Minter interface {
	MintToken(ctx context.Context) (token string, expiresIn time.Duration, err error)
}

// Manager serialises token acquisition for one (environment, app key)
// identity behind a mutex, per spec.md §4.B.
type Manager struct {
	mu     sync.Mutex
	minter Minter
	env    domain.Environment
	appKey string
	cache  domain.Session

	cacheDir string
	now      func() time.Time
	log      zerolog.Logger
}

// New constructs a Manager for one broker identity. cacheDir defaults to
// "<home>/.stockhunter" when empty.
func New(minter Minter, env domain.Environment, appKey string, cacheDir string, log zerolog.Logger) *Manager {
	if cacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cacheDir = filepath.Join(home, ".stockhunter")
		} else {
			cacheDir = ".stockhunter"
		}
	}
	return &Manager{
		minter:   minter,
		env:      env,
		appKey:   appKey,
		cacheDir: cacheDir,
		now:      time.Now,
		log:      log.With().Str("component", "session.Manager").Logger(),
	}
}

// Acquire returns a non-expired token, minting or loading one if needed.
// Concurrent callers on the same Manager block on the same critical
// section; only the first performs I/O, the rest reuse its result.
func (m *Manager) Acquire(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if m.cache.Token != "" && !m.cache.Expired(now) {
		return m.cache.Token, nil
	}

	if sess, ok := m.loadFromFile(); ok && !sess.Expired(now) {
		m.cache = sess
		return sess.Token, nil
	} else if ok {
		_ = os.Remove(m.cacheFilePath())
	}

	token, ttl, err := m.minter.MintToken(ctx)
	if err != nil {
		return "", domain.NewError(domain.KindAuthFailure, "session.Acquire", err)
	}

	sess := domain.Session{
		Token:       token,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
		Environment: m.env,
		AppKeyHash:  hashAppKey(m.appKey),
	}
	m.cache = sess
	if err := m.saveToFile(sess); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist token cache, continuing with in-memory only")
	}
	return sess.Token, nil
}

type tokenFile struct {
	Token          string `json:"token"`
	IssuedAtEpoch  int64  `json:"issued_at_epoch"`
	ExpiresAtEpoch int64  `json:"expires_at_epoch"`
}

func (m *Manager) cacheFilePath() string {
	name := fmt.Sprintf("token_%s_%s.json", m.env, hashAppKey(m.appKey))
	return filepath.Join(m.cacheDir, name)
}

func (m *Manager) loadFromFile() (domain.Session, bool) {
	raw, err := os.ReadFile(m.cacheFilePath())
	if err != nil {
		return domain.Session{}, false
	}
	var tf tokenFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return domain.Session{}, false
	}
	return domain.Session{
		Token:       tf.Token,
		IssuedAt:    time.Unix(tf.IssuedAtEpoch, 0),
		ExpiresAt:   time.Unix(tf.ExpiresAtEpoch, 0),
		Environment: m.env,
		AppKeyHash:  hashAppKey(m.appKey),
	}, true
}

func (m *Manager) saveToFile(sess domain.Session) error {
	if err := os.MkdirAll(m.cacheDir, 0o700); err != nil {
		return err
	}
	tf := tokenFile{
		Token:          sess.Token,
		IssuedAtEpoch:  sess.IssuedAt.Unix(),
		ExpiresAtEpoch: sess.ExpiresAt.Unix(),
	}
	raw, err := json.Marshal(tf)
	if err != nil {
		return err
	}
	return os.WriteFile(m.cacheFilePath(), raw, 0o600)
}

func hashAppKey(appKey string) string {
	sum := sha256.Sum256([]byte(appKey))
	return hex.EncodeToString(sum[:])
}
