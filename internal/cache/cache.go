package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-disaster-response/internal/repository"
)

// Store layers TTL semantics over a durable key-value table. Expired
// entries are treated as misses on read and removed; a background
// sweeper bounds growth from keys that are never read again.
type Store struct {
	kv            repository.KVRepository
	defaultTTL    time.Duration
	sweepInterval time.Duration
	clock         clockwork.Clock
	wg            sync.WaitGroup
}

func New(kv repository.KVRepository, defaultTTL, sweepInterval time.Duration, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		kv:            kv,
		defaultTTL:    defaultTTL,
		sweepInterval: sweepInterval,
		clock:         clock,
	}
}

// Get returns the stored value for key, or ok=false for absent keys,
// expired keys, and backing-store errors. An expired entry is eagerly
// deleted as a side effect.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	entry, err := s.kv.GetEntry(ctx, key)
	if err != nil {
		slog.Warn("cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if entry == nil {
		return nil, false
	}

	if !entry.ExpiresAt.After(s.clock.Now()) {
		if err := s.kv.DeleteEntry(ctx, key); err != nil {
			slog.Warn("failed to remove expired cache entry", "key", key, "error", err)
		}
		return nil, false
	}

	return entry.Value, true
}

// Set stores value under key. A non-positive ttl selects the default.
// Any existing entry for the key is overwritten.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.kv.PutEntry(ctx, key, value, s.clock.Now().Add(ttl))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.kv.DeleteEntry(ctx, key)
}

// StartSweeper launches the periodic expiry sweep. It stops when ctx
// is cancelled; Wait blocks until it has exited.
func (s *Store) StartSweeper(ctx context.Context) {
	s.wg.Add(1)
	go s.runSweeper(ctx)
}

func (s *Store) runSweeper(ctx context.Context) {
	defer s.wg.Done()
	slog.Info("starting cache sweeper", "interval", s.sweepInterval)

	ticker := s.clock.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cache sweeper shutting down")
			return
		case <-ticker.Chan():
			n, err := s.kv.DeleteExpired(ctx, s.clock.Now())
			if err != nil {
				slog.Error("cache sweep failed", "error", err)
				continue
			}
			slog.Debug("cache sweep complete", "removed", n)
		}
	}
}

func (s *Store) Wait() {
	s.wg.Wait()
}
