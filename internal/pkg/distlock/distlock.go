package distlock

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ukaseai/brandlab/internal/pkg/logger"
)

// ErrNotAcquired is returned by Run when another holder owns the lock.
var ErrNotAcquired = errors.New("distlock: lock held by another process")

// DistLock is the interface for distributed locking.
// Implementations are not safe for concurrent use; create one lock per holder.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Factory builds locks for a key. It picks Redis when a client is present,
// then Postgres advisory locks, and returns nil when neither backend exists.
type Factory struct {
	redis *redis.Client
	db    *sql.DB
	ttl   time.Duration
}

// NewFactory returns a Factory. Either backend may be nil.
func NewFactory(redisClient *redis.Client, db *sql.DB, ttl time.Duration) *Factory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Factory{redis: redisClient, db: db, ttl: ttl}
}

// Enabled reports whether any lock backend is configured.
func (f *Factory) Enabled() bool {
	return f != nil && (f.redis != nil || f.db != nil)
}

// New creates a lock for key using the best available backend.
func (f *Factory) New(key string) DistLock {
	switch {
	case f == nil:
		return nil
	case f.redis != nil:
		return NewRedisLock(f.redis, key, f.ttl)
	case f.db != nil:
		return NewPGAdvisoryLock(f.db, key)
	default:
		return nil
	}
}

// Run acquires the lock for key, runs fn, and releases the lock. Without a
// backend fn runs unguarded.
func (f *Factory) Run(ctx context.Context, key string, fn func() error) error {
	lock := f.New(key)
	if lock == nil {
		return fn()
	}

	ok, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer func() {
		// release must outlive a canceled request context
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			logger.Warn("distlock: release failed", "key", key, "error", err)
		}
	}()

	if ext, ok := lock.(extender); ok {
		stop := make(chan struct{})
		defer close(stop)
		go f.keepAlive(ext, key, stop)
	}

	return fn()
}

type extender interface {
	Extend(ctx context.Context, ttl time.Duration) error
}

// keepAlive refreshes the TTL at half its period until stop closes, so a
// dispatch that outlives the TTL keeps its lock.
func (f *Factory) keepAlive(l extender, key string, stop <-chan struct{}) {
	t := time.NewTicker(f.ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := l.Extend(ctx, f.ttl)
			cancel()
			if err != nil {
				logger.Warn("distlock: extend failed", "key", key, "error", err)
				return
			}
		}
	}
}

// Key derives a stable lock key from arbitrary parts.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s:%s", namespace, hex.EncodeToString(h.Sum(nil))[:32])
}

// PGAdvisoryLock implements DistLock using PostgreSQL session advisory locks.
// Advisory locks belong to a session, so the lock pins one pooled connection
// from Acquire until Release.
type PGAdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(strings.TrimSpace(key)))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries pg_try_advisory_lock, which returns immediately.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("distlock: open connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("distlock: try advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks and returns the pinned connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
