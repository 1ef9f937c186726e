package distlock

import (
	"bytes"
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaseai/brandlab/internal/pkg/logger"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisLockExclusive(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "dispatch:abc", time.Minute)
	second := NewRedisLock(client, "dispatch:abc", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	// a non-owner release is a no-op
	require.NoError(t, second.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockExtend(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	lock := NewRedisLock(client, "dispatch:ttl", time.Second)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Extend(ctx, time.Minute))
	assert.True(t, mr.TTL("brandlab:lock:dispatch:ttl") > time.Second)

	mr.FastForward(2 * time.Minute)
	assert.Error(t, lock.Extend(ctx, time.Minute))
}

func TestFactoryRunRejectsConcurrentHolder(t *testing.T) {
	_, client := newRedis(t)
	f := NewFactory(client, nil, time.Minute)
	ctx := context.Background()

	err := f.Run(ctx, "batch", func() error {
		inner := f.Run(ctx, "batch", func() error { return nil })
		assert.True(t, errors.Is(inner, ErrNotAcquired))
		return nil
	})
	require.NoError(t, err)

	// released after the first run
	ran := false
	require.NoError(t, f.Run(ctx, "batch", func() error { ran = true; return nil }))
	assert.True(t, ran)
}

func TestFactoryRunKeepsLockAlive(t *testing.T) {
	mr, client := newRedis(t)
	f := NewFactory(client, nil, 100*time.Millisecond)

	err := f.Run(context.Background(), "dispatch:slow", func() error {
		mr.SetTTL("brandlab:lock:dispatch:slow", time.Millisecond)
		time.Sleep(150 * time.Millisecond)
		assert.Equal(t, 100*time.Millisecond, mr.TTL("brandlab:lock:dispatch:slow"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("brandlab:lock:dispatch:slow"))
}

func TestFactoryWithoutBackendRunsUnguarded(t *testing.T) {
	f := NewFactory(nil, nil, 0)
	assert.False(t, f.Enabled())
	assert.Nil(t, f.New("x"))

	ran := false
	require.NoError(t, f.Run(context.Background(), "x", func() error { ran = true; return nil }))
	assert.True(t, ran)
}

func TestPGAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	lock := NewPGAdvisoryLock(db, "dispatch:abc")
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lock.Release(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLockBusy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	lock := NewPGAdvisoryLock(db, "dispatch:abc")
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	// nothing pinned, nothing to unlock
	require.NoError(t, lock.Release(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFactoryRunLogsReleaseFailure(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	f := NewFactory(nil, db, time.Minute)
	require.NoError(t, f.Run(context.Background(), "dispatch:abc", func() error { return nil }))

	assert.Contains(t, buf.String(), "distlock: release failed")
	assert.Contains(t, buf.String(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyIsStable(t *testing.T) {
	a := Key("dispatch", "subject", "body", "a@example.com")
	b := Key("dispatch", "subject", "body", "a@example.com")
	c := Key("dispatch", "subject", "bodya@example.com")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^dispatch:[0-9a-f]{32}$`, a)
}
