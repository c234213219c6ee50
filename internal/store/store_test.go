package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- SQLite ---

func TestSQLite_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "geocode", "fwd:madrid", []byte(`{"status":"ok"}`), time.Hour))

	data, err := st.Get(ctx, "geocode", "fwd:madrid")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"ok"}`, string(data))

	other, err := st.Get(ctx, "knowledge", "fwd:madrid")
	require.NoError(t, err)
	assert.Nil(t, other, "namespaces are separate")
}

func TestSQLite_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "geocode", "k", []byte("a"), time.Hour))
	require.NoError(t, st.Set(ctx, "geocode", "k", []byte("b"), time.Hour))

	data, err := st.Get(ctx, "geocode", "k")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestSQLite_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	data, err := st.Get(context.Background(), "geocode", "nope")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLite_ExpiryAndPurge(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	st.now = func() time.Time { return now }

	require.NoError(t, st.Set(ctx, "geocode", "short", []byte("x"), time.Minute))
	require.NoError(t, st.Set(ctx, "geocode", "long", []byte("y"), time.Hour))

	now = now.Add(2 * time.Minute)
	data, err := st.Get(ctx, "geocode", "short")
	require.NoError(t, err)
	assert.Nil(t, data)

	n, err := st.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	data, err = st.Get(ctx, "geocode", "long")
	require.NoError(t, err)
	assert.Equal(t, "y", string(data))
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}

// --- Postgres ---

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM response_cache WHERE namespace = \$1 AND key = \$2`).
		WithArgs("knowledge", "facts:Q2807").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{"population":3000000}`)))

	data, err := s.Get(context.Background(), "knowledge", "facts:Q2807")
	require.NoError(t, err)
	assert.JSONEq(t, `{"population":3000000}`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM response_cache`).
		WithArgs("geocode", "fwd:atlantis").
		WillReturnError(pgx.ErrNoRows)

	data, err := s.Get(context.Background(), "geocode", "fwd:atlantis")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM response_cache`).
		WithArgs("geocode", "k").
		WillReturnError(errors.New("connection refused"))

	_, err := s.Get(context.Background(), "geocode", "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: get geocode/k")
}

func TestPostgresStore_Set(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO response_cache`).
		WithArgs("geocode", "rev:40.417,-3.704:10", []byte("v"), 10*time.Minute).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Set(context.Background(), "geocode", "rev:40.417,-3.704:10", []byte("v"), 10*time.Minute)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpired(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM response_cache WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := s.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS response_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Redis ---

type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }

func (f *fakeRedis) Close() error { return nil }

func TestRedisStore_SetGet(t *testing.T) {
	fr := newFakeRedis()
	s := &RedisStore{rc: fr}
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "shelters", "40.400,-3.700,40.500,-3.600", []byte("[]"), 5*time.Minute))
	assert.Equal(t, 5*time.Minute, fr.ttls["geoassist:shelters:40.400,-3.700,40.500,-3.600"])

	data, err := s.Get(ctx, "shelters", "40.400,-3.700,40.500,-3.600")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	missing, err := s.Get(ctx, "shelters", "other")
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, s.Migrate(ctx))
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis("http://not-redis")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Driver: "memory"})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Open(ctx, Config{Driver: "cassandra"})
	assert.Error(t, err)

	s, err = Open(ctx, Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close() //nolint:errcheck
	require.NoError(t, s.Set(ctx, "geocode", "k", []byte("v"), time.Minute))
}
