package store

import (
	"context"
	"fmt"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// fakeRedis keeps keys in a map and records the TTL of each Set.
type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		f.data[key] = fmt.Sprint(v)
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.data {
		if ok, _ := path.Match(match, k); ok {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeRedis) Close() error { return nil }

func newTestRedisStore(t *testing.T) (*RedisStore, *fakeRedis) {
	t.Helper()
	f := newFakeRedis()
	return newRedisStore(f, 2*time.Hour), f
}

// --- Leads ---

func TestRedis_Lead_PutAndGet(t *testing.T) {
	t.Parallel()
	s, f := newTestRedisStore(t)
	ctx := context.Background()

	k := Key{SourceURL: "https://maps/1", Domain: "acme.fr", Name: "acme"}
	require.NoError(t, s.PutLead(ctx, k, testRecord("Acme", 66, model.CategoryQualified)))

	// One blob and three index keys, all with the cache TTL.
	assert.Len(t, f.data, 4)
	for key, ttl := range f.ttls {
		assert.Equal(t, 2*time.Hour, ttl, key)
	}

	rec, err := s.GetLead(ctx, Key{Name: "acme"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 66, rec.ScoreTotal)
}

func TestRedis_Lead_Precedence(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutLead(ctx, Key{Domain: "acme.fr"}, testRecord("Acme Domain", 50, model.CategoryQualified)))
	require.NoError(t, s.PutLead(ctx, Key{Name: "acme"}, testRecord("Acme Name", 20, model.CategoryWeak)))

	rec, err := s.GetLead(ctx, Key{Domain: "acme.fr", Name: "acme"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Acme Domain", rec.Business.Name)
}

func TestRedis_Lead_PutReusesID(t *testing.T) {
	t.Parallel()
	s, f := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutLead(ctx, Key{Domain: "acme.fr"}, testRecord("Acme", 10, model.CategoryWeak)))
	require.NoError(t, s.PutLead(ctx, Key{Domain: "acme.fr", Name: "acme"}, testRecord("Acme", 90, model.CategoryPremium)))

	leads, err := s.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, 90, leads[0].ScoreTotal)
	assert.Equal(t, f.data[redisIndexKey+"domain:acme.fr"], f.data[redisIndexKey+"name_key:acme"])
}

func TestRedis_Lead_MissAndDangling(t *testing.T) {
	t.Parallel()
	s, f := newTestRedisStore(t)
	ctx := context.Background()

	rec, err := s.GetLead(ctx, Key{Domain: "nowhere.fr"})
	require.NoError(t, err)
	assert.Nil(t, rec)

	f.data[redisIndexKey+"domain:gone.fr"] = "expired-id"
	rec, err = s.GetLead(ctx, Key{Domain: "gone.fr"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedis_Lead_Corrupt(t *testing.T) {
	t.Parallel()
	s, f := newTestRedisStore(t)
	ctx := context.Background()

	f.data[redisIndexKey+"domain:acme.fr"] = "id1"
	f.data[redisLeadKey+"id1"] = "{garbage"

	rec, err := s.GetLead(ctx, Key{Domain: "acme.fr"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedis_Lead_GetError(t *testing.T) {
	t.Parallel()
	s, f := newTestRedisStore(t)
	f.getErr = eris.New("connection refused")

	_, err := s.GetLead(context.Background(), Key{Domain: "acme.fr"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: get lead index")
}

func TestRedis_ListLeads_FilterAndOrder(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutLead(ctx, Key{Name: "a"}, testRecord("A", 30, model.CategoryVerify)))
	require.NoError(t, s.PutLead(ctx, Key{Name: "b"}, testRecord("B", 85, model.CategoryPremium)))
	require.NoError(t, s.PutLead(ctx, Key{Name: "c"}, testRecord("C", 60, model.CategoryQualified)))

	all, err := s.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "B", all[0].Business.Name)
	assert.Equal(t, "A", all[2].Business.Name)

	top, err := s.ListLeads(ctx, LeadFilter{MinScore: 50, Limit: 1})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "B", top[0].Business.Name)

	n, err := s.DeleteExpiredLeads(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// --- Runs ---

func TestRedis_Runs(t *testing.T) {
	t.Parallel()
	s, f := newTestRedisStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "électricien Nantes")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), f.ttls[redisRunKey+run.ID])

	run.Status = model.RunStatusRunning
	require.NoError(t, s.UpdateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, "électricien Nantes", got.Query)

	_, err = s.CreateRun(ctx, "other")
	require.NoError(t, err)

	running, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, run.ID, running[0].ID)

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRedis_Runs_NotFound(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))

	err = s.UpdateRun(context.Background(), &model.Run{ID: "missing"})
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestRedis_MigrateNoop(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Close())
}
