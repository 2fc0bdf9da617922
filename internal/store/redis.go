package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

const (
	redisPrefix    = "leadgen:"
	redisLeadKey   = redisPrefix + "lead:"
	redisIndexKey  = redisPrefix + "idx:"
	redisRunKey    = redisPrefix + "run:"
	redisScanCount = 200
)

// redisClient is the subset of *redis.Client the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore implements Store on Redis. Each lead is a JSON blob under
// its own id, reachable from up to three index keys (source URL, domain,
// name). Lead and index keys share the cache TTL so Redis expires them.
type RedisStore struct {
	rdb redisClient
	ttl time.Duration
}

// NewRedis connects to Redis and checks the connection.
func NewRedis(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "redis: connect %s", cfg.Addr)
	}
	return newRedisStore(rdb, ttl), nil
}

func newRedisStore(rdb redisClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Migrate is a no-op: Redis needs no schema.
func (s *RedisStore) Migrate(context.Context) error { return nil }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func indexKey(p probe) string { return redisIndexKey + p.field + ":" + p.value }

// --- Leads ---

func (s *RedisStore) GetLead(ctx context.Context, k Key) (*model.ScoredRecord, error) {
	for _, p := range k.probes() {
		id, err := s.get(ctx, indexKey(p))
		if err != nil {
			return nil, eris.Wrapf(err, "redis: get lead index %s", p.field)
		}
		if id == "" {
			continue
		}
		data, err := s.get(ctx, redisLeadKey+id)
		if err != nil {
			return nil, eris.Wrap(err, "redis: get lead")
		}
		if data == "" {
			// Index outlived its lead; try the next field.
			continue
		}
		return decodeLead("redis", k, []byte(data)), nil
	}
	return nil, nil
}

func (s *RedisStore) PutLead(ctx context.Context, k Key, rec model.ScoredRecord) error {
	if k.IsZero() {
		return eris.New("redis: put lead: empty key")
	}
	data, err := encodeLead(rec)
	if err != nil {
		return err
	}

	id := ""
	for _, p := range k.probes() {
		if id, err = s.get(ctx, indexKey(p)); err != nil {
			return eris.Wrapf(err, "redis: find lead by %s", p.field)
		}
		if id != "" {
			break
		}
	}
	if id == "" {
		id = uuid.New().String()
	}

	if err := s.rdb.Set(ctx, redisLeadKey+id, data, s.ttl).Err(); err != nil {
		return eris.Wrap(err, "redis: put lead")
	}
	for _, p := range k.probes() {
		if err := s.rdb.Set(ctx, indexKey(p), id, s.ttl).Err(); err != nil {
			return eris.Wrapf(err, "redis: put lead index %s", p.field)
		}
	}
	return nil
}

func (s *RedisStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.ScoredRecord, error) {
	keys, err := s.scan(ctx, redisLeadKey+"*")
	if err != nil {
		return nil, eris.Wrap(err, "redis: list leads")
	}
	var out []model.ScoredRecord
	for _, key := range keys {
		data, err := s.get(ctx, key)
		if err != nil {
			return nil, eris.Wrap(err, "redis: list leads get")
		}
		if data == "" {
			continue
		}
		rec := decodeLead("redis", Key{}, []byte(data))
		if rec != nil && filter.match(*rec) {
			out = append(out, *rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ScoreTotal != out[j].ScoreTotal {
			return out[i].ScoreTotal > out[j].ScoreTotal
		}
		return NormalizeName(out[i].Business.Name) < NormalizeName(out[j].Business.Name)
	})
	return page(out, filter.Offset, filter.Limit), nil
}

// DeleteExpiredLeads does nothing; Redis expires lead keys itself.
func (s *RedisStore) DeleteExpiredLeads(context.Context) (int, error) {
	return 0, nil
}

// --- Runs ---

func (s *RedisStore) CreateRun(ctx context.Context, query string) (*model.Run, error) {
	now := time.Now().UTC()
	run := &model.Run{
		ID:        uuid.New().String(),
		Query:     query,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.putRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *RedisStore) UpdateRun(ctx context.Context, run *model.Run) error {
	existing, err := s.GetRun(ctx, run.ID)
	if err != nil {
		return err
	}
	run.CreatedAt = existing.CreatedAt
	run.UpdatedAt = time.Now().UTC()
	return s.putRun(ctx, run)
}

func (s *RedisStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	data, err := s.get(ctx, redisRunKey+id)
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get run %s", id)
	}
	if data == "" {
		return nil, eris.Wrapf(ErrNotFound, "redis: run %s", id)
	}
	var run model.Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, eris.Wrapf(err, "redis: unmarshal run %s", id)
	}
	return &run, nil
}

func (s *RedisStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	keys, err := s.scan(ctx, redisRunKey+"*")
	if err != nil {
		return nil, eris.Wrap(err, "redis: list runs")
	}
	var runs []model.Run
	for _, key := range keys {
		run, err := s.GetRun(ctx, key[len(redisRunKey):])
		if err != nil {
			if eris.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		runs = append(runs, *run)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return page(runs, filter.Offset, limitOr(filter.Limit, 100)), nil
}

func (s *RedisStore) putRun(ctx context.Context, run *model.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "redis: marshal run")
	}
	return eris.Wrapf(s.rdb.Set(ctx, redisRunKey+run.ID, data, 0).Err(), "redis: put run %s", run.ID)
}

// helpers

// get returns "" for a missing key.
func (s *RedisStore) get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisStore) scan(ctx context.Context, match string) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, redisScanCount).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(out)
	return out, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
