package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
	ttl     time.Duration
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, ttl time.Duration, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, pool.Close, ttl), nil
}

func newPostgresStore(pool Pool, closeFn func(), ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{pool: pool, closeFn: closeFn, ttl: ttl}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_url  TEXT NOT NULL DEFAULT '',
	domain      TEXT NOT NULL DEFAULT '',
	name_key    TEXT NOT NULL DEFAULT '',
	score_total INTEGER NOT NULL DEFAULT 0,
	category    TEXT NOT NULL DEFAULT '',
	record      JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_source_url ON leads(source_url) WHERE source_url <> '';
CREATE INDEX IF NOT EXISTS idx_leads_domain ON leads(domain) WHERE domain <> '';
CREATE INDEX IF NOT EXISTS idx_leads_name_key ON leads(name_key);
CREATE INDEX IF NOT EXISTS idx_leads_expires_at ON leads(expires_at);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score_total DESC);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	query      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	stats      JSONB,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Leads ---

func (s *PostgresStore) GetLead(ctx context.Context, k Key) (*model.ScoredRecord, error) {
	for _, p := range k.probes() {
		var data []byte
		err := s.pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT record FROM leads WHERE %s = $1 AND expires_at > now() ORDER BY updated_at DESC LIMIT 1`, p.field),
			p.value,
		).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: get lead by %s", p.field)
		}
		return decodeLead("postgres", k, data), nil
	}
	return nil, nil
}

func (s *PostgresStore) PutLead(ctx context.Context, k Key, rec model.ScoredRecord) error {
	if k.IsZero() {
		return eris.New("postgres: put lead: empty key")
	}
	data, err := encodeLead(rec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	expires := now.Add(s.ttl)

	id, err := s.findLeadID(ctx, k)
	if err != nil {
		return err
	}
	if id == "" {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO leads (id, source_url, domain, name_key, score_total, category, record, updated_at, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New().String(), k.SourceURL, k.Domain, k.Name, rec.ScoreTotal, string(rec.Category), data, now, expires,
		)
	} else {
		_, err = s.pool.Exec(ctx,
			`UPDATE leads SET source_url = $1, domain = $2, name_key = $3, score_total = $4, category = $5, record = $6, updated_at = $7, expires_at = $8
			 WHERE id = $9`,
			k.SourceURL, k.Domain, k.Name, rec.ScoreTotal, string(rec.Category), data, now, expires, id,
		)
	}
	return eris.Wrap(err, "postgres: put lead")
}

func (s *PostgresStore) findLeadID(ctx context.Context, k Key) (string, error) {
	for _, p := range k.probes() {
		var id string
		err := s.pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT id FROM leads WHERE %s = $1 ORDER BY updated_at DESC LIMIT 1`, p.field),
			p.value,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", eris.Wrapf(err, "postgres: find lead by %s", p.field)
		}
		return id, nil
	}
	return "", nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.ScoredRecord, error) {
	query := `SELECT record FROM leads WHERE expires_at > now() AND score_total >= $1`
	args := []any{filter.MinScore}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	query += ` ORDER BY score_total DESC, name_key ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var out []model.ScoredRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		if rec := decodeLead("postgres", Key{}, data); rec != nil {
			out = append(out, *rec)
		}
	}
	return out, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) DeleteExpiredLeads(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired leads")
	}
	return int(tag.RowsAffected()), nil
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, query string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, query, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, query, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &model.Run{
		ID:        id,
		Query:     query,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *model.Run) error {
	stats, err := encodeStats(run.Stats)
	if err != nil {
		return err
	}
	run.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stats = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(run.Status), stats, run.Error, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, query, status, stats, error, created_at, updated_at FROM runs WHERE id = $1`,
		id,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, query, status, stats, error, created_at, updated_at FROM runs`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` WHERE status = $1`
	}
	args = append(args, limitOr(filter.Limit, 100), filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var (
		r      model.Run
		status string
		stats  []byte
	)
	err := row.Scan(&r.ID, &r.Query, &status, &stats, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)
	if r.Stats, err = decodeStats(stats); err != nil {
		return nil, err
	}
	return &r, nil
}
