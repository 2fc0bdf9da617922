package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, ttl time.Duration) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: empty database path")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

// expires_at holds unix seconds so expiry compares as integers.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY,
	source_url  TEXT NOT NULL DEFAULT '',
	domain      TEXT NOT NULL DEFAULT '',
	name_key    TEXT NOT NULL DEFAULT '',
	score_total INTEGER NOT NULL DEFAULT 0,
	category    TEXT NOT NULL DEFAULT '',
	record      TEXT NOT NULL,
	updated_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	stats      TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_source_url ON leads(source_url);
CREATE INDEX IF NOT EXISTS idx_leads_domain ON leads(domain);
CREATE INDEX IF NOT EXISTS idx_leads_name_key ON leads(name_key);
CREATE INDEX IF NOT EXISTS idx_leads_expires_at ON leads(expires_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Leads ---

func (s *SQLiteStore) GetLead(ctx context.Context, k Key) (*model.ScoredRecord, error) {
	now := s.now().Unix()
	for _, p := range k.probes() {
		var data string
		err := s.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT record FROM leads WHERE %s = ? AND expires_at > ? ORDER BY updated_at DESC LIMIT 1`, p.field),
			p.value, now,
		).Scan(&data)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: get lead by %s", p.field)
		}
		return decodeLead("sqlite", k, []byte(data)), nil
	}
	return nil, nil
}

func (s *SQLiteStore) PutLead(ctx context.Context, k Key, rec model.ScoredRecord) error {
	if k.IsZero() {
		return eris.New("sqlite: put lead: empty key")
	}
	data, err := encodeLead(rec)
	if err != nil {
		return err
	}
	now := s.now()
	expires := now.Add(s.ttl).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin put lead")
	}
	defer tx.Rollback() //nolint:errcheck

	id, err := s.findLeadID(ctx, tx, k)
	if err != nil {
		return err
	}
	if id == "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO leads (id, source_url, domain, name_key, score_total, category, record, updated_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), k.SourceURL, k.Domain, k.Name, rec.ScoreTotal, string(rec.Category), string(data), now.Unix(), expires,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE leads SET source_url = ?, domain = ?, name_key = ?, score_total = ?, category = ?, record = ?, updated_at = ?, expires_at = ?
			 WHERE id = ?`,
			k.SourceURL, k.Domain, k.Name, rec.ScoreTotal, string(rec.Category), string(data), now.Unix(), expires, id,
		)
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: put lead")
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit put lead")
}

// findLeadID resolves k to an existing row, expired or not.
func (s *SQLiteStore) findLeadID(ctx context.Context, tx *sql.Tx, k Key) (string, error) {
	for _, p := range k.probes() {
		var id string
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT id FROM leads WHERE %s = ? ORDER BY updated_at DESC LIMIT 1`, p.field),
			p.value,
		).Scan(&id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return "", eris.Wrapf(err, "sqlite: find lead by %s", p.field)
		}
		return id, nil
	}
	return "", nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.ScoredRecord, error) {
	query := `SELECT record FROM leads WHERE expires_at > ? AND score_total >= ?`
	args := []any{s.now().Unix(), filter.MinScore}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	query += ` ORDER BY score_total DESC, name_key ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ScoredRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		if rec := decodeLead("sqlite", Key{}, []byte(data)); rec != nil {
			out = append(out, *rec)
		}
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) DeleteExpiredLeads(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired leads")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, query string) (*model.Run, error) {
	id := uuid.New().String()
	now := s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, query, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, query, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &model.Run{
		ID:        id,
		Query:     query,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	stats, err := encodeStats(run.Stats)
	if err != nil {
		return err
	}
	run.UpdatedAt = s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(run.Status), nullString(stats), run.Error, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, status, stats, error, created_at, updated_at FROM runs WHERE id = ?`,
		id,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", id)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, query, status, stats, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limitOr(filter.Limit, 100), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRun returns sql.ErrNoRows unwrapped so callers can map it.
func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var stats sql.NullString

	err := row.Scan(&r.ID, &r.Query, &r.Status, &stats, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if stats.Valid {
		if r.Stats, err = decodeStats([]byte(stats.String)); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
