package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return newPostgresStore(mock, nil, time.Hour), mock
}

var runColumns = []string{"id", "query", "status", "stats", "error", "created_at", "updated_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Leads ---

func TestPostgresStore_GetLead_FallsBackToDomain(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM leads WHERE source_url = \$1 AND expires_at > now\(\)`).
		WithArgs("https://maps/9").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT record FROM leads WHERE domain = \$1 AND expires_at > now\(\)`).
		WithArgs("acme.fr").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).
			AddRow([]byte(`{"business":{"name":"Acme"},"score_total":77,"category":"Premium"}`)))

	rec, err := s.GetLead(context.Background(), Key{SourceURL: "https://maps/9", Domain: "acme.fr", Name: "acme"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Acme", rec.Business.Name)
	assert.Equal(t, model.CategoryPremium, rec.Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLead_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE name_key = \$1`).
		WithArgs("inconnu").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetLead(context.Background(), Key{Name: "inconnu"})
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLead_Corrupt(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE domain = \$1`).
		WithArgs("acme.fr").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow([]byte(`{oops`)))

	rec, err := s.GetLead(context.Background(), Key{Domain: "acme.fr"})
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutLead_Insert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id FROM leads WHERE domain = \$1`).
		WithArgs("acme.fr").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(pgxmock.AnyArg(), "", "acme.fr", "", 70, "Qualified", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutLead(context.Background(), Key{Domain: "acme.fr"}, testRecord("Acme", 70, model.CategoryQualified))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutLead_Update(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id FROM leads WHERE source_url = \$1`).
		WithArgs("https://maps/1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("lead-1"))
	mock.ExpectExec(`UPDATE leads SET`).
		WithArgs("https://maps/1", "", "acme", 90, "Premium", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.PutLead(context.Background(), Key{SourceURL: "https://maps/1", Name: "acme"}, testRecord("Acme", 90, model.CategoryPremium))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads_SkipsCorrupt(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM leads WHERE expires_at > now\(\) AND score_total >= \$1 AND category = \$2 ORDER BY score_total DESC`).
		WithArgs(50, "Premium").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).
			AddRow([]byte(`{"business":{"name":"Acme"},"score_total":88}`)).
			AddRow([]byte(`not json`)))

	leads, err := s.ListLeads(context.Background(), LeadFilter{MinScore: 50, Category: model.CategoryPremium})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, 88, leads[0].ScoreTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM leads WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpiredLeads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Runs ---

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "plombier Lyon", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "plombier Lyon")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, query, status, stats, error, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("r1", "q", "complete", []byte(`{"discovered":3,"qualified":1}`), "", now, now))

	run, err := s.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Stats)
	assert.Equal(t, 3, run.Stats.Discovered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1`).
		WithArgs("failed", pgxmock.AnyArg(), "boom", pgxmock.AnyArg(), "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRun(context.Background(), &model.Run{ID: "gone", Status: model.RunStatusFailed, Error: "boom"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_ByStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM runs WHERE status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("running", 100, 0).
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("r1", "a", "running", []byte(nil), "", now, now).
			AddRow("r2", "b", "running", []byte(nil), "", now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusRunning})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Nil(t, runs[0].Stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
