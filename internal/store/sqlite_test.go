package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestNewSQLite_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewSQLite("", time.Hour)
	require.Error(t, err)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

// --- Leads ---

func TestSQLite_Lead_Miss(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)

	rec, err := st.GetLead(context.Background(), Key{Domain: "nowhere.fr"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLite_Lead_PutAndGetByPrecedence(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	k := Key{SourceURL: "https://maps/1", Domain: "acme.fr", Name: "acme"}
	require.NoError(t, st.PutLead(ctx, k, testRecord("Acme", 80, model.CategoryPremium)))

	for name, probe := range map[string]Key{
		"source url": {SourceURL: "https://maps/1"},
		"domain":     {SourceURL: "https://maps/other", Domain: "acme.fr"},
		"name":       {SourceURL: "https://maps/other", Domain: "other.fr", Name: "acme"},
	} {
		rec, err := st.GetLead(ctx, probe)
		require.NoError(t, err, name)
		require.NotNil(t, rec, name)
		assert.Equal(t, "Acme", rec.Business.Name, name)
		assert.Equal(t, 80, rec.ScoreTotal, name)
	}

	rec, err := st.GetLead(ctx, Key{Name: "acme corp"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLite_Lead_SharedHostsDoNotCollide(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	martin := model.RawBusiness{Name: "Boulangerie Martin", Website: "https://www.facebook.com/boulangeriemartin", SourceURL: "https://maps/martin"}
	durand := model.RawBusiness{Name: "Plomberie Durand", Website: "https://www.facebook.com/plomberiedurand", SourceURL: "https://maps/durand"}
	require.NoError(t, st.PutLead(ctx, KeyFor(martin), testRecord("Boulangerie Martin", 55, model.CategoryQualified)))

	rec, err := st.GetLead(ctx, KeyFor(durand))
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = st.GetLead(ctx, KeyFor(model.RawBusiness{Name: "Martin SARL", Website: "facebook.com/BoulangerieMartin/"}))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Boulangerie Martin", rec.Business.Name)
}

func TestSQLite_Lead_PutReplaces(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutLead(ctx, Key{Domain: "acme.fr", Name: "acme"}, testRecord("Acme", 40, model.CategoryVerify)))
	require.NoError(t, st.PutLead(ctx, Key{Domain: "acme.fr", Name: "acme"}, testRecord("Acme", 65, model.CategoryQualified)))

	leads, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, 65, leads[0].ScoreTotal)
}

func TestSQLite_Lead_EmptyKey(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)

	err := st.PutLead(context.Background(), Key{}, testRecord("x", 0, model.CategoryWeak))
	require.Error(t, err)
}

func TestSQLite_Lead_CorruptIsMiss(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutLead(ctx, Key{Domain: "acme.fr"}, testRecord("Acme", 50, model.CategoryQualified)))
	_, err := st.db.ExecContext(ctx, `UPDATE leads SET record = '{broken'`)
	require.NoError(t, err)

	rec, err := st.GetLead(ctx, Key{Domain: "acme.fr"})
	require.NoError(t, err)
	assert.Nil(t, rec)

	leads, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestSQLite_Lead_Expiry(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }
	require.NoError(t, st.PutLead(ctx, Key{Domain: "old.fr"}, testRecord("Old", 50, model.CategoryQualified)))
	st.now = func() time.Time { return base.Add(30 * time.Minute) }
	require.NoError(t, st.PutLead(ctx, Key{Domain: "new.fr"}, testRecord("New", 50, model.CategoryQualified)))

	st.now = func() time.Time { return base.Add(61 * time.Minute) }
	rec, err := st.GetLead(ctx, Key{Domain: "old.fr"})
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = st.GetLead(ctx, Key{Domain: "new.fr"})
	require.NoError(t, err)
	require.NotNil(t, rec)

	n, err := st.DeleteExpiredLeads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_ListLeads_Filter(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutLead(ctx, Key{Name: "a"}, testRecord("A", 30, model.CategoryVerify)))
	require.NoError(t, st.PutLead(ctx, Key{Name: "b"}, testRecord("B", 85, model.CategoryPremium)))
	require.NoError(t, st.PutLead(ctx, Key{Name: "c"}, testRecord("C", 60, model.CategoryQualified)))

	all, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{85, 60, 30}, []int{all[0].ScoreTotal, all[1].ScoreTotal, all[2].ScoreTotal})

	qualified, err := st.ListLeads(ctx, LeadFilter{MinScore: 50})
	require.NoError(t, err)
	assert.Len(t, qualified, 2)

	premium, err := st.ListLeads(ctx, LeadFilter{Category: model.CategoryPremium})
	require.NoError(t, err)
	require.Len(t, premium, 1)
	assert.Equal(t, "B", premium[0].Business.Name)

	paged, err := st.ListLeads(ctx, LeadFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "C", paged[0].Business.Name)
}

// --- Runs ---

func TestSQLite_Runs_Lifecycle(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "plombier Lyon")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	run.Status = model.RunStatusComplete
	run.Stats = &model.RunStats{Discovered: 12, Qualified: 5, ByCategory: map[string]int{"Premium": 2}}
	require.NoError(t, st.UpdateRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "plombier Lyon", got.Query)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Stats)
	assert.Equal(t, 12, got.Stats.Discovered)
	assert.Equal(t, 2, got.Stats.ByCategory["Premium"])
}

func TestSQLite_Runs_NotFound(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))

	err = st.UpdateRun(ctx, &model.Run{ID: "missing", Status: model.RunStatusFailed})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "one")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "two")
	require.NoError(t, err)

	r1.Status = model.RunStatusFailed
	r1.Error = "discovery: quota exceeded"
	require.NoError(t, st.UpdateRun(ctx, r1))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "one", failed[0].Query)
	assert.Equal(t, "discovery: quota exceeded", failed[0].Error)
	assert.Nil(t, failed[0].Stats)
}
