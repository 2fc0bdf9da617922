package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/domain"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/textnorm"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// DefaultTTL is how long an enriched lead stays in the cache.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists enriched leads and pipeline runs.
type Store interface {
	// GetLead returns the cached record for k, or nil when there is none.
	// Expired and unreadable entries count as misses.
	GetLead(ctx context.Context, k Key) (*model.ScoredRecord, error)
	// PutLead writes rec under k, replacing whatever k currently resolves to.
	PutLead(ctx context.Context, k Key, rec model.ScoredRecord) error
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.ScoredRecord, error)
	DeleteExpiredLeads(ctx context.Context) (int, error)

	CreateRun(ctx context.Context, query string) (*model.Run, error)
	UpdateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// LeadFilter selects cached leads. Results are ordered by score, best
// first.
type LeadFilter struct {
	MinScore int
	Category model.Category
	Limit    int
	Offset   int
}

// RunFilter selects runs, newest first.
type RunFilter struct {
	Status model.RunStatus
	Limit  int
	Offset int
}

func (f LeadFilter) match(r model.ScoredRecord) bool {
	if r.ScoreTotal < f.MinScore {
		return false
	}
	return f.Category == "" || r.Category == f.Category
}

// Key identifies a business in the cache. A lookup tries the source URL,
// then the domain, then the name, and stops at the first field that
// resolves to an entry.
type Key struct {
	SourceURL string
	Domain    string
	Name      string
}

// KeyFor builds the cache key of a discovered business. A website on a
// shared host (a social page, a site builder) keys by host and path.
func KeyFor(b model.RawBusiness) Key {
	d, _ := domain.SiteKey(b.Website)
	return Key{
		SourceURL: strings.TrimSpace(b.SourceURL),
		Domain:    d,
		Name:      NormalizeName(b.Name),
	}
}

// NormalizeName lower-cases s and collapses its whitespace.
func NormalizeName(s string) string {
	return strings.ToLower(textnorm.CollapseSpace(s))
}

// IsZero reports whether k has nothing to look up by.
func (k Key) IsZero() bool {
	return k.SourceURL == "" && k.Domain == "" && k.Name == ""
}

// String returns the strongest field of k, tagged with its kind.
func (k Key) String() string {
	p := k.probes()
	if len(p) == 0 {
		return ""
	}
	return p[0].field + ":" + p[0].value
}

// probe is one lookup step: a column or index name and the value to match.
type probe struct {
	field string
	value string
}

func (k Key) probes() []probe {
	var out []probe
	if k.SourceURL != "" {
		out = append(out, probe{"source_url", k.SourceURL})
	}
	if k.Domain != "" {
		out = append(out, probe{"domain", k.Domain})
	}
	if k.Name != "" {
		out = append(out, probe{"name_key", k.Name})
	}
	return out
}

// KeySet de-duplicates businesses within one run using the same
// precedence as a cache lookup.
type KeySet struct {
	urls    map[string]bool
	domains map[string]bool
	names   map[string]bool
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{
		urls:    make(map[string]bool),
		domains: make(map[string]bool),
		names:   make(map[string]bool),
	}
}

// Add records k and reports whether it was new. A key is a duplicate when
// any of its fields was already seen.
func (s *KeySet) Add(k Key) bool {
	if (k.SourceURL != "" && s.urls[k.SourceURL]) ||
		(k.Domain != "" && s.domains[k.Domain]) ||
		(k.Name != "" && s.names[k.Name]) {
		return false
	}
	if k.SourceURL != "" {
		s.urls[k.SourceURL] = true
	}
	if k.Domain != "" {
		s.domains[k.Domain] = true
	}
	if k.Name != "" {
		s.names[k.Name] = true
	}
	return true
}

// Config selects and configures a Store implementation.
type Config struct {
	Driver        string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Open creates the Store named by cfg.Driver and applies its schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL, cfg.TTL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.TTL, nil)
	case "redis":
		s, err = NewRedis(ctx, RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, cfg.TTL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
