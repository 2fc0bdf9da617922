package export

import (
	"context"
	"encoding/csv"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// CSVSink writes one timestamped CSV file per call.
type CSVSink struct {
	dir    string
	prefix string
	now    func() time.Time
}

// NewCSV creates a CSVSink writing into dir.
func NewCSV(dir, prefix string) *CSVSink {
	return &CSVSink{dir: dir, prefix: prefix, now: time.Now}
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(_ context.Context, records []model.ScoredRecord) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "csv: create dir %s", s.dir)
	}
	path := fileName(s.dir, s.prefix, "csv", s.now())
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "csv: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return "", eris.Wrap(err, "csv: write header")
	}
	if err := w.WriteAll(Rows(records)); err != nil {
		return "", eris.Wrap(err, "csv: write rows")
	}
	return path, eris.Wrap(f.Sync(), "csv: sync")
}
