package export

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

const (
	defaultSheetName = "Leads"
	sheetsBatchSize  = 500
)

// SheetsConfig points a SheetsSink at a spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	BatchSize       int
}

// SheetsSink appends rows to a Google Sheets tab, writing the header when
// the tab is empty.
type SheetsSink struct {
	svc *sheets.Service
	cfg SheetsConfig
}

// NewSheets authenticates with a service account key file and returns a
// SheetsSink.
func NewSheets(ctx context.Context, cfg SheetsConfig) (*SheetsSink, error) {
	if cfg.SpreadsheetID == "" {
		return nil, eris.New("sheets: spreadsheet id is required")
	}
	key, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: read credentials %s", cfg.CredentialsFile)
	}
	jwt, err := google.JWTConfigFromJSON(key, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: parse credentials")
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	return NewSheetsWithService(svc, cfg), nil
}

// NewSheetsWithService wraps an existing service.
func NewSheetsWithService(svc *sheets.Service, cfg SheetsConfig) *SheetsSink {
	if cfg.SheetName == "" {
		cfg.SheetName = defaultSheetName
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = sheetsBatchSize
	}
	return &SheetsSink{svc: svc, cfg: cfg}
}

func (s *SheetsSink) Name() string { return "sheets" }

// URL returns the browser address of the spreadsheet.
func (s *SheetsSink) URL() string {
	return "https://docs.google.com/spreadsheets/d/" + s.cfg.SpreadsheetID
}

func (s *SheetsSink) Write(ctx context.Context, records []model.ScoredRecord) (string, error) {
	if err := s.ensureSheet(ctx); err != nil {
		return "", err
	}
	used, err := s.usedRows(ctx)
	if err != nil {
		return "", err
	}

	var values [][]any
	if used == 0 {
		values = append(values, toAny(Header))
	}
	for _, r := range Rows(records) {
		values = append(values, rowValues(r))
	}

	next := used + 1
	for i := 0; i < len(values); i += s.cfg.BatchSize {
		end := min(i+s.cfg.BatchSize, len(values))
		rng := fmt.Sprintf("%s!A%d", quoteSheet(s.cfg.SheetName), next+i)
		_, err := s.svc.Spreadsheets.Values.Update(s.cfg.SpreadsheetID, rng, &sheets.ValueRange{Values: values[i:end]}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return "", eris.Wrapf(err, "sheets: write rows starting at %d", next+i)
		}
	}

	zap.L().Info("sheets: rows written",
		zap.String("spreadsheet_id", s.cfg.SpreadsheetID),
		zap.String("sheet", s.cfg.SheetName),
		zap.Int("rows", len(records)),
	)
	return s.URL(), nil
}

// ensureSheet adds the tab when the spreadsheet does not have it yet.
func (s *SheetsSink) ensureSheet(ctx context.Context) error {
	ss, err := s.svc.Spreadsheets.Get(s.cfg.SpreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return eris.Wrapf(err, "sheets: get spreadsheet %s", s.cfg.SpreadsheetID)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.cfg.SheetName {
			return nil
		}
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(s.cfg.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: s.cfg.SheetName}},
		}},
	}).Context(ctx).Do()
	return eris.Wrapf(err, "sheets: add sheet %s", s.cfg.SheetName)
}

func (s *SheetsSink) usedRows(ctx context.Context) (int, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, quoteSheet(s.cfg.SheetName)+"!A:A").
		Context(ctx).
		Do()
	if err != nil {
		return 0, eris.Wrap(err, "sheets: read used rows")
	}
	return len(vr.Values), nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

// rowValues keeps scores numeric and stops phone numbers and other
// strings from being parsed as formulas or numbers.
func rowValues(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch {
		case numericColumns[Header[i]] && v != "":
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				out[i] = n
				continue
			}
			out[i] = v
		case strings.HasPrefix(v, "+") || strings.HasPrefix(v, "=") || strings.HasPrefix(v, "0"):
			out[i] = "'" + v
		default:
			out[i] = v
		}
	}
	return out
}
