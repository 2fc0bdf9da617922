package export

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

// XLSXSink writes one timestamped workbook per call, with a single
// sheet.
type XLSXSink struct {
	dir       string
	prefix    string
	sheetName string
	now       func() time.Time
}

// NewXLSX creates an XLSXSink writing into dir. sheetName defaults to
// "Leads".
func NewXLSX(dir, prefix, sheetName string) *XLSXSink {
	if sheetName == "" {
		sheetName = "Leads"
	}
	return &XLSXSink{dir: dir, prefix: prefix, sheetName: sheetName, now: time.Now}
}

func (s *XLSXSink) Name() string { return "xlsx" }

func (s *XLSXSink) Write(_ context.Context, records []model.ScoredRecord) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "xlsx: create dir %s", s.dir)
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(s.sheetName)
	if err != nil {
		return "", eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}
	for _, values := range Rows(records) {
		row := sheet.AddRow()
		for i, v := range values {
			setCell(row.AddCell(), Header[i], v)
		}
	}

	path := fileName(s.dir, s.prefix, "xlsx", s.now())
	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "xlsx: save %s", path)
	}
	return path, nil
}

func setCell(c *xlsx.Cell, column, v string) {
	if numericColumns[column] && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SetInt(n)
			return
		}
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			c.SetFloat(x)
			return
		}
	}
	c.SetString(v)
}
