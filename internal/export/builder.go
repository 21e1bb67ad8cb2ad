// Package export turns a stream of CMS records into an XLSX file on disk.
package export

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsdex/internal/domain"
	"github.com/kailas-cloud/cmsdex/internal/domain/record"
	"github.com/kailas-cloud/cmsdex/internal/metrics"
)

// DefaultSheet names the single worksheet of every export.
const DefaultSheet = "Records"

// DefaultColumns is the projection used when none is configured.
func DefaultColumns() []string {
	return []string{"title", "section", "author", "published_at", "url", "summary"}
}

// Config configures a Builder.
type Config struct {
	// Dir holds in-flight artifacts. Empty selects os.TempDir().
	Dir string
	// Columns follow the leading id column, in order.
	Columns []string
	Sheet   string
}

// Builder writes records row by row through an excelize StreamWriter, so
// memory stays flat however many records the stream yields.
type Builder struct {
	dir     string
	columns []string
	sheet   string
	logger  *zap.Logger
	now     func() time.Time
}

// NewBuilder creates a builder and makes sure its directory exists.
func NewBuilder(cfg Config, logger *zap.Logger) (*Builder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := cfg.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("export dir %s: %w", dir, err)
	}

	cols := cfg.Columns
	if len(cols) == 0 {
		cols = DefaultColumns()
	}
	seen := map[string]bool{record.IDField: true}
	for _, c := range cols {
		if c == "" || seen[c] {
			return nil, fmt.Errorf("export column %q is empty or duplicated", c)
		}
		seen[c] = true
	}

	sheet := cfg.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &Builder{
		dir:     dir,
		columns: append([]string(nil), cols...),
		sheet:   sheet,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Header returns the header row: id followed by the configured columns.
func (b *Builder) Header() []string {
	return append([]string{record.IDField}, b.columns...)
}

// Build drains records into a new artifact. keyword only names the download.
//
// An empty stream yields a header-only workbook. On any failure, including
// an error yielded by the stream, the partial file is removed and a
// *domain.ExportBuildError is returned.
func (b *Builder) Build(ctx context.Context, keyword string, records iter.Seq2[record.Record, error]) (art *Artifact, err error) {
	path := filepath.Join(b.dir, "cms-"+uuid.NewString()+".xlsx")
	rows := 0

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export panic: %v", r)
		}
		metrics.ExportBuildsTotal.WithLabelValues(metrics.StatusLabel(err)).Inc()
		if err == nil {
			metrics.ExportRowsTotal.Add(float64(rows))
			return
		}
		art = nil
		if rmErr := removeFile(path); rmErr != nil {
			b.logger.Error("Failed to remove partial export", zap.String("path", path), zap.Error(rmErr))
		}
		var be *domain.ExportBuildError
		if !errors.As(err, &be) {
			err = &domain.ExportBuildError{Cause: err}
		}
	}()

	f := excelize.NewFile(excelize.Options{TmpDir: b.dir})
	defer func() {
		if cerr := f.Close(); cerr != nil {
			b.logger.Warn("Failed to close workbook", zap.Error(cerr))
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), b.sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(b.sheet)
	if err != nil {
		return nil, fmt.Errorf("stream writer: %w", err)
	}

	header := b.Header()
	if err := sw.SetRow("A1", toRow(header)); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for rec, iterErr := range records {
		if iterErr != nil {
			return nil, iterErr
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		values := make([]any, len(header))
		for i, col := range header {
			v, _ := rec.Field(col)
			if err := checkCell(v); err != nil {
				return nil, fmt.Errorf("record %s field %s: %w", rec.ID(), col, err)
			}
			values[i] = v
		}

		cell, err := excelize.CoordinatesToCellName(1, rows+2)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rows+1, err)
		}
		if err := sw.SetRow(cell, values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", rows+1, err)
		}
		rows++
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush rows: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}

	b.logger.Debug("Export built", zap.String("path", path), zap.Int("rows", rows))
	return &Artifact{Path: path, Name: b.fileName(keyword), Rows: rows}, nil
}

func toRow(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

// ErrIllegalChar marks a value holding a character XML 1.0 cannot carry.
var ErrIllegalChar = errors.New("value contains a character not allowed in a spreadsheet cell")

// checkCell rejects values a spreadsheet cell cannot hold. excelize would
// truncate them or replace characters with U+FFFD instead.
func checkCell(v string) error {
	if !utf8.ValidString(v) {
		return errors.New("value is not valid UTF-8")
	}
	if utf8.RuneCountInString(v) > excelize.TotalCellChars {
		return excelize.ErrCellCharsLength
	}
	for i, r := range v {
		if !xmlChar(r) {
			return fmt.Errorf("%w: %U at byte %d", ErrIllegalChar, r, i)
		}
	}
	return nil
}

// xmlChar reports whether r is in the XML 1.0 Char production.
func xmlChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r < 0x20:
		return false
	case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return false
	}
	return true
}

// fileName builds cms-<keyword>-<YYYYMMDD-HHMMSS>.xlsx.
func (b *Builder) fileName(keyword string) string {
	return fmt.Sprintf("cms-%s-%s.xlsx", slug(keyword), b.now().UTC().Format("20060102-150405"))
}

const maxSlugLen = 40

func slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if sb.Len() >= maxSlugLen {
			break
		}
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(sb.String(), "-")
	if out == "" {
		return "export"
	}
	return out
}
