package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nwstraits/survey-etl/internal/domain"
)

// Reader streams the rows of the first worksheet of an export, keyed by the
// header row. It implements pipeline.BatchExtractor.
type Reader struct {
	file   *excelize.File
	rows   *excelize.Rows
	header []string
	next   int // 1-based index of the next data row
	done   bool
	logger *slog.Logger
}

// NewReader opens path and reads its header row.
func NewReader(path string, logger *slog.Logger) (*Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	r := &Reader{file: f, rows: rows, next: 1, logger: logger}
	if !rows.Next() {
		_ = r.Close()
		return nil, fmt.Errorf("workbook %s has no header row", path)
	}
	header, err := rows.Columns()
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	r.header = header

	logger.Info("workbook opened", "path", path, "sheet", sheets[0], "columns", len(header))
	return r, nil
}

// Header returns the column names.
func (r *Reader) Header() []string {
	return r.header
}

// ExtractBatch returns up to batchSize non-empty rows. It returns io.EOF once
// the sheet is exhausted and no rows remain.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRow, error) {
	if r.done {
		return nil, io.EOF
	}

	batch := make([]domain.RawRow, 0, batchSize)
	for len(batch) < batchSize {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		if !r.rows.Next() {
			r.done = true
			if err := r.rows.Error(); err != nil {
				return batch, fmt.Errorf("read rows: %w", err)
			}
			break
		}

		cells, err := r.rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return batch, fmt.Errorf("read row %d: %w", r.next, err)
		}
		index := r.next
		r.next++

		values, empty := r.rowValues(cells)
		if empty {
			continue
		}
		batch = append(batch, domain.RawRow{Index: index, Values: values})
	}

	if len(batch) == 0 && r.done {
		return nil, io.EOF
	}
	return batch, nil
}

// rowValues maps cells to header names. Trailing empty cells are absent in
// the sheet, so short rows are expected.
func (r *Reader) rowValues(cells []string) (domain.Row, bool) {
	values := make(domain.Row, len(r.header))
	empty := true
	for i, name := range r.header {
		if name == "" {
			continue
		}
		var v string
		if i < len(cells) {
			v = cells[i]
		}
		if strings.TrimSpace(v) != "" {
			empty = false
		}
		values[name] = v
	}
	return values, empty
}

// ReadAll drains the reader into a slice.
func (r *Reader) ReadAll(ctx context.Context) ([]domain.RawRow, error) {
	var all []domain.RawRow
	for {
		batch, err := r.ExtractBatch(ctx, 100)
		all = append(all, batch...)
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		if err != nil {
			return all, err
		}
	}
}

// Close releases the workbook.
func (r *Reader) Close() error {
	return errors.Join(r.rows.Close(), r.file.Close())
}
