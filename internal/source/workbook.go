package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/attendance/internal/core"
)

// Workbook streams every sheet of a historical attendance workbook in
// workbook order. Each sheet is one service; Submission.Sheet carries its name.
type Workbook struct {
	file     *excelize.File
	sheets   []string
	required []string

	pos     int
	current *table
}

// OpenWorkbook opens the .xlsx file at path.
func OpenWorkbook(path string, required ...string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", core.ErrSourceUnavailable, err)
	}
	return newWorkbook(f, required), nil
}

// ReadWorkbook reads an .xlsx document from r.
func ReadWorkbook(r io.Reader, required ...string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read workbook: %w", core.ErrSourceUnavailable, err)
	}
	return newWorkbook(f, required), nil
}

func newWorkbook(f *excelize.File, required []string) *Workbook {
	return &Workbook{file: f, sheets: f.GetSheetList(), required: required}
}

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.sheets
}

// Next returns the next submission across all sheets, or io.EOF.
// A sheet without the required header is skipped with a warning.
func (w *Workbook) Next(ctx context.Context) (core.Submission, error) {
	for {
		if w.current == nil {
			if w.pos >= len(w.sheets) {
				return core.Submission{}, io.EOF
			}
			t, err := w.openSheet(w.sheets[w.pos])
			w.pos++
			if err != nil {
				return core.Submission{}, err
			}
			w.current = t
		}

		sub, err := w.current.Next(ctx)
		switch {
		case err == nil:
			return sub, nil
		case errors.Is(err, io.EOF):
			w.current = nil
		case errors.Is(err, core.ErrInvalidLayout):
			slog.Warn("skipping sheet", "sheet", w.current.name, "error", err)
			w.current = nil
		default:
			return core.Submission{}, err
		}
	}
}

func (w *Workbook) openSheet(name string) (*table, error) {
	rows, err := w.file.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", core.ErrSourceUnavailable, name, err)
	}
	i := 0
	return &table{
		name:     name,
		required: w.required,
		read: func() ([]string, int, error) {
			if i >= len(rows) {
				return nil, 0, io.EOF
			}
			i++
			return rows[i-1], i, nil
		},
	}, nil
}

func (w *Workbook) Close() error {
	return w.file.Close()
}
