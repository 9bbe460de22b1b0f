package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/attendance/internal/core"
)

// MaxHeaderSearchRows bounds how far down a sheet the header row may sit.
// Exports sometimes carry a title or notes above the real header.
const MaxHeaderSearchRows = 10

// recordFunc returns the next raw record and its 1-indexed line, or io.EOF.
type recordFunc func() (record []string, line int, err error)

// table turns raw records into submissions: it finds the header row, skips
// blank rows and keys every cell by its column label.
type table struct {
	name     string
	required []string
	read     recordFunc

	header []string // LabelKey per column, "" for ignored duplicates
}

// CSVSource streams submissions from one CSV sheet.
type CSVSource struct {
	table
	r    *csv.Reader
	done bool
}

// NewCSVSource reads CSV from r. name becomes Submission.Sheet. The header is
// the first row, within MaxHeaderSearchRows, that carries every required label;
// with no required labels it is the first non-blank row.
func NewCSVSource(name string, r io.Reader, required ...string) *CSVSource {
	cr := csv.NewReader(Sanitize(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	s := &CSVSource{r: cr}
	s.table = table{name: name, required: required, read: s.readRecord}
	return s
}

// Next returns the next non-blank data row, or io.EOF.
func (s *table) Next(ctx context.Context) (core.Submission, error) {
	if err := ctx.Err(); err != nil {
		return core.Submission{}, err
	}
	if s.header == nil {
		if err := s.readHeader(); err != nil {
			return core.Submission{}, err
		}
	}

	for {
		record, line, err := s.read()
		if err != nil {
			return core.Submission{}, err
		}
		if isEmptyRow(record) {
			continue
		}
		return s.submission(record, line), nil
	}
}

func (s *CSVSource) readRecord() ([]string, int, error) {
	if s.done {
		return nil, 0, io.EOF
	}
	record, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		s.done = true
		return nil, 0, io.EOF
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", core.ErrSourceUnavailable, s.name, err)
	}
	line, _ := s.r.FieldPos(0)
	return record, line, nil
}

func (s *table) readHeader() error {
	scanned := 0
	for scanned < MaxHeaderSearchRows {
		record, _, err := s.read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if isEmptyRow(record) {
			continue
		}
		if hasLabels(record, s.required) {
			s.setHeader(record)
			return nil
		}
		scanned++
	}

	if scanned == 0 {
		// Blank sheet: no header and no rows.
		s.header = []string{}
		return nil
	}
	return fmt.Errorf("%w: %s: no header row with %s in first %d rows",
		core.ErrInvalidLayout, s.name, strings.Join(s.required, ", "), MaxHeaderSearchRows)
}

// setHeader records the column labels. The first of duplicate labels wins.
func (s *table) setHeader(record []string) {
	seen := make(map[string]bool, len(record))
	s.header = make([]string, len(record))
	for i, label := range record {
		key := core.LabelKey(label)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		s.header[i] = key
	}
}

func (s *table) submission(record []string, line int) core.Submission {
	fields := make(map[string]string, len(s.header))
	for i, key := range s.header {
		if key == "" || i >= len(record) {
			continue
		}
		fields[key] = record[i]
	}
	return core.Submission{Sheet: s.name, Line: line, Fields: fields}
}

func hasLabels(record []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]bool, len(record))
	for _, label := range record {
		have[core.LabelKey(label)] = true
	}
	for _, label := range required {
		if !have[core.LabelKey(label)] {
			return false
		}
	}
	return true
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if core.CleanCell(v) != "" {
			return false
		}
	}
	return true
}

// RequiredLabels returns the labels a header row must carry to identify
// parents under layout in mode.
func RequiredLabels(layout core.Layout, mode core.Mode) []string {
	key := layout.PhoneNumber
	if mode == core.ModeBatch {
		key = layout.ParentID
	}
	var labels []string
	for _, l := range []string{key, layout.ParentName} {
		if l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
