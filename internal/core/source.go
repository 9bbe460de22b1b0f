package core

import (
	"context"
	"io"
)

// RowSource yields submissions in source order. Next returns io.EOF after
// the last row; any other error means the source is unavailable.
type RowSource interface {
	Next(ctx context.Context) (Submission, error)
}

// SliceSource replays submissions already held in memory.
type SliceSource struct {
	rows []Submission
	pos  int
}

// NewSliceSource creates a source over rows.
func NewSliceSource(rows []Submission) *SliceSource {
	return &SliceSource{rows: rows}
}

func (s *SliceSource) Next(ctx context.Context) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	if s.pos >= len(s.rows) {
		return Submission{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// Collect drains src into memory.
func Collect(ctx context.Context, src RowSource) ([]Submission, error) {
	var rows []Submission
	for {
		row, err := src.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}
