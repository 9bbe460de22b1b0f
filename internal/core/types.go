package core

import (
	"time"
)

// Mode selects how identities are resolved and where facts are recorded.
type Mode string

const (
	ModeBatch       Mode = "batch"
	ModeIncremental Mode = "incremental"
)

// Gender values accepted by the store. Anything else is coerced to GenderMale.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// DefaultRelationship is used when a child slot carries no relationship.
const DefaultRelationship = "Child"

// DefaultService is used when an incremental submission names no service.
const DefaultService = "First Service"

// MaxChildSlots is the number of child column groups on a submission row.
const MaxChildSlots = 3

// Submission is one raw source row keyed by human-readable column label.
// Build it with NewSubmission so labels match case- and space-insensitively.
type Submission struct {
	Sheet  string            // Sheet or source name; the service in batch mode
	Line   int               // 1-indexed line within the sheet, for error reports
	Fields map[string]string // LabelKey(label) -> raw cell value
}

// NewSubmission creates a submission, normalizing every label with LabelKey.
func NewSubmission(sheet string, line int, fields map[string]string) Submission {
	norm := make(map[string]string, len(fields))
	for label, v := range fields {
		norm[LabelKey(label)] = v
	}
	return Submission{Sheet: sheet, Line: line, Fields: norm}
}

// Get returns the raw cell for label, or "" when the label is absent.
func (s Submission) Get(label string) string {
	if s.Fields == nil || label == "" {
		return ""
	}
	return s.Fields[LabelKey(label)]
}

// ParentFields is the normalized parent portion of a submission.
type ParentFields struct {
	IdentityKey          string `validate:"required"`
	FullName             string `validate:"required"`
	Email                string
	Gender               string
	RoleInChurch         string
	DepartmentInChurch   string
	PhoneNumber          string
	SecondaryPhoneNumber string
	Address              string
}

// ChildFields is one normalized, non-empty child slot.
type ChildFields struct {
	Slot                 int
	FullName             string
	Age                  int
	Gender               string
	SpecialNeeds         *string
	RelationshipToParent string
	CheckedIn            bool
}

// Parent is a resolved parent entity.
type Parent struct {
	ID                   int64
	IdentityKey          string
	FullName             string
	Email                string
	Gender               string
	RoleInChurch         string
	DepartmentInChurch   string
	PhoneNumber          string
	SecondaryPhoneNumber string
	Address              string
}

// Child is a resolved child entity.
type Child struct {
	ID                   int64
	ParentID             int64
	FullName             string
	Age                  int
	Gender               string
	SpecialNeeds         *string
	RelationshipToParent string
}

// Attendance is one presence fact. Absence is modeled as no row.
type Attendance struct {
	ID             int64
	ChildID        int64
	ServiceName    string
	AttendanceDate time.Time
	CheckInTime    *time.Time
	CheckOutTime   *time.Time
	WasPresent     bool
}

// Dataset holds fully materialized batch output.
type Dataset struct {
	Parents    []Parent
	Children   []Child
	Attendance []Attendance
}

// Warning records a lossy coercion. Warnings are never counted as errors.
type Warning struct {
	Sheet   string
	Line    int
	Field   string
	Value   string
	Message string
}

// RowStats are the counters contributed by a single row.
type RowStats struct {
	NewParents          int
	ExistingParents     int
	NewChildren         int
	ExistingChildren    int
	AttendanceRecorded  int
	AttendanceDuplicate int
}

// RowResult is the outcome of processing one submission.
type RowResult struct {
	Sheet    string
	Line     int
	Stats    RowStats
	Warnings []Warning
	Err      error // Non-nil if the row was rejected or failed
}

// Stats accumulates run-level counters.
type Stats struct {
	Submissions         int `json:"submissions"`
	NewParents          int `json:"new_parents"`
	ExistingParents     int `json:"existing_parents"`
	NewChildren         int `json:"new_children"`
	ExistingChildren    int `json:"existing_children"`
	AttendanceRecorded  int `json:"attendance_recorded"`
	AttendanceDuplicate int `json:"attendance_duplicate"`
	Errors              int `json:"errors"`
	Warnings            int `json:"warnings"`
}

// Add folds one row result into the run totals.
func (s *Stats) Add(r RowResult) {
	s.Submissions++
	s.Warnings += len(r.Warnings)
	if r.Err != nil {
		s.Errors++
		return
	}
	s.NewParents += r.Stats.NewParents
	s.ExistingParents += r.Stats.ExistingParents
	s.NewChildren += r.Stats.NewChildren
	s.ExistingChildren += r.Stats.ExistingChildren
	s.AttendanceRecorded += r.Stats.AttendanceRecorded
	s.AttendanceDuplicate += r.Stats.AttendanceDuplicate
}

// RowFailure contains information about a row that was rejected or failed.
type RowFailure struct {
	Sheet  string `json:"sheet,omitempty"`
	Line   int    `json:"line"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// RunReport is the summary of one load run.
type RunReport struct {
	RunID      string            `json:"run_id"`
	Mode       Mode              `json:"mode"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Stats      Stats             `json:"stats"`
	Validation *ValidationReport `json:"validation,omitempty"`
	Failures   []RowFailure      `json:"failures,omitempty"`
	Error      string            `json:"error,omitempty"` // Non-empty if the run aborted
}
