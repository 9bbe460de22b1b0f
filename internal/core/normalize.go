package core

// normalize.go turns raw submission cells into canonical values.
//
// Coercions are lossy by design of the source data and never fail a row:
//   - Ages default to 0 when absent or unparsable
//   - Genders outside {Male, Female} become Male
//   - Free text defaults to "" so downstream string handling is always safe
//
// Every coercion of a present-but-invalid value is reported as a Warning.
// Timestamps are the exception: a non-blank cell that does not parse fails
// the row, since it decides the attendance date.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// timestampLayouts are the formats spreadsheet exports use for submission times.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel formula prefix (="...") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// ParseAge parses an age cell. Whole floats such as "8.0" are accepted since
// spreadsheet exports often render integers that way; fractions are truncated.
// Returns 0 and false for empty, negative or unparsable values.
func ParseAge(s string) (int, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// NormalizeGender returns the canonical gender and whether the input was valid.
func NormalizeGender(s string) (string, bool) {
	switch strings.ToLower(CleanCell(s)) {
	case "male":
		return GenderMale, true
	case "female":
		return GenderFemale, true
	default:
		return GenderMale, false
	}
}

// NormalizePhone keeps digits and a single leading '+'.
func NormalizePhone(s string) string {
	s = CleanCell(s)
	var b strings.Builder
	for i, r := range s {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

// IsCheckedIn reports whether a check-in cell holds a truthy value.
// Empty, zero and explicit negatives are all "not present".
func IsCheckedIn(s string) bool {
	s = strings.ToLower(CleanCell(s))
	switch s {
	case "":
		return false
	case "true", "t", "yes", "y", "x", "checked", "present", "✓", "✔":
		return true
	case "false", "f", "no", "n", "absent":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0 && !math.IsNaN(f)
	}
	return false
}

// ParseTimestamp parses a submission timestamp cell.
func ParseTimestamp(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalizer extracts normalized fields from submissions using a Layout.
type Normalizer struct {
	mode   Mode
	layout Layout
}

// NewNormalizer creates a normalizer for mode and layout.
func NewNormalizer(mode Mode, layout Layout) Normalizer {
	return Normalizer{mode: mode, layout: layout}
}

// Slots returns the number of child slots in the layout.
func (n Normalizer) Slots() int {
	return len(n.layout.Children)
}

// Parent extracts the parent fields of a submission.
func (n Normalizer) Parent(sub Submission) (ParentFields, []Warning) {
	var warnings []Warning
	l := n.layout

	p := ParentFields{
		FullName:             CleanCell(sub.Get(l.ParentName)),
		Email:                CleanCell(sub.Get(l.Email)),
		RoleInChurch:         CleanCell(sub.Get(l.RoleInChurch)),
		DepartmentInChurch:   CleanCell(sub.Get(l.DepartmentInChurch)),
		PhoneNumber:          NormalizePhone(sub.Get(l.PhoneNumber)),
		SecondaryPhoneNumber: NormalizePhone(sub.Get(l.SecondaryPhoneNumber)),
		Address:              CleanCell(sub.Get(l.Address)),
	}
	p.IdentityKey = ParentKey(n.mode, CleanCell(sub.Get(l.ParentID)), p.PhoneNumber)
	rawGender := sub.Get(l.Gender)
	gender, ok := NormalizeGender(rawGender)
	if !ok {
		warnings = append(warnings, warn(sub, l.Gender, rawGender, "invalid gender, defaulting to Male"))
	}
	p.Gender = gender

	return p, warnings
}

// ChildSlot extracts child slot (1-indexed). ok is false when the slot is
// empty, meaning no child or attendance is produced for it.
func (n Normalizer) ChildSlot(sub Submission, slot int) (c ChildFields, warnings []Warning, ok bool) {
	if slot < 1 || slot > len(n.layout.Children) {
		return ChildFields{}, nil, false
	}
	cl := n.layout.Children[slot-1]

	name := CleanCell(sub.Get(cl.Name))
	if name == "" {
		return ChildFields{}, nil, false
	}

	c = ChildFields{
		Slot:                 slot,
		FullName:             name,
		RelationshipToParent: CleanCell(sub.Get(cl.Relationship)),
		CheckedIn:            IsCheckedIn(sub.Get(cl.CheckIn)),
	}
	if c.RelationshipToParent == "" {
		c.RelationshipToParent = DefaultRelationship
	}
	if needs := CleanCell(sub.Get(cl.SpecialNeeds)); needs != "" {
		c.SpecialNeeds = &needs
	}

	rawAge := sub.Get(cl.Age)
	age, valid := ParseAge(rawAge)
	if !valid && CleanCell(rawAge) != "" {
		warnings = append(warnings, warn(sub, cl.Age, rawAge, "invalid age, defaulting to 0"))
	}
	c.Age = age

	rawGender := sub.Get(cl.Gender)
	gender, valid := NormalizeGender(rawGender)
	if !valid {
		warnings = append(warnings, warn(sub, cl.Gender, rawGender, "invalid gender, defaulting to Male"))
	}
	c.Gender = gender

	return c, warnings, true
}

// Service returns the service a submission attended, or "" when the row does
// not say. Batch workbooks hold one sheet per service.
func (n Normalizer) Service(sub Submission) string {
	if n.mode == ModeBatch {
		return strings.TrimSpace(sub.Sheet)
	}
	return CleanCell(sub.Get(n.layout.Service))
}

// Timestamp returns the explicit submission time. ok is false when the cell
// is blank; a non-blank cell in no known format is ErrInvalidTimestamp.
func (n Normalizer) Timestamp(sub Submission) (ts time.Time, ok bool, err error) {
	raw := CleanCell(sub.Get(n.layout.Timestamp))
	if raw == "" {
		return time.Time{}, false, nil
	}
	ts, ok = ParseTimestamp(raw)
	if !ok {
		return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
	}
	return ts, true, nil
}

func warn(sub Submission, field, value, msg string) Warning {
	return Warning{Sheet: sub.Sheet, Line: sub.Line, Field: field, Value: value, Message: msg}
}
