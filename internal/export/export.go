// Package export writes the batch dataset as the three CSV files the
// database import expects. Column order is part of the contract.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/JonMunkholm/attendance/internal/core"
)

// Output file names.
const (
	ParentsFile    = "parents_final.csv"
	ChildrenFile   = "children_final.csv"
	AttendanceFile = "attendance_final.csv"
)

// Column headers, in output order.
var (
	ParentColumns = []string{
		"parent_id", "full_name", "email", "gender", "role_in_church",
		"department_in_church", "phone_number", "secondary_phone_number", "address",
	}
	ChildColumns = []string{
		"child_id", "parent_id", "full_name", "age", "gender",
		"special_needs", "relationship_to_parent",
	}
	AttendanceColumns = []string{
		"attendance_id", "child_id", "service_name", "attendance_date",
		"check_in_time", "check_out_time", "was_present",
	}
)

// WriteParents writes parents as CSV, header first.
func WriteParents(w io.Writer, parents []core.Parent) error {
	return write(w, ParentColumns, len(parents), func(i int) []string {
		p := parents[i]
		return []string{
			id(p.ID), p.FullName, p.Email, p.Gender, p.RoleInChurch,
			p.DepartmentInChurch, p.PhoneNumber, p.SecondaryPhoneNumber, p.Address,
		}
	})
}

// WriteChildren writes children as CSV, header first. A nil special_needs
// is written as an empty cell.
func WriteChildren(w io.Writer, children []core.Child) error {
	return write(w, ChildColumns, len(children), func(i int) []string {
		c := children[i]
		return []string{
			id(c.ID), id(c.ParentID), c.FullName, strconv.Itoa(c.Age), c.Gender,
			optional(c.SpecialNeeds), c.RelationshipToParent,
		}
	})
}

// WriteAttendance writes attendance facts as CSV, header first.
func WriteAttendance(w io.Writer, rows []core.Attendance) error {
	return write(w, AttendanceColumns, len(rows), func(i int) []string {
		a := rows[i]
		return []string{
			id(a.ID), id(a.ChildID), a.ServiceName, a.AttendanceDate.Format(time.DateOnly),
			timestamp(a.CheckInTime), timestamp(a.CheckOutTime), strconv.FormatBool(a.WasPresent),
		}
	})
}

// Result lists the files WriteDataset produced.
type Result struct {
	Files []string
}

// WriteDataset writes the three files into dir, creating it if needed.
// attendance_final.csv is not written when there is no attendance.
func WriteDataset(dir string, ds core.Dataset) (Result, error) {
	var res Result
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name  string
		count int
		write func(io.Writer) error
	}{
		{ParentsFile, len(ds.Parents), func(w io.Writer) error { return WriteParents(w, ds.Parents) }},
		{ChildrenFile, len(ds.Children), func(w io.Writer) error { return WriteChildren(w, ds.Children) }},
		{AttendanceFile, len(ds.Attendance), func(w io.Writer) error { return WriteAttendance(w, ds.Attendance) }},
	}

	for _, f := range files {
		if f.name == AttendanceFile && f.count == 0 {
			slog.Warn("no attendance records, skipping export", "file", f.name)
			continue
		}
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return res, err
		}
		slog.Info("exported", "file", path, "records", f.count)
		res.Files = append(res.Files, path)
	}
	return res, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(out); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func write(w io.Writer, header []string, n int, record func(int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(record(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
