package core

import (
	"fmt"
	"sort"
)

// ValidationReport lists references that point at missing entities.
// Any entry means the engine broke an invariant.
type ValidationReport struct {
	OrphanAttendance []int64 `json:"orphan_attendance,omitempty"` // child ids referenced by attendance but absent
	OrphanChildren   []int64 `json:"orphan_children,omitempty"`   // parent ids referenced by children but absent
}

// OK reports whether no orphans were found.
func (r ValidationReport) OK() bool {
	return len(r.OrphanAttendance) == 0 && len(r.OrphanChildren) == 0
}

func (r ValidationReport) String() string {
	if r.OK() {
		return "all references valid"
	}
	return fmt.Sprintf("%d attendance row(s) reference missing children %v; %d child(ren) reference missing parents %v",
		len(r.OrphanAttendance), r.OrphanAttendance, len(r.OrphanChildren), r.OrphanChildren)
}

// Validate sweeps a dataset for broken references. It never mutates ds and
// collects every offending id instead of stopping at the first.
func Validate(ds Dataset) ValidationReport {
	parents := make(map[int64]bool, len(ds.Parents))
	for _, p := range ds.Parents {
		parents[p.ID] = true
	}
	children := make(map[int64]bool, len(ds.Children))
	for _, c := range ds.Children {
		children[c.ID] = true
	}

	var report ValidationReport
	report.OrphanChildren = missing(ds.Children, parents, func(c Child) int64 { return c.ParentID })
	report.OrphanAttendance = missing(ds.Attendance, children, func(a Attendance) int64 { return a.ChildID })
	return report
}

func missing[T any](rows []T, known map[int64]bool, ref func(T) int64) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, row := range rows {
		id := ref(row)
		if known[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
