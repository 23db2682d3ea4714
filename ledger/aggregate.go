/*
aggregate.go - Read-side aggregation: listings, sorting, window summaries

PURPOSE:
  The aggregator recomputes per-category counts from the event log and
  pairs them with each faculty member's stored totals. The store does
  the grouped conditional-sum query; this file owns the sorting contract
  and the date-window summary math that the report renderer consumes.

SORTING CONTRACT:
  Faculty are ordered by designation priority (Professor=1 ... Attendant=7,
  unknown designations last), then by name with any honorific prefix
  (Er./Dr./Mr./Ms./Prof./S.) stripped, compared case-insensitively.
*/
package ledger

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FACULTY WITH COUNTS - listing row
// =============================================================================

// FacultyWithCounts is one listing row: the faculty record plus the
// per-category event counts recomputed from the ledger. Faculty with no
// events carry zero counts, never missing entries.
type FacultyWithCounts struct {
	Faculty
	Counts map[Category]int
}

// Count returns the event count for a category, defaulting to zero.
func (f FacultyWithCounts) Count(c Category) int {
	if f.Counts == nil {
		return 0
	}
	return f.Counts[c]
}

// =============================================================================
// SORTING
// =============================================================================

var designationPriority = map[string]int{
	"Professor":           1,
	"Associate Professor": 2,
	"Assistant Professor": 3,
	"Clerk":               4,
	"Lab Technician":      5,
	"Lab Attendant":       6,
	"Attendant":           7,
}

// DesignationRank returns the sort priority for a designation, lowest
// first. Unknown designations sort after every known one.
func DesignationRank(designation string) int {
	if rank, ok := designationPriority[designation]; ok {
		return rank
	}
	return len(designationPriority) + 1
}

// A dotted honorific strips regardless of spacing ("Dr.Singh"); a bare
// one only when followed by whitespace, so "Drake" survives intact.
var honorificRe = regexp.MustCompile(`^(?i:(er|dr|mr|ms|prof|s)\.\s*|(er|dr|mr|ms|prof|s)\s+)`)

// StripHonorific removes a leading honorific prefix from a name.
func StripHonorific(name string) string {
	return strings.TrimSpace(honorificRe.ReplaceAllString(strings.TrimSpace(name), ""))
}

// SortKey is the honorific-stripped, case-folded name used for ordering
// within one designation.
func SortKey(name string) string {
	return strings.ToLower(StripHonorific(name))
}

// SortFaculty orders rows by designation priority, then honorific-stripped
// case-insensitive name. Stable, so equal keys keep their input order.
func SortFaculty(rows []FacultyWithCounts) {
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := DesignationRank(rows[i].Designation), DesignationRank(rows[j].Designation)
		if ri != rj {
			return ri < rj
		}
		return SortKey(rows[i].Name) < SortKey(rows[j].Name)
	})
}

// =============================================================================
// WINDOW SUMMARY
// =============================================================================

// Summary is the per-category breakdown of one faculty member's leave
// events within a report window, with the window's weighted total and
// the current (not window-scoped) stored remaining balance.
type Summary struct {
	Counts          map[Category]int
	TotalLeaves     decimal.Decimal
	RemainingLeaves decimal.Decimal
}

// Summarize builds the summary for a set of events already filtered to
// the report window. remaining is the faculty member's current stored
// remaining balance.
func Summarize(events []LeaveEvent, remaining decimal.Decimal) Summary {
	counts := make(map[Category]int)
	for _, ev := range events {
		counts[ev.Category]++
	}
	return Summary{
		Counts:          counts,
		TotalLeaves:     WindowTotal(counts),
		RemainingLeaves: remaining,
	}
}
