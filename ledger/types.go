/*
Package ledger contains the leave-accrual policy engine and its data model.

PURPOSE:
  This package is the core of the system: it translates heterogeneous leave
  requests (short leaves measured in time-of-day, half-day leaves, multi-day
  ranges, allotment grants) into ledger mutations and running balances, and
  enforces the category-specific accrual rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - Faculty: identity record carrying the denormalized balance fields
  - LeaveEvent: one persisted record of leave taken on a specific date
  - Detail: category-determined sub-record (time pair or half-day flag)
  - Request: tagged union of per-category request payloads

DESIGN PRINCIPLES:
  1. Precision: balances use decimal.Decimal, never float64
  2. Type safety: each category's payload carries only its own fields;
     handlers convert loose JSON into a concrete Request before the
     engine ever sees it
  3. Invariant: remaining_leaves == granted_leaves - total_leaves after
     every committed mutation

SEE ALSO:
  - policy.go: per-category accrual rules (pure computation)
  - engine.go: transactional apply-or-reject of requests
  - aggregate.go: read-side sorting and window summaries
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type FacultyID string
type EventID string

// =============================================================================
// LEAVE CATEGORIES - closed enumeration
// =============================================================================

type Category string

const (
	CategoryShortLeave          Category = "short_leaves"
	CategoryHalfDayLeave        Category = "half_day_leaves"
	CategoryCasualLeave         Category = "casual_leaves"
	CategoryAcademicLeave       Category = "academic_leaves"
	CategoryMedicalLeave        Category = "medical_leaves"
	CategoryCompensatoryLeave   Category = "compensatory_leaves"
	CategoryWithoutPaymentLeave Category = "without_payment_leaves"
	CategoryEarnedLeave         Category = "earned_leaves"

	// CategoryGrantedLeave adjusts the allotment; it never produces a
	// dated LeaveEvent.
	CategoryGrantedLeave Category = "granted_leaves"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryShortLeave,
	CategoryHalfDayLeave,
	CategoryCasualLeave,
	CategoryAcademicLeave,
	CategoryMedicalLeave,
	CategoryCompensatoryLeave,
	CategoryWithoutPaymentLeave,
	CategoryEarnedLeave,
	CategoryGrantedLeave,
}

// Valid reports whether c is part of the closed enumeration.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Dated reports whether events of this category carry a calendar date.
// Only granted_leaves is balance-only.
func (c Category) Dated() bool {
	return c.Valid() && c != CategoryGrantedLeave
}

// RangeCategory reports whether requests for this category span an
// inclusive [from, to] date range, producing one event per day.
func (c Category) RangeCategory() bool {
	switch c {
	case CategoryCasualLeave, CategoryAcademicLeave, CategoryMedicalLeave,
		CategoryCompensatoryLeave, CategoryWithoutPaymentLeave, CategoryEarnedLeave:
		return true
	}
	return false
}

// =============================================================================
// CALENDAR DATE - local-day granularity, no time zone conversion
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar date. The zero value is the zero time.
type Date struct {
	Time time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// NewDate builds a date from components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

func (d Date) String() string     { return d.Time.Format(dateLayout) }
func (d Date) IsZero() bool       { return d.Time.IsZero() }
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// DaysUntil returns the number of whole days from d to o (negative when
// o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time).Hours() / 24)
}

// =============================================================================
// TIME OF DAY - for short leaves
// =============================================================================

// TimeOfDay is a wall-clock time within one day, minute granularity.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS (seconds ignored).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Minutes returns minutes since midnight, for ordering comparisons.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// =============================================================================
// HALF-DAY VARIANT
// =============================================================================

type HalfDayType string

const (
	HalfDayBeforeNoon HalfDayType = "before_noon"
	HalfDayAfterNoon  HalfDayType = "after_noon"
)

func (h HalfDayType) Valid() bool {
	return h == HalfDayBeforeNoon || h == HalfDayAfterNoon
}

// =============================================================================
// FACULTY - identity record with denormalized balances
// =============================================================================

// Faculty is one faculty member. GrantedLeaves/TotalLeaves/RemainingLeaves
// are a cached projection of the event log; the engine keeps them in sync
// and Reconcile can verify or repair them.
type Faculty struct {
	ID           FacultyID
	Name         string
	Designation  string
	DepartmentID string

	GrantedLeaves   decimal.Decimal
	TotalLeaves     decimal.Decimal
	RemainingLeaves decimal.Decimal

	CreatedAt time.Time
}

// =============================================================================
// LEAVE EVENT + DETAIL VARIANT
// =============================================================================

// Detail is the category-determined sub-record of a LeaveEvent. Its
// concrete type is fully determined by the parent event's category:
// short_leaves carry a ShortLeaveDetail, half_day_leaves a HalfDayDetail,
// every other category carries nil.
type Detail interface {
	detail()
}

// ShortLeaveDetail is the time-of-day pair for a short leave.
type ShortLeaveDetail struct {
	From TimeOfDay
	To   TimeOfDay
}

func (ShortLeaveDetail) detail() {}

// HalfDayDetail marks which half of the day was taken.
type HalfDayDetail struct {
	Type HalfDayType
}

func (HalfDayDetail) detail() {}

// LeaveEvent is one persisted record of leave taken. Immutable once
// created; deletion reverses the exact balance delta it caused.
type LeaveEvent struct {
	ID        EventID
	FacultyID FacultyID
	Category  Category
	Date      Date
	Detail    Detail
	CreatedAt time.Time
}

// =============================================================================
// REQUEST - tagged union of per-category payloads
// =============================================================================

// Request is a validated leave request. Each category's payload is a
// distinct concrete type carrying only its own well-typed fields; the
// engine switches on the concrete type, so there is no runtime
// shape-sniffing of a polymorphic payload.
type Request interface {
	// RequestCategory identifies the category this payload belongs to.
	RequestCategory() Category

	// Validate checks the payload's own fields. Validation failures are
	// ErrInvalid* sentinels and happen before any mutation.
	Validate() error
}

// ShortLeave is an intra-day leave bounded by a from/to time of day.
type ShortLeave struct {
	Date Date
	From TimeOfDay
	To   TimeOfDay
}

func (ShortLeave) RequestCategory() Category { return CategoryShortLeave }

func (r ShortLeave) Validate() error {
	if r.Date.IsZero() {
		return ErrMissingFields
	}
	if r.From.Minutes() > r.To.Minutes() {
		return ErrInvalidTimeRange
	}
	return nil
}

// HalfDayLeave is a fixed half of one day.
type HalfDayLeave struct {
	Date Date
	Type HalfDayType
}

func (HalfDayLeave) RequestCategory() Category { return CategoryHalfDayLeave }

func (r HalfDayLeave) Validate() error {
	if r.Date.IsZero() {
		return ErrMissingFields
	}
	if !r.Type.Valid() {
		return ErrInvalidHalfDayType
	}
	return nil
}

// GrantAdjustment increases a faculty member's allotment. It mutates
// granted_leaves and remaining_leaves only; no event row is created.
type GrantAdjustment struct {
	Amount decimal.Decimal
}

func (GrantAdjustment) RequestCategory() Category { return CategoryGrantedLeave }

func (r GrantAdjustment) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidGrantAmount
	}
	return nil
}

// DateRangeLeave spans an inclusive [From, To] range and produces one
// event per calendar day. Used by casual leaves and the other dated
// categories (academic, medical, compensatory, without-payment, earned).
type DateRangeLeave struct {
	Category Category
	From     Date
	To       Date
}

func (r DateRangeLeave) RequestCategory() Category { return r.Category }

func (r DateRangeLeave) Validate() error {
	if !r.Category.RangeCategory() {
		return ErrInvalidCategory
	}
	if r.From.IsZero() || r.To.IsZero() {
		return ErrMissingFields
	}
	if r.From.After(r.To) {
		return ErrInvalidDateRange
	}
	return nil
}

// Days expands the range into its individual calendar days.
func (r DateRangeLeave) Days() []Date {
	n := r.From.DaysUntil(r.To) + 1
	if n < 1 {
		return nil
	}
	days := make([]Date, n)
	for i := 0; i < n; i++ {
		days[i] = r.From.AddDays(i)
	}
	return days
}
