/*
dto.go - Wire shapes and their conversion into typed requests

PURPOSE:
  The add-leave endpoint accepts one flat JSON shape for every category;
  this file owns the conversion from that loose shape into the concrete
  ledger.Request the engine switches on. Validation failures surface as
  the ledger's ErrInvalid* and ErrMissing sentinels so the error-to-status
  mapping stays in one place.
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/campus/leave-ledger/ledger"
)

// =============================================================================
// REQUEST BODIES
// =============================================================================

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type addFacultyRequest struct {
	Name          string `json:"name" validate:"required"`
	Designation   string `json:"designation" validate:"required"`
	GrantedLeaves string `json:"granted_leaves" validate:"required"`
}

// addLeaveRequest is the flat shape shared by every category. Which
// fields matter depends on leave_type; buildRequest sorts that out.
type addLeaveRequest struct {
	FacultyID   string `json:"faculty_id" validate:"required"`
	LeaveType   string `json:"leave_type" validate:"required"`
	Date        string `json:"date,omitempty"`
	FromTime    string `json:"from_time,omitempty"`
	ToTime      string `json:"to_time,omitempty"`
	HalfDayType string `json:"half_day_type,omitempty"`
	FromDate    string `json:"from_date,omitempty"`
	ToDate      string `json:"to_date,omitempty"`
	Amount      string `json:"amount,omitempty"`
}

// buildRequest converts the flat body into the category's typed payload.
// Field-level validation beyond presence is left to Request.Validate.
func (b addLeaveRequest) buildRequest() (ledger.Request, error) {
	category := ledger.Category(b.LeaveType)
	if !category.Valid() {
		return nil, ledger.ErrInvalidCategory
	}

	switch {
	case category == ledger.CategoryShortLeave:
		if b.Date == "" || b.FromTime == "" || b.ToTime == "" {
			return nil, ledger.ErrMissingFields
		}
		date, err := ledger.ParseDate(b.Date)
		if err != nil {
			return nil, ledger.ErrMissingFields
		}
		from, err := ledger.ParseTimeOfDay(b.FromTime)
		if err != nil {
			return nil, ledger.ErrInvalidTimeRange
		}
		to, err := ledger.ParseTimeOfDay(b.ToTime)
		if err != nil {
			return nil, ledger.ErrInvalidTimeRange
		}
		return ledger.ShortLeave{Date: date, From: from, To: to}, nil

	case category == ledger.CategoryHalfDayLeave:
		if b.Date == "" {
			return nil, ledger.ErrMissingFields
		}
		date, err := ledger.ParseDate(b.Date)
		if err != nil {
			return nil, ledger.ErrMissingFields
		}
		return ledger.HalfDayLeave{Date: date, Type: ledger.HalfDayType(b.HalfDayType)}, nil

	case category == ledger.CategoryGrantedLeave:
		amount, err := decimal.NewFromString(b.Amount)
		if err != nil {
			return nil, ledger.ErrInvalidGrantAmount
		}
		return ledger.GrantAdjustment{Amount: amount}, nil

	default: // the date-range categories
		if b.FromDate == "" || b.ToDate == "" {
			return nil, ledger.ErrMissingFields
		}
		from, err := ledger.ParseDate(b.FromDate)
		if err != nil {
			return nil, ledger.ErrMissingFields
		}
		to, err := ledger.ParseDate(b.ToDate)
		if err != nil {
			return nil, ledger.ErrMissingFields
		}
		return ledger.DateRangeLeave{Category: category, From: from, To: to}, nil
	}
}

// =============================================================================
// RESPONSE BODIES
// =============================================================================

type facultyRow struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Designation     string         `json:"designation"`
	GrantedLeaves   string         `json:"granted_leaves"`
	TotalLeaves     string         `json:"total_leaves"`
	RemainingLeaves string         `json:"remaining_leaves"`
	Counts          map[string]int `json:"counts"`
}

func toFacultyRow(f ledger.FacultyWithCounts) facultyRow {
	counts := make(map[string]int, len(ledger.Categories))
	for _, c := range ledger.Categories {
		if c.Dated() {
			counts[string(c)] = f.Count(c)
		}
	}
	return facultyRow{
		ID:              string(f.ID),
		Name:            f.Name,
		Designation:     f.Designation,
		GrantedLeaves:   f.GrantedLeaves.StringFixed(2),
		TotalLeaves:     f.TotalLeaves.StringFixed(2),
		RemainingLeaves: f.RemainingLeaves.StringFixed(2),
		Counts:          counts,
	}
}

type leaveEventRow struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	FromTime    string `json:"from_time,omitempty"`
	ToTime      string `json:"to_time,omitempty"`
	HalfDayType string `json:"half_day_type,omitempty"`
}

func toLeaveEventRow(ev ledger.LeaveEvent) leaveEventRow {
	row := leaveEventRow{
		ID:       string(ev.ID),
		Category: string(ev.Category),
		Date:     ev.Date.String(),
	}
	switch d := ev.Detail.(type) {
	case ledger.ShortLeaveDetail:
		row.FromTime = d.From.String()
		row.ToTime = d.To.String()
	case ledger.HalfDayDetail:
		row.HalfDayType = string(d.Type)
	}
	return row
}

type shortLeaveResult struct {
	ShortLeaves int    `json:"short_leaves"`
	TotalLeaves string `json:"total_leaves"`
}
