package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus/leave-ledger/ledger"
)

func TestBuildRequest_ShortLeave(t *testing.T) {
	body := addLeaveRequest{
		FacultyID: "f1",
		LeaveType: "short_leaves",
		Date:      "2026-03-02",
		FromTime:  "09:00",
		ToTime:    "10:30",
	}
	req, err := body.buildRequest()
	require.NoError(t, err)

	short, ok := req.(ledger.ShortLeave)
	require.True(t, ok)
	assert.Equal(t, "2026-03-02", short.Date.String())
	assert.Equal(t, "09:00", short.From.String())
	assert.Equal(t, "10:30", short.To.String())
}

func TestBuildRequest_ShortLeave_MissingTimes(t *testing.T) {
	body := addLeaveRequest{FacultyID: "f1", LeaveType: "short_leaves", Date: "2026-03-02"}
	_, err := body.buildRequest()
	assert.ErrorIs(t, err, ledger.ErrMissingFields)
}

func TestBuildRequest_HalfDay(t *testing.T) {
	body := addLeaveRequest{
		FacultyID:   "f1",
		LeaveType:   "half_day_leaves",
		Date:        "2026-03-02",
		HalfDayType: "before_noon",
	}
	req, err := body.buildRequest()
	require.NoError(t, err)

	half, ok := req.(ledger.HalfDayLeave)
	require.True(t, ok)
	assert.Equal(t, ledger.HalfDayBeforeNoon, half.Type)
}

func TestBuildRequest_Grant(t *testing.T) {
	body := addLeaveRequest{FacultyID: "f1", LeaveType: "granted_leaves", Amount: "5"}
	req, err := body.buildRequest()
	require.NoError(t, err)

	grant, ok := req.(ledger.GrantAdjustment)
	require.True(t, ok)
	assert.Equal(t, "5", grant.Amount.String())
}

func TestBuildRequest_DateRange(t *testing.T) {
	body := addLeaveRequest{
		FacultyID: "f1",
		LeaveType: "casual_leaves",
		FromDate:  "2026-03-02",
		ToDate:    "2026-03-04",
	}
	req, err := body.buildRequest()
	require.NoError(t, err)

	rng, ok := req.(ledger.DateRangeLeave)
	require.True(t, ok)
	assert.Equal(t, ledger.CategoryCasualLeave, rng.Category)
	assert.Len(t, rng.Days(), 3)
}

func TestBuildRequest_UnknownCategory(t *testing.T) {
	body := addLeaveRequest{FacultyID: "f1", LeaveType: "sabbatical"}
	_, err := body.buildRequest()
	assert.ErrorIs(t, err, ledger.ErrInvalidCategory)
}
