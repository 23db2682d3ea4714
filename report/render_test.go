package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus/leave-ledger/ledger"
)

// =============================================================================
// LABELS
// =============================================================================

func TestCategoryLabel(t *testing.T) {
	cases := map[ledger.Category]string{
		ledger.CategoryShortLeave:          "Short Leave",
		ledger.CategoryHalfDayLeave:        "Half Day Leave",
		ledger.CategoryCasualLeave:         "Full Day Leave",
		ledger.CategoryMedicalLeave:        "Medical/Maternity Leave",
		ledger.CategoryAcademicLeave:       "Academic Leave",
		ledger.CategoryWithoutPaymentLeave: "Without Payment Leave",
		ledger.CategoryEarnedLeave:         "Earned Leave",
	}
	for in, want := range cases {
		assert.Equal(t, want, CategoryLabel(in))
	}

	// Unknown keys fall back to humanized form
	assert.Equal(t, "Study Leave", CategoryLabel(ledger.Category("study_leaves")))
}

func TestDetailLabel(t *testing.T) {
	short := ledger.ShortLeaveDetail{
		From: ledger.TimeOfDay{Hour: 9},
		To:   ledger.TimeOfDay{Hour: 10, Minute: 30},
	}
	assert.Equal(t, "(09:00 to 10:30)", DetailLabel(short))

	assert.Equal(t, "(Before Noon)", DetailLabel(ledger.HalfDayDetail{Type: ledger.HalfDayBeforeNoon}))
	assert.Equal(t, "(After Noon)", DetailLabel(ledger.HalfDayDetail{Type: ledger.HalfDayAfterNoon}))
	assert.Equal(t, "", DetailLabel(nil))
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func testRenderer() *Renderer {
	return NewRenderer(Config{
		CollegeName:     "Government College of Science",
		CollegeSubtitle: "Affiliated to the State University",
		Address:         "College Road, Sector 14",
	}, nil)
}

func sampleReport() FacultyReport {
	date := ledger.NewDate(2026, time.April, 6)
	events := []ledger.LeaveEvent{
		{ID: "e1", Category: ledger.CategoryShortLeave, Date: date,
			Detail: ledger.ShortLeaveDetail{From: ledger.TimeOfDay{Hour: 9}, To: ledger.TimeOfDay{Hour: 10}}},
		{ID: "e2", Category: ledger.CategoryCasualLeave, Date: date.AddDays(1)},
	}
	return FacultyReport{
		Faculty: ledger.Faculty{
			ID: "f1", Name: "Dr. Sharma", Designation: "Professor",
			GrantedLeaves:   decimal.NewFromInt(20),
			TotalLeaves:     decimal.RequireFromString("1.33"),
			RemainingLeaves: decimal.RequireFromString("18.67"),
		},
		Department: "Physics",
		From:       date.AddDays(-35),
		To:         date.AddDays(7),
		Events:     events,
		Summary:    ledger.Summarize(events, decimal.RequireFromString("18.67")),
	}
}

func TestRenderFacultyReport_ProducesPDF(t *testing.T) {
	var buf bytes.Buffer
	err := testRenderer().RenderFacultyReport(&buf, sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output starts with the PDF magic")
	assert.Greater(t, buf.Len(), 500)
}

func TestRenderFacultyReport_EmptyWindow(t *testing.T) {
	data := sampleReport()
	data.Events = nil
	data.Summary = ledger.Summarize(nil, data.Faculty.RemainingLeaves)

	var buf bytes.Buffer
	err := testRenderer().RenderFacultyReport(&buf, data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderCombinedReport_MultiplePages(t *testing.T) {
	page := sampleReport()
	rows := []OverviewRow{{
		Name:            page.Faculty.Name,
		Designation:     page.Faculty.Designation,
		WindowTotal:     page.Summary.TotalLeaves,
		RemainingLeaves: page.Summary.RemainingLeaves,
	}}

	var buf bytes.Buffer
	err := testRenderer().RenderCombinedReport(&buf, page.From, page.To, rows, []FacultyReport{page, page})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderDailyDigest(t *testing.T) {
	digest := Digest{
		Date:       ledger.NewDate(2026, time.April, 6),
		Department: "Physics",
		Entries: []DigestEntry{
			{FacultyName: "Dr. Sharma", Designation: "Professor",
				Category: ledger.CategoryShortLeave,
				Detail:   ledger.ShortLeaveDetail{From: ledger.TimeOfDay{Hour: 9}, To: ledger.TimeOfDay{Hour: 10}}},
			{FacultyName: "Mr. Verma", Designation: "Clerk",
				Category: ledger.CategoryCasualLeave},
		},
	}

	var buf bytes.Buffer
	err := testRenderer().RenderDailyDigest(&buf, digest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderDailyDigest_Empty(t *testing.T) {
	var buf bytes.Buffer
	err := testRenderer().RenderDailyDigest(&buf, Digest{Date: ledger.Today()})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
