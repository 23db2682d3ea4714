package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", tod.String())

	// Seconds are accepted and dropped
	tod, err = ParseTimeOfDay("14:30:45")
	require.NoError(t, err)
	assert.Equal(t, "14:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("morning")
	assert.Error(t, err)
}

func TestDateRangeLeave_Days(t *testing.T) {
	r := DateRangeLeave{
		Category: CategoryCasualLeave,
		From:     NewDate(2026, time.March, 30),
		To:       NewDate(2026, time.April, 2),
	}
	days := r.Days()
	require.Len(t, days, 4, "inclusive range crosses the month boundary")
	assert.Equal(t, "2026-03-30", days[0].String())
	assert.Equal(t, "2026-04-02", days[3].String())

	// Single-day range is one event
	r.To = r.From
	assert.Len(t, r.Days(), 1)
}

func TestCategory_Classification(t *testing.T) {
	assert.True(t, CategoryShortLeave.Valid())
	assert.False(t, Category("sabbatical").Valid())

	assert.True(t, CategoryCasualLeave.Dated())
	assert.False(t, CategoryGrantedLeave.Dated())

	assert.True(t, CategoryEarnedLeave.RangeCategory())
	assert.False(t, CategoryShortLeave.RangeCategory())
}
