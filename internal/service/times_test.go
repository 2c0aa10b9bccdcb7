package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTimes(t *testing.T) {
	times, err := generateTimes("08:00", "10:00", 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, times)
}

func TestGenerateTimesExcludesEnd(t *testing.T) {
	times, err := generateTimes("09:00", "10:00", 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, times)
}

func TestGenerateTimesPartialTrailingInterval(t *testing.T) {
	times, err := generateTimes("08:00", "09:45", 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, times)
}

func TestGenerateTimesZeroLengthWindow(t *testing.T) {
	times, err := generateTimes("10:00", "10:00", 30)
	require.NoError(t, err)
	assert.Empty(t, times)
}

func TestGenerateTimesRejectsBadInput(t *testing.T) {
	_, err := generateTimes("08:00", "10:00", 0)
	assert.Error(t, err)

	_, err = generateTimes("8am", "10:00", 30)
	assert.Error(t, err)
}

func TestDayOfWeek(t *testing.T) {
	dow, err := dayOfWeek("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, 0, dow)

	dow, err = dayOfWeek("2025-06-07")
	require.NoError(t, err)
	assert.Equal(t, 6, dow)

	_, err = dayOfWeek("June 1")
	assert.Error(t, err)
}
