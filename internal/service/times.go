package service

import (
	"fmt"
	"time"

	"github.com/terminalgate/gate-api/internal/models"
)

// minutesOfDay converts a zero-padded "HH:MM" string to minutes past
// midnight.
func minutesOfDay(value string) (int, error) {
	parsed, err := time.Parse(models.TimeLayout, value)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

func formatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// generateTimes steps from start (inclusive) to end (exclusive) in interval
// steps. A zero-length window yields nothing.
func generateTimes(start, end string, intervalMinutes int) ([]string, error) {
	if intervalMinutes <= 0 {
		return nil, fmt.Errorf("invalid interval %d", intervalMinutes)
	}
	from, err := minutesOfDay(start)
	if err != nil {
		return nil, err
	}
	to, err := minutesOfDay(end)
	if err != nil {
		return nil, err
	}
	var times []string
	for at := from; at < to; at += intervalMinutes {
		times = append(times, formatMinutes(at))
	}
	return times, nil
}

// dayOfWeek returns 0 (Sunday) through 6 (Saturday) for a calendar date.
func dayOfWeek(date string) (int, error) {
	parsed, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", date, err)
	}
	return int(parsed.Weekday()), nil
}
