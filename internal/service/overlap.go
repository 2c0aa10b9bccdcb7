package service

import "github.com/terminalgate/gate-api/internal/models"

// timeRangeOverlaps reports whether candidate [start, end) intersects an
// existing [start2, end2). Three cases: the candidate starts inside, ends
// inside, or fully contains the existing range. Boundary-touching ranges
// (end == start2 or start == end2) do not overlap; a candidate that exactly
// covers or swallows the existing range does. Times are zero-padded "HH:MM"
// strings, so string comparison is chronological comparison.
func timeRangeOverlaps(start, end, start2, end2 string) bool {
	if start2 <= start && start < end2 {
		return true
	}
	if start2 < end && end <= end2 {
		return true
	}
	if start <= start2 && end >= end2 {
		return true
	}
	return false
}

// firstOverlapping returns the first range in rows intersecting
// [start, end), or nil when none does. Rows must already be filtered for
// activity and scope applicability.
func firstOverlapping(start, end string, rows []models.BlockedSlot) *models.BlockedSlot {
	for i := range rows {
		if timeRangeOverlaps(start, end, rows[i].StartTime, rows[i].EndTime) {
			return &rows[i]
		}
	}
	return nil
}
