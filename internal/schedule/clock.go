package schedule

import (
	"fmt"
	"strconv"
)

const minutesPerDay = 24 * 60

// ValidateClock checks a zero-padded HH:MM time string.
func ValidateClock(clock string) error {
	if len(clock) != 5 || clock[2] != ':' {
		return fmt.Errorf("invalid time %q, want HH:MM", clock)
	}
	h, err := strconv.Atoi(clock[:2])
	if err != nil {
		return fmt.Errorf("invalid time %q, want HH:MM", clock)
	}
	m, err := strconv.Atoi(clock[3:])
	if err != nil {
		return fmt.Errorf("invalid time %q, want HH:MM", clock)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("time %q out of range", clock)
	}
	return nil
}

// AddMinutes shifts an HH:MM time forward, wrapping past midnight. The
// input must already be a valid clock string.
func AddMinutes(clock string, mins int) string {
	total := (clockMinutes(clock) + mins) % minutesPerDay
	if total < 0 {
		total += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// DiffMinutes returns the forward minute distance from start to end. An end
// at or before the start is interpreted as crossing midnight once, so the
// result is always positive for distinct valid inputs.
func DiffMinutes(start, end string) int {
	diff := clockMinutes(end) - clockMinutes(start)
	if diff > 0 {
		return diff
	}
	return diff + minutesPerDay
}

func clockMinutes(clock string) int {
	h, _ := strconv.Atoi(clock[:2])
	m, _ := strconv.Atoi(clock[3:])
	return h*60 + m
}
