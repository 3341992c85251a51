package schedule

import (
	"fmt"
	"strings"
)

// dayOrder is the canonical Monday-first weekday order used by the
// platform's 7-character loops bitmask.
var dayOrder = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Canonical bitmask patterns for the named day sets.
const (
	loopsDaily    = "1111111"
	loopsWeekdays = "1111100"
	loopsWeekends = "0000011"
)

// DaysToLoops encodes a day set as the platform bitmask. Named sets map to
// their canonical patterns; anything else is encoded per position.
func DaysToLoops(days []string) string {
	if containsDay(days, "daily") {
		return loopsDaily
	}
	if containsDay(days, "weekdays") {
		return loopsWeekdays
	}
	if containsDay(days, "weekends") {
		return loopsWeekends
	}
	var b strings.Builder
	for _, day := range dayOrder {
		if containsDay(days, day) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// LoopsToDays decodes a bitmask back to a day set. Exact canonical patterns
// return the named set; everything else returns the explicit Monday-first
// list of active weekdays.
func LoopsToDays(loops string) []string {
	switch loops {
	case loopsDaily:
		return []string{"daily"}
	case loopsWeekdays:
		return []string{"weekdays"}
	case loopsWeekends:
		return []string{"weekends"}
	}
	days := make([]string, 0, 7)
	for i, day := range dayOrder {
		if i < len(loops) && loops[i] == '1' {
			days = append(days, day)
		}
	}
	return days
}

// ValidateDays rejects unknown day names before anything hits the network.
func ValidateDays(days []string) error {
	for _, day := range days {
		if day == "daily" || day == "weekdays" || day == "weekends" {
			continue
		}
		if !containsDay(dayOrder[:], day) {
			return fmt.Errorf("unknown day %q", day)
		}
	}
	return nil
}

func containsDay(days []string, want string) bool {
	for _, d := range days {
		if d == want {
			return true
		}
	}
	return false
}
