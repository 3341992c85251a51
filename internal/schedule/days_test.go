package schedule

import (
	"reflect"
	"testing"
)

func TestDaysToLoopsNamedSets(t *testing.T) {
	cases := []struct {
		days []string
		want string
	}{
		{[]string{"daily"}, "1111111"},
		{[]string{"weekdays"}, "1111100"},
		{[]string{"weekends"}, "0000011"},
	}
	for _, tc := range cases {
		if got := DaysToLoops(tc.days); got != tc.want {
			t.Errorf("DaysToLoops(%v): got %q, want %q", tc.days, got, tc.want)
		}
	}
}

func TestDaysToLoopsExplicitList(t *testing.T) {
	if got := DaysToLoops([]string{"mon", "wed", "sun"}); got != "1010001" {
		t.Fatalf("explicit list: got %q, want 1010001", got)
	}
	if got := DaysToLoops(nil); got != "0000000" {
		t.Fatalf("empty list: got %q, want 0000000", got)
	}
}

func TestLoopsToDaysCanonicalPatterns(t *testing.T) {
	cases := []struct {
		loops string
		want  []string
	}{
		{"1111111", []string{"daily"}},
		{"1111100", []string{"weekdays"}},
		{"0000011", []string{"weekends"}},
		{"1010001", []string{"mon", "wed", "sun"}},
	}
	for _, tc := range cases {
		if got := LoopsToDays(tc.loops); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("LoopsToDays(%q): got %v, want %v", tc.loops, got, tc.want)
		}
	}
}

func TestDaysRoundTrip(t *testing.T) {
	for _, days := range [][]string{
		{"daily"},
		{"weekdays"},
		{"weekends"},
		{"tue", "thu"},
		{"mon", "tue", "wed", "thu", "fri", "sat", "sun"},
	} {
		got := LoopsToDays(DaysToLoops(days))
		// the full explicit week collapses to the daily named set
		want := days
		if len(days) == 7 {
			want = []string{"daily"}
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip %v: got %v, want %v", days, got, want)
		}
	}
}

func TestValidateDays(t *testing.T) {
	if err := ValidateDays([]string{"daily"}); err != nil {
		t.Fatalf("daily should validate: %v", err)
	}
	if err := ValidateDays([]string{"mon", "fri"}); err != nil {
		t.Fatalf("weekday names should validate: %v", err)
	}
	if err := ValidateDays([]string{"monday"}); err == nil {
		t.Fatal("expected error for unknown day name")
	}
}
