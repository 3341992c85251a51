package service

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func logEntry(code string, value any, at time.Time) map[string]any {
	return map[string]any{"code": code, "value": value, "event_time": at.UnixMilli()}
}

func TestTodayRunsPaginatesAndPairs(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	var queries []string
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1.0/devices/dev1/logs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		queries = append(queries, q.Get("last_row_key"))
		if q.Get("type") != "7" || q.Get("size") != "100" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("start_time") != strconv.FormatInt(day.UnixMilli(), 10) {
			t.Errorf("start_time: got %s", q.Get("start_time"))
		}

		// newest-first pages with the boundary row repeated
		if q.Get("last_row_key") == "" {
			writeResult(w, map[string]any{
				"logs": []map[string]any{
					logEntry("switch_1", false, day.Add(9*time.Hour+30*time.Minute)),
					logEntry("switch_1", true, day.Add(9*time.Hour)),
				},
				"has_next":     true,
				"next_row_key": "row/2",
			})
			return
		}
		if q.Get("last_row_key") != "row/2" {
			t.Errorf("last_row_key: got %q", q.Get("last_row_key"))
		}
		writeResult(w, map[string]any{
			"logs": []map[string]any{
				logEntry("switch_1", true, day.Add(9*time.Hour)),
				logEntry("countdown_1", 1800, day.Add(9*time.Hour)),
				logEntry("switch_1", false, day.Add(8*time.Hour+15*time.Minute)),
				logEntry("switch_1", true, day.Add(8*time.Hour)),
			},
			"has_next": false,
		})
	})

	svc := NewHistoryService(api, "dev1", time.UTC, zerolog.Nop())
	svc.now = func() time.Time { return day.Add(10 * time.Hour) }

	history, err := svc.TodayRuns(context.Background())
	if err != nil {
		t.Fatalf("TodayRuns: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("pages fetched: got %d, want 2", len(queries))
	}
	if len(history.Runs) != 2 {
		t.Fatalf("runs: got %d, want 2", len(history.Runs))
	}
	if history.Runs[0].StartTime != "08:00" || history.Runs[0].DurationSec != 15*60 {
		t.Fatalf("first run: %+v", history.Runs[0])
	}
	if history.Runs[1].StartTime != "09:00" || history.Runs[1].DurationSec != 30*60 {
		t.Fatalf("second run: %+v", history.Runs[1])
	}
	if history.TotalSeconds != 45*60 {
		t.Fatalf("total: got %d, want 2700", history.TotalSeconds)
	}
}

func TestTodayRunsStopsAtPageCap(t *testing.T) {
	pages := 0
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		writeResult(w, map[string]any{
			"logs":         []map[string]any{},
			"has_next":     true,
			"next_row_key": "row/" + strconv.Itoa(pages),
		})
	})
	svc := NewHistoryService(api, "dev1", time.UTC, zerolog.Nop())

	if _, err := svc.TodayRuns(context.Background()); err != nil {
		t.Fatalf("TodayRuns: %v", err)
	}
	if pages != 5 {
		t.Fatalf("pages: got %d, want cap of 5", pages)
	}
}

func TestTodayRunsEmptyDay(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, map[string]any{"logs": []map[string]any{}, "has_next": false})
	})
	svc := NewHistoryService(api, "dev1", time.UTC, zerolog.Nop())

	history, err := svc.TodayRuns(context.Background())
	if err != nil {
		t.Fatalf("TodayRuns: %v", err)
	}
	if history.Runs == nil {
		t.Fatal("runs must serialize as an empty list, not null")
	}
	if len(history.Runs) != 0 || history.TotalSeconds != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
}
