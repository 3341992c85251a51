package history

import (
	"sort"
	"time"

	"github.com/heater-labs/heater-cloud-proxy/internal/model"
	"github.com/heater-labs/heater-cloud-proxy/internal/tuya"
)

// Event is a deduplicated switch state change, millisecond epoch time.
type Event struct {
	Time int64
	On   bool
}

// Collector accumulates switch events across log pages, discarding the
// duplicate entries the platform repeats on page boundaries. First
// occurrence of an (event_time, value) pair wins.
type Collector struct {
	seen   map[string]struct{}
	events []Event
}

func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add folds one page of raw logs into the collector, keeping only switch_1
// entries.
func (c *Collector) Add(logs []tuya.LogEvent) {
	for _, log := range logs {
		if log.Code != "switch_1" {
			continue
		}
		key := log.DedupeKey()
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = struct{}{}
		c.events = append(c.events, Event{Time: log.EventTime, On: log.On()})
	}
}

// Events returns the collected switch events in chronological order. Pages
// arrive newest-first, so a sort is always needed before pairing.
func (c *Collector) Events() []Event {
	sort.Slice(c.events, func(i, j int) bool {
		return c.events[i].Time < c.events[j].Time
	})
	return c.events
}

// PairSessions walks chronologically ordered switch events and pairs each
// on-event with the next off-event into a run session. A later on-event
// before any off replaces the pending one; an off-event with nothing
// pending (e.g. the matching on happened before the window) is ignored. A
// trailing unmatched on-event yields an open session measured against now.
func PairSessions(events []Event, now time.Time, loc *time.Location) ([]model.RunSession, int) {
	runs := []model.RunSession{}
	var pending *Event

	for i := range events {
		event := events[i]
		if event.On {
			pending = &events[i]
			continue
		}
		if pending == nil {
			continue
		}
		end := clockAt(event.Time, loc)
		runs = append(runs, model.RunSession{
			StartTime:   clockAt(pending.Time, loc),
			EndTime:     &end,
			DurationSec: roundSeconds(event.Time - pending.Time),
		})
		pending = nil
	}

	if pending != nil {
		runs = append(runs, model.RunSession{
			StartTime:   clockAt(pending.Time, loc),
			EndTime:     nil,
			DurationSec: roundSeconds(now.UnixMilli() - pending.Time),
		})
	}

	total := 0
	for _, run := range runs {
		total += run.DurationSec
	}
	return runs, total
}

// clockAt renders a millisecond timestamp as local HH:MM. The location must
// match the one schedules are encoded with so history and schedule displays
// line up.
func clockAt(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format("15:04")
}

func roundSeconds(ms int64) int {
	return int((ms + 500) / 1000)
}
