package tuya

import "fmt"

// StatusPoint is a single device data-point code/value pair as returned by
// the device status endpoint. The value type depends on the code.
type StatusPoint struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
}

// StatusPoints is a device status snapshot. Lookups take a legacy fallback
// code because older firmware reports "switch"/"countdown" instead of
// "switch_1"/"countdown_1".
type StatusPoints []StatusPoint

func (ps StatusPoints) lookup(code, legacy string) (any, bool) {
	for _, p := range ps {
		if p.Code == code {
			return p.Value, true
		}
	}
	for _, p := range ps {
		if p.Code == legacy {
			return p.Value, true
		}
	}
	return nil, false
}

// Bool resolves a boolean data point, falling back to the legacy code.
func (ps StatusPoints) Bool(code, legacy string) bool {
	value, ok := ps.lookup(code, legacy)
	if !ok {
		return false
	}
	b, _ := value.(bool)
	return b
}

// Int resolves an integer data point, falling back to the legacy code.
func (ps StatusPoints) Int(code, legacy string) int {
	value, ok := ps.lookup(code, legacy)
	if !ok {
		return 0
	}
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// LogEvent is one device data-point change from the event log. Values come
// back as strings ("true"/"false") or raw JSON scalars depending on the
// log pipeline, so the field stays loosely typed.
type LogEvent struct {
	Code      string `json:"code"`
	Value     any    `json:"value"`
	EventTime int64  `json:"event_time"`
}

// On reports whether the event records the switch turning on.
func (e LogEvent) On() bool {
	switch v := e.Value.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// DedupeKey identifies a log entry across pages; the platform may return
// the same entry on consecutive pages.
func (e LogEvent) DedupeKey() string {
	return fmt.Sprintf("%d_%v", e.EventTime, e.Value)
}

// LogPage is one page of device logs plus the cursor for the next page.
type LogPage struct {
	Logs       []LogEvent `json:"logs"`
	HasNext    bool       `json:"has_next"`
	NextRowKey string     `json:"next_row_key"`
}

// Automation is a platform-side scheduled rule. The same shape serves both
// the list response and the create/update request body.
type Automation struct {
	AutomationID  string      `json:"automation_id,omitempty"`
	Name          string      `json:"name"`
	Background    string      `json:"background,omitempty"`
	Enabled       bool        `json:"enabled,omitempty"`
	Conditions    []Condition `json:"conditions"`
	Actions       []Action    `json:"actions"`
	MatchType     int         `json:"match_type,omitempty"`
	Preconditions []any       `json:"preconditions"`
}

// Condition is an automation trigger. Time-of-day triggers carry a display
// block; other trigger kinds may not.
type Condition struct {
	Display    *ConditionDisplay `json:"display,omitempty"`
	EntityID   string            `json:"entity_id"`
	EntityType int               `json:"entity_type"`
	OrderNum   int               `json:"order_num"`
}

// ConditionDisplay holds the timer trigger parameters: a one-shot date,
// the 7-character Monday-first day bitmask, and the HH:MM fire time.
type ConditionDisplay struct {
	Date       string `json:"date,omitempty"`
	Loops      string `json:"loops,omitempty"`
	Time       string `json:"time,omitempty"`
	TimezoneID string `json:"timezone_id,omitempty"`
}

// Action is one automation step issued against a device.
type Action struct {
	ActionExecutor   string         `json:"action_executor"`
	EntityID         string         `json:"entity_id"`
	ExecutorProperty map[string]any `json:"executor_property"`
}
