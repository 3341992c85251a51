package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/heater-labs/heater-cloud-proxy/internal/model"
	"github.com/heater-labs/heater-cloud-proxy/internal/tuya"
)

// automationBackground is the cover image the platform app expects on
// rules it renders; the value itself is cosmetic but must be present.
const automationBackground = "https://images.tuyaeu.com/smart/rule/cover/place2.png"

// BuildParams describes one heating window to encode as an automation.
type BuildParams struct {
	Name       string
	StartTime  string
	EndTime    string
	Days       []string
	DeviceID   string
	TimezoneID string
}

// BuildAutomation encodes a heating window as a platform automation: a
// timer trigger at StartTime and three device actions in the order the
// platform requires (switch on, countdown set, post-countdown power-off).
func BuildAutomation(p BuildParams, now time.Time) tuya.Automation {
	durationMin := DiffMinutes(p.StartTime, p.EndTime)
	countdownSec := durationMin * 60

	name := p.Name
	if name == "" {
		name = fmt.Sprintf("Water %s (%dm)", p.StartTime, durationMin)
	}

	return tuya.Automation{
		Name:       name,
		Background: automationBackground,
		Conditions: []tuya.Condition{{
			Display: &tuya.ConditionDisplay{
				Date:       now.Format("20060102"),
				Loops:      DaysToLoops(p.Days),
				Time:       p.StartTime,
				TimezoneID: p.TimezoneID,
			},
			EntityID:   "timer",
			EntityType: 6,
			OrderNum:   1,
		}},
		Actions: []tuya.Action{
			{ActionExecutor: "dpIssue", EntityID: p.DeviceID, ExecutorProperty: map[string]any{"switch_1": true}},
			{ActionExecutor: "dpIssue", EntityID: p.DeviceID, ExecutorProperty: map[string]any{"countdown_1": countdownSec}},
			{ActionExecutor: "dpIssue", EntityID: p.DeviceID, ExecutorProperty: map[string]any{"relay_status": "power_off"}},
		},
		MatchType:     1,
		Preconditions: []any{},
	}
}

// ParseAutomation derives a domain schedule from a platform automation.
// Automations without a recognizable timer trigger (date-specific rules,
// sensor triggers, rules created by other apps) return nil and are skipped
// rather than treated as errors.
func ParseAutomation(a tuya.Automation) *model.Schedule {
	if len(a.Conditions) == 0 || a.Conditions[0].Display == nil {
		return nil
	}
	display := a.Conditions[0].Display
	if display.Time == "" {
		return nil
	}

	countdownSec := countdownSeconds(a.Actions)
	durationMin := (countdownSec + 30) / 60

	loops := display.Loops
	if loops == "" {
		loops = "0000000"
	}

	return &model.Schedule{
		ID:              a.AutomationID,
		Name:            a.Name,
		Enabled:         a.Enabled,
		StartTime:       display.Time,
		EndTime:         AddMinutes(display.Time, durationMin),
		DurationMinutes: durationMin,
		Days:            LoopsToDays(loops),
	}
}

// TargetsDevice reports whether any automation action addresses the device.
func TargetsDevice(a tuya.Automation, deviceID string) bool {
	for _, action := range a.Actions {
		if action.EntityID == deviceID {
			return true
		}
	}
	return false
}

func countdownSeconds(actions []tuya.Action) int {
	for _, action := range actions {
		if value, ok := action.ExecutorProperty["countdown_1"]; ok && value != nil {
			switch v := value.(type) {
			case float64:
				return int(v)
			case int:
				return v
			}
		}
	}
	return 0
}

// Entries expands a schedule into the linked on/off record pair the API
// exposes. Both records share the automation id as groupId.
func Entries(s model.Schedule) []model.ScheduleEntry {
	return []model.ScheduleEntry{
		{ID: s.ID + ":on", GroupID: s.ID, Name: s.Name, Enabled: s.Enabled, Time: s.StartTime, Days: s.Days, Action: "on"},
		{ID: s.ID + ":off", GroupID: s.ID, Name: s.Name, Enabled: s.Enabled, Time: s.EndTime, Days: s.Days, Action: "off"},
	}
}

// GroupID strips the :on/:off entry suffix, recovering the automation id.
func GroupID(entryID string) string {
	entryID = strings.TrimSuffix(entryID, ":on")
	return strings.TrimSuffix(entryID, ":off")
}
