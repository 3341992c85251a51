package model

// Schedule is one heating window derived from a platform automation:
// switch on at StartTime, countdown turns it off at EndTime.
type Schedule struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Enabled         bool     `json:"isEnabled"`
	StartTime       string   `json:"startTime"`
	EndTime         string   `json:"endTime"`
	DurationMinutes int      `json:"durationMinutes"`
	Days            []string `json:"days"`
}

// ScheduleEntry is the externally exposed form: each schedule appears as an
// "on" record and an "off" record sharing a GroupID (the automation id).
type ScheduleEntry struct {
	ID      string   `json:"id"`
	GroupID string   `json:"groupId"`
	Name    string   `json:"name"`
	Enabled bool     `json:"isEnabled"`
	Time    string   `json:"time"`
	Days    []string `json:"days"`
	Action  string   `json:"action"`
}

// ScheduleRequest is the caller-supplied shape for create/update.
type ScheduleRequest struct {
	Name      string   `json:"name"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Days      []string `json:"days"`
}
