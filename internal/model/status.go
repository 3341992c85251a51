package model

// Status is the device state the rest of the system cares about, distilled
// from the platform's data-point snapshot.
type Status struct {
	IsOn             bool `json:"isOn"`
	CountdownSeconds int  `json:"countdownSeconds"`
}
