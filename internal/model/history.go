package model

// RunSession is a reconstructed on→off interval. A nil EndTime means the
// device is still running; its duration counts up to the query time.
type RunSession struct {
	StartTime   string  `json:"startTime"`
	EndTime     *string `json:"endTime"`
	DurationSec int     `json:"durationSec"`
}

// History is today's reconstructed run list.
type History struct {
	Runs         []RunSession `json:"runs"`
	TotalSeconds int          `json:"totalSeconds"`
}
