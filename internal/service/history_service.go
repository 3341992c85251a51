package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/heater-labs/heater-cloud-proxy/internal/history"
	"github.com/heater-labs/heater-cloud-proxy/internal/model"
	"github.com/heater-labs/heater-cloud-proxy/internal/tuya"
	"github.com/rs/zerolog"
)

// maxLogPages bounds the pagination loop. Countdown ticks land in the same
// log stream every 30s, so a full day of logs can span several pages.
const maxLogPages = 5

// HistoryService reconstructs today's run sessions from raw device logs.
type HistoryService struct {
	api      *tuya.Client
	deviceID string
	loc      *time.Location
	log      zerolog.Logger
	now      func() time.Time
}

// NewHistoryService constructs HistoryService.
func NewHistoryService(api *tuya.Client, deviceID string, loc *time.Location, log zerolog.Logger) *HistoryService {
	return &HistoryService{
		api:      api,
		deviceID: deviceID,
		loc:      loc,
		log:      log,
		now:      time.Now,
	}
}

// TodayRuns pages through today's device logs, deduplicates the switch
// events and pairs them into run sessions.
func (s *HistoryService) TodayRuns(ctx context.Context) (model.History, error) {
	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	startMs := dayStart.UnixMilli()
	endMs := now.UnixMilli()

	collector := history.NewCollector()
	lastRowKey := ""
	for page := 0; page < maxLogPages; page++ {
		path := fmt.Sprintf("/v1.0/devices/%s/logs?start_time=%d&end_time=%d&size=100&type=7", s.deviceID, startMs, endMs)
		if lastRowKey != "" {
			path += "&last_row_key=" + url.QueryEscape(lastRowKey)
		}
		raw, err := s.api.Get(ctx, path)
		if err != nil {
			return model.History{}, err
		}
		var logs tuya.LogPage
		if err := json.Unmarshal(raw, &logs); err != nil {
			return model.History{}, fmt.Errorf("decode device logs: %w", err)
		}
		collector.Add(logs.Logs)

		if !logs.HasNext || logs.NextRowKey == "" {
			break
		}
		lastRowKey = logs.NextRowKey
	}

	runs, total := history.PairSessions(collector.Events(), now, s.loc)
	return model.History{Runs: runs, TotalSeconds: total}, nil
}
