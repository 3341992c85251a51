package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heater-labs/heater-cloud-proxy/internal/model"
	"github.com/heater-labs/heater-cloud-proxy/internal/schedule"
	"github.com/heater-labs/heater-cloud-proxy/internal/tuya"
	"github.com/rs/zerolog"
)

// ScheduleService maps heating windows onto platform automations.
type ScheduleService struct {
	api        *tuya.Client
	deviceID   string
	homeID     string
	timezoneID string
	loc        *time.Location
	log        zerolog.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(api *tuya.Client, deviceID, homeID, timezoneID string, loc *time.Location, log zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		api:        api,
		deviceID:   deviceID,
		homeID:     homeID,
		timezoneID: timezoneID,
		loc:        loc,
		log:        log,
	}
}

// List returns the schedules targeting the managed device as linked on/off
// entry pairs. Automations for other devices, and ones without a timer
// trigger this service understands, are excluded without error.
func (s *ScheduleService) List(ctx context.Context) ([]model.ScheduleEntry, error) {
	raw, err := s.api.Get(ctx, fmt.Sprintf("/v1.0/homes/%s/automations", s.homeID))
	if err != nil {
		return nil, err
	}
	var automations []tuya.Automation
	if err := json.Unmarshal(raw, &automations); err != nil {
		return nil, fmt.Errorf("decode automations: %w", err)
	}

	entries := []model.ScheduleEntry{}
	for _, automation := range automations {
		if !schedule.TargetsDevice(automation, s.deviceID) {
			continue
		}
		parsed := schedule.ParseAutomation(automation)
		if parsed == nil {
			s.log.Debug().Str("automation", automation.AutomationID).Msg("skipping untranslatable automation")
			continue
		}
		entries = append(entries, schedule.Entries(*parsed)...)
	}
	return entries, nil
}

// Create encodes a heating window as a new automation and returns its id.
func (s *ScheduleService) Create(ctx context.Context, req model.ScheduleRequest) (string, error) {
	body, err := s.buildBody(req)
	if err != nil {
		return "", err
	}
	raw, err := s.api.Post(ctx, fmt.Sprintf("/v1.0/homes/%s/automations", s.homeID), body)
	if err != nil {
		return "", err
	}
	return decodeAutomationID(raw)
}

// Update replaces the automation backing a schedule.
func (s *ScheduleService) Update(ctx context.Context, id string, req model.ScheduleRequest) error {
	body, err := s.buildBody(req)
	if err != nil {
		return err
	}
	_, err = s.api.Put(ctx, fmt.Sprintf("/v1.0/homes/%s/automations/%s", s.homeID, id), body)
	return err
}

// Delete removes the automation backing a schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	_, err := s.api.Delete(ctx, fmt.Sprintf("/v1.0/homes/%s/automations/%s", s.homeID, id))
	return err
}

// SetEnabled flips the automation's enable state without touching its
// trigger or actions.
func (s *ScheduleService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	action := "disable"
	if enabled {
		action = "enable"
	}
	_, err := s.api.Put(ctx, fmt.Sprintf("/v1.0/homes/%s/automations/%s/actions/%s", s.homeID, id, action), nil)
	return err
}

func (s *ScheduleService) buildBody(req model.ScheduleRequest) (tuya.Automation, error) {
	if err := schedule.ValidateClock(req.StartTime); err != nil {
		return tuya.Automation{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := schedule.ValidateClock(req.EndTime); err != nil {
		return tuya.Automation{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if req.StartTime == req.EndTime {
		return tuya.Automation{}, fmt.Errorf("%w: start and end times must differ", ErrInvalidInput)
	}
	days := req.Days
	if len(days) == 0 {
		days = []string{"daily"}
	}
	if err := schedule.ValidateDays(days); err != nil {
		return tuya.Automation{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return schedule.BuildAutomation(schedule.BuildParams{
		Name:       req.Name,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Days:       days,
		DeviceID:   s.deviceID,
		TimezoneID: s.timezoneID,
	}, time.Now().In(s.loc)), nil
}

// decodeAutomationID handles the create response, which is the new
// automation id as a bare JSON string or number.
func decodeAutomationID(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var id any
	if err := dec.Decode(&id); err != nil {
		return "", fmt.Errorf("decode automation id: %w", err)
	}
	switch v := id.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unexpected automation id payload %s", string(raw))
	}
}
