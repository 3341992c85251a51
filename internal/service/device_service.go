package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heater-labs/heater-cloud-proxy/internal/model"
	"github.com/heater-labs/heater-cloud-proxy/internal/tuya"
	"github.com/rs/zerolog"
)

// DeviceService reads and mutates the managed switch through the Tuya API.
type DeviceService struct {
	api      *tuya.Client
	deviceID string
	log      zerolog.Logger
}

// NewDeviceService constructs DeviceService.
func NewDeviceService(api *tuya.Client, deviceID string, log zerolog.Logger) *DeviceService {
	return &DeviceService{api: api, deviceID: deviceID, log: log}
}

// Status fetches the device data-point snapshot and distills the switch and
// countdown state, with legacy-code fallbacks for older firmware.
func (s *DeviceService) Status(ctx context.Context) (model.Status, error) {
	raw, err := s.api.Get(ctx, fmt.Sprintf("/v1.0/iot-03/devices/%s/status", s.deviceID))
	if err != nil {
		return model.Status{}, err
	}
	var points tuya.StatusPoints
	if err := json.Unmarshal(raw, &points); err != nil {
		return model.Status{}, fmt.Errorf("decode device status: %w", err)
	}
	return model.Status{
		IsOn:             points.Bool("switch_1", "switch"),
		CountdownSeconds: points.Int("countdown_1", "countdown"),
	}, nil
}

// SetSwitch turns the relay on or off. Devices predating the switch_1 data
// point reject the primary code, so a failed command is retried once with
// the legacy code.
func (s *DeviceService) SetSwitch(ctx context.Context, on bool) error {
	if err := s.sendCommands(ctx, []tuya.StatusPoint{{Code: "switch_1", Value: on}}); err != nil {
		s.log.Warn().Err(err).Msg("switch_1 command failed, retrying with legacy code")
		if legacyErr := s.sendCommands(ctx, []tuya.StatusPoint{{Code: "switch", Value: on}}); legacyErr != nil {
			return legacyErr
		}
	}
	return nil
}

// StartCountdown switches the device on with an auto-off countdown.
func (s *DeviceService) StartCountdown(ctx context.Context, minutes int) (int, error) {
	if minutes < 1 || minutes > 1440 {
		return 0, fmt.Errorf("%w: minutes must be 1-1440", ErrInvalidInput)
	}
	seconds := minutes * 60
	err := s.sendCommands(ctx, []tuya.StatusPoint{
		{Code: "switch_1", Value: true},
		{Code: "countdown_1", Value: seconds},
	})
	if err != nil {
		return 0, err
	}
	return seconds, nil
}

func (s *DeviceService) sendCommands(ctx context.Context, commands []tuya.StatusPoint) error {
	path := fmt.Sprintf("/v1.0/iot-03/devices/%s/commands", s.deviceID)
	_, err := s.api.Post(ctx, path, map[string]any{"commands": commands})
	return err
}
