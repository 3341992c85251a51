package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/heater-labs/heater-cloud-proxy/internal/config"
	"github.com/heater-labs/heater-cloud-proxy/internal/poller"
	"github.com/heater-labs/heater-cloud-proxy/internal/server"
	"github.com/heater-labs/heater-cloud-proxy/internal/service"
	"github.com/heater-labs/heater-cloud-proxy/internal/tuya"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := server.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := server.NewLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	endpoint, _ := cfg.Endpoint()
	loc, _ := cfg.Location()

	api, err := tuya.New(cfg.Tuya.AccessID, cfg.Tuya.AccessSecret, endpoint, cfg.Tuya.RequestTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("init tuya client")
	}

	authSvc := service.NewAuthService(cfg)
	deviceSvc := service.NewDeviceService(api, cfg.Tuya.DeviceID, log)
	scheduleSvc := service.NewScheduleService(api, cfg.Tuya.DeviceID, cfg.Tuya.HomeID, cfg.Timezone, loc, log)
	historySvc := service.NewHistoryService(api, cfg.Tuya.DeviceID, loc, log)

	watcher := poller.New(deviceSvc, cfg.Poll.Interval, log)
	if err := watcher.Start(); err != nil {
		log.Fatal().Err(err).Msg("start status poller")
	}
	defer watcher.Stop()

	srv := server.New(cfg, deviceSvc, scheduleSvc, historySvc, authSvc, watcher, log)

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("heater-cloud-proxy listening")
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// graceful shutdown
	waitForSignal()
	log.Info().Msg("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
