package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/heater-labs/heater-cloud-proxy/internal/config"
	"github.com/heater-labs/heater-cloud-proxy/internal/model"
	"github.com/heater-labs/heater-cloud-proxy/internal/poller"
	"github.com/heater-labs/heater-cloud-proxy/internal/schedule"
	"github.com/heater-labs/heater-cloud-proxy/internal/service"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Server wires HTTP handlers.
type Server struct {
	app         *fiber.App
	deviceSvc   *service.DeviceService
	scheduleSvc *service.ScheduleService
	historySvc  *service.HistoryService
	authSvc     *service.AuthService
	watcher     *poller.Poller
	cfg         *config.Config
	log         zerolog.Logger
}

// New builds a server instance.
func New(cfg *config.Config, deviceSvc *service.DeviceService, scheduleSvc *service.ScheduleService, historySvc *service.HistoryService, authSvc *service.AuthService, watcher *poller.Poller, log zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		IdleTimeout:  cfg.HTTP.ReadTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		AppName:      "heater-cloud-proxy",
	})
	s := &Server{
		app:         app,
		deviceSvc:   deviceSvc,
		scheduleSvc: scheduleSvc,
		historySvc:  historySvc,
		authSvc:     authSvc,
		watcher:     watcher,
		cfg:         cfg,
		log:         log,
	}
	s.registerRoutes()
	return s
}

// Start listens and serves HTTP traffic.
func (s *Server) Start() error {
	return s.app.Listen(s.cfg.HTTP.Addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealth)

	s.app.Post("/auth/login", s.handleLogin)
	s.app.Get("/auth/profile", s.handleProfile)

	// SSE stream registered before the JSON routes
	s.app.Get("/api/events", s.handleEvents)

	api := s.app.Group("/api", s.requireAuth)
	api.Get("/status", s.handleStatus)
	api.Post("/toggle", s.handleToggle)
	api.Post("/countdown", s.handleCountdown)
	api.Get("/history", s.handleHistory)

	api.Get("/schedules", s.handleScheduleList)
	api.Post("/schedules", s.handleScheduleCreate)
	api.Put("/schedules/:id", s.handleScheduleUpdate)
	api.Delete("/schedules/:id", s.handleScheduleDelete)
	api.Put("/schedules/:id/enable", s.handleScheduleEnable)
	api.Put("/schedules/:id/disable", s.handleScheduleDisable)

	s.serveFrontend()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()
	status, err := s.deviceSvc.Status(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("GET /api/status")
		return s.fail(c, http.StatusBadGateway, err.Error())
	}
	return c.JSON(status)
}

func (s *Server) handleToggle(c *fiber.Ctx) error {
	var req struct {
		Action string `json:"action"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Action != "on" && req.Action != "off" {
		return s.fail(c, http.StatusBadRequest, `action must be "on" or "off"`)
	}
	on := req.Action == "on"

	ctx, cancel := requestContext()
	defer cancel()
	if err := s.deviceSvc.SetSwitch(ctx, on); err != nil {
		s.log.Error().Err(err).Msg("POST /api/toggle")
		return s.fail(c, http.StatusBadGateway, err.Error())
	}
	s.watcher.NotifyStatusChange()
	return c.JSON(fiber.Map{"success": true, "isOn": on})
}

func (s *Server) handleCountdown(c *fiber.Ctx) error {
	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := requestContext()
	defer cancel()
	seconds, err := s.deviceSvc.StartCountdown(ctx, req.Minutes)
	if err != nil {
		return s.serviceError(c, "POST /api/countdown", err)
	}
	s.watcher.NotifyStatusChange()
	return c.JSON(fiber.Map{"success": true, "countdownSeconds": seconds})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()
	hist, err := s.historySvc.TodayRuns(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("GET /api/history")
		return s.fail(c, http.StatusBadGateway, err.Error())
	}
	return c.JSON(hist)
}

func (s *Server) handleScheduleList(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()
	entries, err := s.scheduleSvc.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("GET /api/schedules")
		return s.fail(c, http.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"schedules": entries})
}

func (s *Server) handleScheduleCreate(c *fiber.Ctx) error {
	req, err := parseScheduleRequest(c)
	if err != nil {
		return s.fail(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := requestContext()
	defer cancel()
	id, err := s.scheduleSvc.Create(ctx, req)
	if err != nil {
		return s.serviceError(c, "POST /api/schedules", err)
	}
	s.watcher.NotifySchedulesChanged()
	return c.JSON(fiber.Map{"success": true, "id": id})
}

func (s *Server) handleScheduleUpdate(c *fiber.Ctx) error {
	req, err := parseScheduleRequest(c)
	if err != nil {
		return s.fail(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := requestContext()
	defer cancel()
	if err := s.scheduleSvc.Update(ctx, schedule.GroupID(c.Params("id")), req); err != nil {
		return s.serviceError(c, "PUT /api/schedules/:id", err)
	}
	s.watcher.NotifySchedulesChanged()
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleScheduleDelete(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()
	if err := s.scheduleSvc.Delete(ctx, schedule.GroupID(c.Params("id"))); err != nil {
		return s.serviceError(c, "DELETE /api/schedules/:id", err)
	}
	s.watcher.NotifySchedulesChanged()
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleScheduleEnable(c *fiber.Ctx) error {
	return s.handleScheduleSetEnabled(c, true)
}

func (s *Server) handleScheduleDisable(c *fiber.Ctx) error {
	return s.handleScheduleSetEnabled(c, false)
}

func (s *Server) handleScheduleSetEnabled(c *fiber.Ctx, enabled bool) error {
	ctx, cancel := requestContext()
	defer cancel()
	if err := s.scheduleSvc.SetEnabled(ctx, schedule.GroupID(c.Params("id")), enabled); err != nil {
		return s.serviceError(c, "PUT /api/schedules/:id/enable", err)
	}
	s.watcher.NotifySchedulesChanged()
	return c.JSON(fiber.Map{"success": true})
}

// handleEvents streams status and schedules-changed events over SSE. The
// first message is always the cached status so a reconnecting client
// renders immediately.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	sub := s.watcher.Subscribe()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer s.watcher.Unsubscribe(sub)

		if err := writeSSE(w, "status", s.watcher.Last()); err != nil {
			return
		}
		keepalive := time.NewTicker(30 * time.Second)
		defer keepalive.Stop()
		for {
			select {
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := writeSSE(w, ev.Name, ev.Data); err != nil {
					return
				}
			case <-keepalive.C:
				// comment line doubles as a dead-connection probe
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeSSE(w *bufio.Writer, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("event: " + event + "\ndata: " + string(payload) + "\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, http.StatusBadRequest, "invalid request body")
	}
	if s.authSvc == nil || !s.authSvc.Enabled() {
		return c.JSON(fiber.Map{"token": "", "enabled": false, "username": "guest"})
	}
	token, err := s.authSvc.Authenticate(req.Username, req.Password)
	if err != nil {
		return s.fail(c, http.StatusUnauthorized, err.Error())
	}
	return c.JSON(fiber.Map{"token": token, "enabled": true, "username": s.authSvc.Username()})
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	if s.authSvc == nil || !s.authSvc.Enabled() {
		return c.JSON(fiber.Map{"enabled": false, "username": "guest"})
	}
	token := extractBearerToken(c.Get("Authorization"))
	if token == "" {
		return s.fail(c, http.StatusUnauthorized, "not logged in")
	}
	claims, err := s.authSvc.Validate(token)
	if err != nil {
		return s.fail(c, http.StatusUnauthorized, "session expired")
	}
	return c.JSON(fiber.Map{"enabled": true, "username": claims.Username})
}

// serviceError maps a service failure to 400 for rejected input and 502
// for anything that reached (or failed to reach) the platform.
func (s *Server) serviceError(c *fiber.Ctx, route string, err error) error {
	if errors.Is(err, service.ErrInvalidInput) {
		return s.fail(c, http.StatusBadRequest, err.Error())
	}
	s.log.Error().Err(err).Msg(route)
	return s.fail(c, http.StatusBadGateway, err.Error())
}

func (s *Server) fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (s *Server) serveFrontend() {
	dir := strings.TrimSpace(s.cfg.Frontend.Dir)
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return
	}
	s.app.Static("/", dir, fiber.Static{
		Index:    "index.html",
		Compress: true,
	})
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	if s.authSvc == nil || !s.authSvc.Enabled() {
		return c.Next()
	}
	token := extractBearerToken(c.Get("Authorization"))
	if token == "" {
		return s.fail(c, http.StatusUnauthorized, "not logged in")
	}
	claims, err := s.authSvc.Validate(token)
	if err != nil {
		return s.fail(c, http.StatusUnauthorized, "session expired")
	}
	c.Locals("username", claims.Username)
	return c.Next()
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseScheduleRequest(c *fiber.Ctx) (model.ScheduleRequest, error) {
	var req model.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return req, errors.New("invalid request body")
	}
	if req.StartTime == "" || req.EndTime == "" {
		return req, errors.New("startTime and endTime required (HH:MM)")
	}
	return req, nil
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
