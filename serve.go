package main

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/buffos/go-weave/weave"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// ============================================================
// Metrics
// ============================================================

type serverMetrics struct {
	commands       *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	sessions       prometheus.Gauge
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	return &serverMetrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weave_commands_total",
			Help: "Session commands by action and whether they changed the pattern",
		}, []string{"action", "applied"}),
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weave_renders_total",
			Help: "Rendered patterns by output format",
		}, []string{"format"}),
		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weave_render_duration_seconds",
			Help:    "Time to render a pattern",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"format"}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "weave_sessions_active",
			Help: "Sessions currently held by the server",
		}),
	}
}

// ============================================================
// Session Store
// ============================================================

// liveSession serialises access to one weave session.
type liveSession struct {
	mu   sync.Mutex
	sess *weave.Session
}

type server struct {
	cfg     Config
	logger  *slog.Logger
	metrics *serverMetrics

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// sessionStatus is the JSON view of a session.
type sessionStatus struct {
	ID        string       `json:"id"`
	Size      int          `json:"size"`
	Cursor    int          `json:"cursor"`
	Direction string       `json:"direction"`
	Complete  bool         `json:"complete"`
	Commands  int          `json:"commands"`
	Redo      int          `json:"redo"`
	Cells     []weave.Cell `json:"cells"`
}

func statusOf(id string, sess *weave.Session) sessionStatus {
	st := sess.Snapshot()
	return sessionStatus{
		ID:        id,
		Size:      st.N(),
		Cursor:    st.Cursor(),
		Direction: st.Direction().String(),
		Complete:  st.Complete(),
		Commands:  sess.History().Len(),
		Redo:      sess.History().RedoLen(),
		Cells:     st.Cells(),
	}
}

func (s *server) lookup(c fiber.Ctx) (*liveSession, error) {
	s.mu.RLock()
	ls, ok := s.sessions[c.Params("id")]
	s.mu.RUnlock()
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return ls, nil
}

// newSession builds a session with the configured canvas.
func (s *server) newSession(n int) (*weave.Session, error) {
	opts := append(s.cfg.sessionOptions(n), weave.WithLogger(s.logger))
	return weave.NewSession(n, opts...)
}

// ============================================================
// App
// ============================================================

// newApp wires routes and middleware. The registry collects the server's
// metrics and is served on /metrics.
func newApp(cfg Config, lg *slog.Logger, reg *prometheus.Registry) (*fiber.App, *server) {
	s := &server{
		cfg:      cfg,
		logger:   lg,
		metrics:  newServerMetrics(reg),
		sessions: make(map[string]*liveSession),
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		AppName:      "Weave Service",
		ErrorHandler: jsonErrorHandler,
		// Route params end up as metric label values that outlive the request.
		Immutable: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
		Stream:     log.Writer(),
	}))

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	app.Get("/presets", s.listPresets)
	app.Get("/presets/:name/svg", s.presetSVG)
	app.Post("/render", s.renderLog)

	app.Post("/sessions", s.createSession)
	app.Get("/sessions/:id", s.getSession)
	app.Delete("/sessions/:id", s.deleteSession)
	app.Get("/sessions/:id/svg", s.sessionSVG)
	app.Get("/sessions/:id/log", s.sessionLog)
	app.Post("/sessions/:id/load", s.loadSession)
	app.Post("/sessions/:id/resize", s.resizeSession)
	app.Post("/sessions/:id/:action", s.sessionAction)

	return app, s
}

func jsonErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// ============================================================
// Handlers
// ============================================================

func (s *server) listPresets(c fiber.Ctx) error {
	type preset struct {
		Name     string `json:"name"`
		Commands int    `json:"commands"`
	}
	out := []preset{}
	for _, name := range listPresets() {
		records, err := loadPreset(name)
		if err != nil {
			return err
		}
		out = append(out, preset{Name: name, Commands: len(records)})
	}
	return c.JSON(out)
}

func (s *server) presetSVG(c fiber.Ctx) error {
	records, err := loadPreset(c.Params("name"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return s.renderRecords(c, records, formatSVG)
}

// renderLog renders the command log in the request body.
func (s *server) renderLog(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "body required")
	}
	format, ok := parseFormat(strings.ToLower(c.Query("format", "svg")))
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unsupported format '%s'", c.Query("format")))
	}
	records, err := weave.DecodeTransport(string(c.Body()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return s.renderRecords(c, records, format)
}

func (s *server) renderRecords(c fiber.Ctx, records []weave.Record, format outputFormat) error {
	sess, err := s.newSession(s.cfg.Threads.GridSize)
	if err != nil {
		return err
	}
	if _, err := sess.Load(records); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	sess.ApplyAll()
	return s.send(c, sess, format)
}

// send renders sess into the response.
func (s *server) send(c fiber.Ctx, sess *weave.Session, format outputFormat) error {
	start := time.Now()
	var buf bytes.Buffer
	opts := imageOptions{Engine: c.Query("engine", engineNative), Scale: 1}
	if err := renderTo(c.Context(), s.cfg, sess, format, opts, &buf); err != nil {
		return err
	}
	s.metrics.renders.WithLabelValues(string(format)).Inc()
	s.metrics.renderDuration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())

	c.Set("Content-Type", format.contentType())
	return c.Send(buf.Bytes())
}

func (s *server) createSession(c fiber.Ctx) error {
	n := s.cfg.Threads.GridSize
	if q := c.Query("size"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "size must be an integer")
		}
		n = v
	}
	sess, err := s.newSession(n)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &liveSession{sess: sess}
	s.mu.Unlock()
	s.metrics.sessions.Inc()
	s.logger.Info("session created", slog.String("id", id), slog.Int("grid", n))

	return c.Status(fiber.StatusCreated).JSON(statusOf(id, sess))
}

func (s *server) getSession(c fiber.Ctx) error {
	ls, err := s.lookup(c)
	if err != nil {
		return err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return c.JSON(statusOf(c.Params("id"), ls.sess))
}

func (s *server) deleteSession(c fiber.Ctx) error {
	id := c.Params("id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	s.metrics.sessions.Dec()
	return c.SendStatus(fiber.StatusNoContent)
}

// sessionAction applies raise, lower, undo, redo or reset.
func (s *server) sessionAction(c fiber.Ctx) error {
	ls, err := s.lookup(c)
	if err != nil {
		return err
	}
	action := strings.Clone(c.Params("action"))

	ls.mu.Lock()
	defer ls.mu.Unlock()
	var applied bool
	switch action {
	case "raise":
		applied = ls.sess.Raise()
	case "lower":
		applied = ls.sess.Lower()
	case "undo":
		applied = ls.sess.Undo()
	case "redo":
		applied = ls.sess.Redo()
	case "reset":
		ls.sess.Reset()
		ls.sess.History().Clear()
		applied = true
	default:
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unknown action '%s'", action))
	}
	s.metrics.commands.WithLabelValues(action, strconv.FormatBool(applied)).Inc()
	return c.JSON(statusOf(c.Params("id"), ls.sess))
}

func (s *server) resizeSession(c fiber.Ctx) error {
	ls, err := s.lookup(c)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(c.Query("size"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "size must be an integer")
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if err := ls.sess.Resize(n); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(statusOf(c.Params("id"), ls.sess))
}

func (s *server) sessionSVG(c fiber.Ctx) error {
	ls, err := s.lookup(c)
	if err != nil {
		return err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return s.send(c, ls.sess, formatSVG)
}

// sessionLog returns the command log as JSON, or base64 with ?encoding=base64.
func (s *server) sessionLog(c fiber.Ctx) error {
	ls, err := s.lookup(c)
	if err != nil {
		return err
	}
	ls.mu.Lock()
	records := weave.Serialize(ls.sess.History().Commands())
	ls.mu.Unlock()

	if c.Query("encoding") == "base64" {
		payload, err := weave.EncodeTransport(records)
		if err != nil {
			return err
		}
		c.Set("Content-Type", "text/plain; charset=utf-8")
		return c.SendString(payload)
	}
	return c.JSON(records)
}

// loadSession installs the body's command log and applies it.
func (s *server) loadSession(c fiber.Ctx) error {
	ls, err := s.lookup(c)
	if err != nil {
		return err
	}
	records, err := weave.DecodeTransport(string(c.Body()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if _, err := ls.sess.Load(records); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	ls.sess.ApplyAll()
	return c.JSON(statusOf(c.Params("id"), ls.sess))
}

// ============================================================
// Command
// ============================================================

func newServeCmd(c *cli) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve patterns and live weaving sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				c.cfg.Server.Port = port
			}
			app, _ := newApp(c.cfg, c.logger, prometheus.NewRegistry())

			ctx := cmd.Context()
			go func() {
				<-ctx.Done()
				log.Println("Shutting down Weave Service")
				if err := app.Shutdown(); err != nil {
					log.Printf("Shutdown error: %v", err)
				}
			}()

			addr := fmt.Sprintf(":%s", c.cfg.Server.Port)
			log.Printf("Starting Weave Service on %s", addr)
			return app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default: server.port or $PORT)")
	return cmd
}
