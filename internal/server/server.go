// Package server provides the autocue web interface: it serves the
// teleprompter page, pushes tracking positions to connected clients over
// WebSocket, and accepts script and settings changes from the UI.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	_ "embed"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuin/goldmark"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"github.com/EdNutting/autocue/internal/config"
	"github.com/EdNutting/autocue/internal/health"
	"github.com/EdNutting/autocue/internal/observe"
)

//go:embed index.html
var indexHTML []byte

// Control is the subset of the tracking worker driven from the web UI.
type Control interface {
	Reset() bool
	JumpTo(wordIndex int) bool
	SetDisplayWindow(past, future int) bool
}

// Server owns the HTTP listener, the WebSocket client set, and the current
// script and display settings.
type Server struct {
	addr       string
	tls        *config.TLSConfig
	control    Control
	onScript   func(text string)
	configPath string

	markdown goldmark.Markdown

	mu         sync.Mutex
	scriptText string
	scriptHTML string
	settings   config.DisplayConfig
	clients    map[*client]struct{}

	httpSrv *http.Server

	log     *slog.Logger
	metrics *observe.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithTLS enables HTTPS with the given certificate paths.
func WithTLS(tls *config.TLSConfig) Option {
	return func(s *Server) { s.tls = tls }
}

// WithScriptHandler sets the callback invoked when a client uploads a new
// script. The server has already stored and broadcast the text when the
// callback runs.
func WithScriptHandler(fn func(text string)) Option {
	return func(s *Server) { s.onScript = fn }
}

// WithConfigPath sets the config file used by the save-config operations.
func WithConfigPath(path string) Option {
	return func(s *Server) { s.configPath = path }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics sets the metrics collaborator.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a server pushing to clients at addr. The control hooks the
// UI's reset and jump actions into the tracking worker; it may be nil in
// display-only deployments.
func New(addr string, control Control, settings config.DisplayConfig, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		control:  control,
		settings: settings,
		clients:  make(map[*client]struct{}),
		log:      slog.Default(),
		metrics:  observe.DefaultMetrics(),
		// Hard wraps mirror how presenters lay out scripts: every source
		// line is a prompter line.
		markdown: goldmark.New(goldmark.WithRendererOptions(ghtml.WithHardWraps())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server's HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /script", s.handleGetScript)
	mux.HandleFunc("POST /script", s.handleScriptUpload)
	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("POST /settings", s.handleSettings)
	mux.HandleFunc("POST /save-config", s.handleSaveConfig)
	mux.Handle("GET /metrics", promhttp.Handler())

	health.New(health.Checker{
		Name: "script",
		Check: func(context.Context) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.scriptText == "" {
				return errors.New("no script loaded")
			}
			return nil
		},
	}).Register(mux)

	return observe.Middleware(s.metrics)(mux)
}

// Run serves HTTP until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.tls != nil {
			err = s.httpSrv.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info("web server running", "addr", s.addr, "tls", s.tls != nil)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen on %s: %w", s.addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.closeClients()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// SetScript replaces the current script and broadcasts it to all clients.
func (s *Server) SetScript(text string) {
	html := s.renderMarkdown(text)

	s.mu.Lock()
	s.scriptText = text
	s.scriptHTML = html
	s.mu.Unlock()

	s.broadcast(scriptMessage{Type: "script_updated", Script: text, ScriptHTML: html})
}

// UpdateSettings replaces the display settings and broadcasts the change,
// e.g. after a config file reload.
func (s *Server) UpdateSettings(settings config.DisplayConfig) {
	s.applySettings(settings)
}

// Settings returns the current display settings.
func (s *Server) Settings() config.DisplayConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Server) renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		s.log.Warn("markdown render failed, serving plain text", "err", err)
		return text
	}
	return buf.String()
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleGetScript(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	body := scriptMessage{Script: s.scriptText, ScriptHTML: s.scriptHTML}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleScriptUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: err.Error()})
		return
	}

	s.SetScript(req.Text)
	if s.onScript != nil {
		s.onScript(req.Text)
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Settings())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: err.Error()})
		return
	}

	settings, err := s.mergeSettings(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: err.Error()})
		return
	}

	s.applySettings(settings)
	writeJSON(w, http.StatusOK, struct {
		Status   string               `json:"status"`
		Settings config.DisplayConfig `json:"settings"`
	}{Status: "ok", Settings: settings})
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, _ *http.Request) {
	if err := s.saveSettings(); err != nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Message: "Settings saved"})
}

// mergeSettings decodes a partial settings object over the current values,
// so clients can send only the fields they change.
func (s *Server) mergeSettings(raw []byte) (config.DisplayConfig, error) {
	merged := s.Settings()
	if err := json.Unmarshal(raw, &merged); err != nil {
		return merged, fmt.Errorf("decode settings: %w", err)
	}
	return merged, nil
}

// applySettings stores new display settings, forwards the window to the
// tracking worker, and broadcasts the change.
func (s *Server) applySettings(settings config.DisplayConfig) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	if s.control != nil {
		s.control.SetDisplayWindow(settings.PastLines, settings.FutureLines)
	}
	s.broadcast(settingsMessage{Type: "settings_updated", Settings: settings})
}

// saveSettings persists the current display settings into the config file,
// preserving the file's other sections.
func (s *Server) saveSettings() error {
	if s.configPath == "" {
		return errors.New("no config path configured")
	}
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	cfg.Display = s.Settings()
	return config.Save(cfg, s.configPath)
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
