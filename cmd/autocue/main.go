// Command autocue runs the speech-tracking teleprompter server.
//
// It loads a configuration file, builds the configured speech recognition
// provider, and serves the prompter display over HTTP/WebSocket. With
// -replay it instead feeds a recorded transcript through the tracking
// engine and prints a step-by-step report, which is the fastest way to
// diagnose tracking behaviour without a microphone.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EdNutting/autocue/internal/app"
	"github.com/EdNutting/autocue/internal/config"
	"github.com/EdNutting/autocue/internal/observe"
	"github.com/EdNutting/autocue/internal/replay"
	"github.com/EdNutting/autocue/internal/track"
	"github.com/EdNutting/autocue/pkg/provider/asr"
	asrmock "github.com/EdNutting/autocue/pkg/provider/asr/mock"
	"github.com/EdNutting/autocue/pkg/provider/asr/vosk"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", config.DefaultConfigFilename, "path to the YAML configuration file")
	scriptPath := flag.String("script", "", "path to the script file to load at startup (markdown or plain text)")
	addr := flag.String("addr", "", "listen address override (host:port)")
	recordDir := flag.String("record-dir", "", "directory for transcript session logs (empty disables recording)")
	replayPath := flag.String("replay", "", "replay a recorded transcript against the script and exit")
	wordByWord := flag.Bool("word-by-word", false, "with -replay, feed each line word by word as partial results")
	verbose := flag.Bool("verbose", false, "with -replay, print every engine step")
	listModels := flag.Bool("list-models", false, "list the configured provider's models and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	// A missing config file is fine; Load falls back to defaults so the
	// server works out of the box.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "autocue: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level var is shared with the app so config hot reloads can change
	// verbosity without restarting.
	levelVar := new(slog.LevelVar)
	levelVar.Set(cfg.Server.LogLevel.Level())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	// ── Replay mode ───────────────────────────────────────────────────────────
	if *replayPath != "" {
		return runReplay(cfg, *scriptPath, *replayPath, *wordByWord, *verbose)
	}

	slog.Info("autocue starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "autocue",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	provider, err := buildProvider(cfg, reg)
	if err != nil {
		slog.Error("failed to build recognition provider", "err", err)
		return 1
	}

	if *listModels {
		return runListModels(provider)
	}

	// ── Script ────────────────────────────────────────────────────────────────
	var scriptText string
	if *scriptPath != "" {
		data, err := os.ReadFile(*scriptPath)
		if err != nil {
			slog.Error("failed to read script", "path", *scriptPath, "err", err)
			return 1
		}
		scriptText = string(data)
	}

	// ── Application ───────────────────────────────────────────────────────────
	printStartupSummary(cfg, *scriptPath, provider != nil)

	opts := []app.Option{
		app.WithConfigPath(*configPath),
		app.WithLogLevelVar(levelVar),
	}
	if provider != nil {
		opts = append(opts, app.WithProvider(provider))
	}
	if scriptText != "" {
		opts = append(opts, app.WithScript(scriptText))
	}
	if *recordDir != "" {
		opts = append(opts, app.WithTranscriptDir(*recordDir))
	}

	application, err := app.New(cfg, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the recognition backends that ship with
// autocue into reg. "sherpa" is accepted in configuration but has no factory
// yet, so selecting it falls back to display-only mode.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterASR("vosk", func(entry config.ASRConfig) (asr.Provider, error) {
		var opts []vosk.Option
		if entry.Model != "" {
			opts = append(opts, vosk.WithModel(entry.Model))
		}
		if entry.SampleRate > 0 {
			opts = append(opts, vosk.WithSampleRate(entry.SampleRate))
		}
		return vosk.New(entry.Endpoint, opts...), nil
	})

	// mock emits nothing; it exists so the full pipeline can be exercised
	// without a recognition server.
	reg.RegisterASR("mock", func(entry config.ASRConfig) (asr.Provider, error) {
		return &asrmock.Provider{}, nil
	})

	for _, name := range reg.ASRNames() {
		slog.Debug("registered provider", "kind", "asr", "name", name)
	}
}

// buildProvider instantiates the configured recognition provider. A nil
// provider with a nil error means no provider is configured (or the named
// one is not implemented yet) and the server runs display-only.
func buildProvider(cfg *config.Config, reg *config.Registry) (asr.Provider, error) {
	name := cfg.ASR.Provider
	if name == "" {
		return nil, nil
	}

	p, err := reg.CreateASR(cfg.ASR)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Debug("provider not yet implemented — skipping", "kind", "asr", "name", name)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create asr provider %q: %w", name, err)
	}
	slog.Info("provider created", "kind", "asr", "name", name)
	return p, nil
}

func runListModels(provider asr.Provider) int {
	if provider == nil {
		fmt.Fprintln(os.Stderr, "autocue: no recognition provider configured")
		return 1
	}
	models := provider.Models()
	if len(models) == 0 {
		fmt.Println("no models available")
		return 0
	}
	for _, m := range models {
		state := "available"
		if m.Downloaded {
			state = "downloaded"
		}
		fmt.Printf("%-32s %-12s %6d MB  %s\n", m.ID, m.Provider, m.SizeMB, state)
	}
	return 0
}

// ── Replay mode ───────────────────────────────────────────────────────────────

func runReplay(cfg *config.Config, scriptPath, transcriptPath string, wordByWord, verbose bool) int {
	if scriptPath == "" {
		fmt.Fprintln(os.Stderr, "autocue: -replay requires -script")
		return 1
	}

	scriptData, err := os.ReadFile(scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "autocue: %v\n", err)
		return 1
	}

	f, err := os.Open(transcriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "autocue: %v\n", err)
		return 1
	}
	defer f.Close()

	lines, err := replay.LoadTranscript(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "autocue: read transcript: %v\n", err)
		return 1
	}

	opts := []replay.Option{replay.WithOutput(os.Stdout)}
	if verbose {
		opts = append(opts, replay.WithVerbose())
	}
	if wordByWord {
		opts = append(opts, replay.WithWordByWord())
	}

	r := replay.New(string(scriptData), trackingOptions(cfg.Tracking), opts...)
	r.Run(lines)
	return 0
}

// trackingOptions converts the tracking config section into engine options.
func trackingOptions(tc config.TrackingConfig) []track.Option {
	var opts []track.Option
	if tc.WindowSize > 0 {
		opts = append(opts, track.WithWindowSize(tc.WindowSize))
	}
	if tc.MatchThreshold > 0 {
		opts = append(opts, track.WithMatchThreshold(tc.MatchThreshold))
	}
	if tc.BacktrackThreshold > 0 {
		opts = append(opts, track.WithBacktrackThreshold(tc.BacktrackThreshold))
	}
	if tc.MaxJumpDistance > 0 {
		opts = append(opts, track.WithMaxJumpDistance(tc.MaxJumpDistance))
	}
	if tc.MaxSkipDistance > 0 {
		opts = append(opts, track.WithMaxSkipDistance(tc.MaxSkipDistance))
	}
	return opts
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, scriptPath string, hasProvider bool) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         autocue — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	provider := cfg.ASR.Provider
	if provider == "" || !hasProvider {
		provider = "(display only)"
	} else if cfg.ASR.Model != "" {
		provider = provider + " / " + cfg.ASR.Model
	}
	printRow("Recognition", provider)
	printRow("Listen addr", cfg.Server.ListenAddr)
	if cfg.Server.TLS != nil {
		printRow("TLS", "enabled")
	} else {
		printRow("TLS", "(disabled)")
	}
	if scriptPath != "" {
		printRow("Script", scriptPath)
	} else {
		printRow("Script", "(upload via web UI)")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}
