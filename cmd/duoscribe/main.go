package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/scribelab/duoscribe/internal/audio"
	"github.com/scribelab/duoscribe/internal/config"
	"github.com/scribelab/duoscribe/internal/hotkey"
	"github.com/scribelab/duoscribe/internal/inject"
	"github.com/scribelab/duoscribe/internal/models"
	"github.com/scribelab/duoscribe/internal/permission"
	"github.com/scribelab/duoscribe/internal/pipeline"
	"github.com/scribelab/duoscribe/internal/store"
	"github.com/scribelab/duoscribe/internal/transcribe"
	"github.com/scribelab/duoscribe/internal/ui"
)

const (
	partialInterval  = 2 * time.Second
	volatileInterval = 1500 * time.Millisecond
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/duoscribe/config.yaml)")
	initConfig := flag.Bool("init-config", false, "write a default config file and exit")
	download := flag.Bool("download", false, "download the model for the configured locale and exit")
	headless := flag.Bool("headless", false, "run without the TUI, driven by hotkeys")
	wavPath := flag.String("wav", "", "transcribe a WAV file instead of the microphone")
	pipelineFlag := flag.String("pipeline", "", "pipeline to start with: legacy or stream (overrides config)")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fatalf("writing default config: %v", err)
		}
		if path == "" {
			fmt.Println("Config file already exists, leaving it alone")
		} else {
			fmt.Printf("Wrote default config to %s\n", path)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatalf("config: %v", err)
	}
	if *pipelineFlag != "" {
		cfg.Pipeline.Selected = *pipelineFlag
	}
	if err := cfg.Validate(); err != nil {
		fatalf("config validation: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	catalog := models.NewCatalog(cfg.Engine.ModelsDir)
	catalog.Progress = os.Stderr

	if *download {
		if err := catalog.Install(context.Background(), cfg.Engine.Locale); err != nil {
			fatalf("model download: %v", err)
		}
		fmt.Printf("Model for %s ready at %s\n", cfg.Engine.Locale, catalog.Path(cfg.Engine.Locale))
		return
	}

	if !catalog.Supported(cfg.Engine.Locale) {
		fatalf("locale %q is not supported", cfg.Engine.Locale)
	}
	if !catalog.Installed(cfg.Engine.Locale) {
		logger.Info("model missing, downloading", "locale", cfg.Engine.Locale)
		if err := catalog.Install(context.Background(), cfg.Engine.Locale); err != nil {
			fatalf("model download: %v\n\nRun with -download to retry.", err)
		}
	}

	logger.Info("loading whisper model", "path", catalog.Path(cfg.Engine.Locale))
	modelStart := time.Now()
	decoder, err := transcribe.NewWhisperDecoder(catalog.Path(cfg.Engine.Locale))
	if err != nil {
		fatalf("loading whisper model: %v", err)
	}
	defer decoder.Close()
	logger.Info("model loaded", "elapsed", time.Since(modelStart).Round(time.Millisecond))

	session := audio.NewSession()
	defer session.Release()

	var source audio.Source
	if *wavPath != "" {
		fileSrc, err := audio.NewFileSource(*wavPath, cfg.Audio.ChunkFrames)
		if err != nil {
			fatalf("opening %s: %v", *wavPath, err)
		}
		source = fileSrc
	} else {
		source = audio.NewCapturer(session, audio.Format{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
		}, cfg.Audio.ChunkFrames)
	}

	authority := permission.Static{
		Microphone:  cfg.Permissions.Microphone,
		Recognition: cfg.Permissions.Recognition,
	}

	var history pipeline.History
	if cfg.Store.Enabled {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			logger.Warn("history store unavailable, continuing without", "error", err)
		} else {
			defer db.Close()
			history = db
		}
	}

	// The managers publish through the controller's relay; the closure
	// breaks the construction cycle between them.
	var ctrl *pipeline.Controller
	notify := func(ev pipeline.Event) { ctrl.Relay()(ev) }

	legacyMgr := pipeline.NewLegacyManager(pipeline.LegacyConfig{
		Session:    session,
		Source:     source,
		Recognizer: transcribe.NewLegacyRecognizer(decoder, partialInterval),
		Authority:  authority,
		Locale:     cfg.Engine.Locale,
		Logger:     logger,
		Notify:     notify,
	})
	streamMgr := pipeline.NewStreamManager(pipeline.StreamConfig{
		Session: session,
		Source:  source,
		NewEngine: func() transcribe.StreamEngine {
			return transcribe.NewStreamWhisper(decoder, volatileInterval)
		},
		Catalog:             catalog,
		Authority:           authority,
		Locale:              cfg.Engine.Locale,
		AbortOnConvertError: cfg.Pipeline.ConversionFailure == "abort",
		Logger:              logger,
		Notify:              notify,
	})
	ctrl = pipeline.NewController(legacyMgr, streamMgr, history, cfg.Engine.Locale, logger)
	if err := ctrl.Select(pipeline.Kind(cfg.Pipeline.Selected)); err != nil {
		fatalf("selecting pipeline: %v", err)
	}

	if *headless {
		runHeadless(cfg, ctrl, logger)
		return
	}

	prog := tea.NewProgram(ui.New(ctrl), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		fatalf("ui: %v", err)
	}
}

// runHeadless drives the controller from global hotkeys and, when
// enabled, injects the finalized transcript into the focused app.
func runHeadless(cfg *config.Config, ctrl *pipeline.Controller, logger *slog.Logger) {
	var injector *inject.Injector
	if cfg.Inject.Enabled {
		injector = inject.NewInjector(cfg.Inject.Method)
		logger.Info("text injector ready", "method", cfg.Inject.Method)
	}

	listener := hotkey.NewListener(cfg.Hotkey.RecordKeys, cfg.Hotkey.SwitchKeys, cfg.Hotkey.Mode)
	logger.Info("hotkey listener ready",
		"record", strings.Join(cfg.Hotkey.RecordKeys, "+"),
		"switch", strings.Join(cfg.Hotkey.SwitchKeys, "+"),
		"mode", cfg.Hotkey.Mode)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go listener.Start()

	// Drain pipeline events so the relay never backs up; headless mode
	// reads transcripts after Stop instead of rendering them live.
	go func() {
		for range ctrl.Events() {
		}
	}()

	logger.Info("ready", "pipeline", ctrl.Selected())

	ctx := context.Background()
	for {
		select {
		case ev, ok := <-listener.Events():
			if !ok {
				logger.Info("hotkey listener stopped")
				return
			}
			switch ev.Type {
			case hotkey.EventStart:
				if err := ctrl.Start(ctx); err != nil {
					logger.Error("start failed", "error", err)
					continue
				}
				logger.Info("recording", "pipeline", ctrl.Selected())

			case hotkey.EventStop:
				kind := ctrl.Selected()
				if err := ctrl.Stop(ctx); err != nil {
					logger.Error("stop failed", "error", err)
				}
				text := ctrl.LastTranscript(kind)
				if text == "" {
					logger.Info("no speech detected")
					continue
				}
				logger.Info("transcribed", "pipeline", kind, "text", text)
				if injector != nil {
					if err := injector.Inject(text); err != nil {
						logger.Error("text injection failed", "error", err)
					}
				}

			case hotkey.EventSwitch:
				if err := ctrl.Toggle(); err != nil {
					logger.Warn("cannot switch pipeline", "error", err)
					continue
				}
				logger.Info("pipeline switched", "pipeline", ctrl.Selected())
			}

		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			if ctrl.Recording() {
				_ = ctrl.Stop(ctx)
			}
			// Exit directly to avoid gohook's C cleanup crash. The OS
			// reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
