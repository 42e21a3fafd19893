// Command argus is the main entry point for the Argus assistant server.
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

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/argusworks/argus/internal/app"
	"github.com/argusworks/argus/internal/config"
	"github.com/argusworks/argus/internal/observe"
	"github.com/argusworks/argus/pkg/provider/llm"
	"github.com/argusworks/argus/pkg/provider/llm/anyllm"
	oaillm "github.com/argusworks/argus/pkg/provider/llm/openai"
	"github.com/argusworks/argus/pkg/provider/recognizer"
	"github.com/argusworks/argus/pkg/provider/recognizer/kaldi"
	"github.com/argusworks/argus/pkg/provider/transcribe"
	"github.com/argusworks/argus/pkg/provider/transcribe/whisper"
	"github.com/argusworks/argus/pkg/provider/tts"
	"github.com/argusworks/argus/pkg/provider/tts/elevenlabs"
	"github.com/argusworks/argus/pkg/provider/tts/googletts"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Configuration (watched for hot reload) ────────────────────────────────
	levelVar := new(slog.LevelVar)
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyConfigChange(levelVar, old, new)
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "argus: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "argus: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar.Set(logLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("argus starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceName: "argus",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStartupSummary(cfg)

	application, err := app.New(cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

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

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyllmProviders are the text-only LLM backends served through the any-llm
// adapter. "openai" is not in the list: it gets the native SDK client, which
// supports vision and is required for the image analysis modes.
var anyllmProviders = []string{
	"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range anyllmProviders {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────
	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (transcribe.Provider, error) {
		var opts []whisper.Option
		if entry.BaseURL != "" {
			opts = append(opts, whisper.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang, ok := entry.StringOption("language"); ok {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.APIKey, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────
	reg.RegisterTTS("google", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []googletts.Option
		if entry.BaseURL != "" {
			opts = append(opts, googletts.WithBaseURL(entry.BaseURL))
		}
		if lang, ok := entry.StringOption("language"); ok {
			opts = append(opts, googletts.WithLanguage(lang))
		}
		if voice, ok := entry.StringOption("voice"); ok {
			opts = append(opts, googletts.WithVoice(voice))
		}
		return googletts.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voice, ok := entry.StringOption("voice"); ok {
			opts = append(opts, elevenlabs.WithVoiceID(voice))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	// ── Recognizer ────────────────────────────────────────────────────────────
	reg.RegisterRecognizer("kaldi", func(entry config.ProviderEntry) (recognizer.Engine, error) {
		return kaldi.New(entry.BaseURL)
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to
// consume. Every stage is on the critical path, so a missing factory is an
// error here, not a degraded mode.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	var err error

	if ps.LLM, err = reg.CreateLLM(cfg.Providers.LLM); err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)

	if ps.STT, err = reg.CreateSTT(cfg.Providers.STT); err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	if ps.TTS, err = reg.CreateTTS(cfg.Providers.TTS); err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)

	if ps.Recognizer, err = reg.CreateRecognizer(cfg.Providers.Recognizer); err != nil {
		return nil, fmt.Errorf("create recognizer %q: %w", cfg.Providers.Recognizer.Name, err)
	}
	slog.Info("provider created", "kind", "recognizer", "name", cfg.Providers.Recognizer.Name)

	return ps, nil
}

// ── Hot reload ────────────────────────────────────────────────────────────────

// applyConfigChange applies the hot-reloadable parts of a config change and
// warns about the rest. Providers and devices are built once at startup.
func applyConfigChange(levelVar *slog.LevelVar, old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged {
		levelVar.Set(logLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.EndpointingChanged || d.RestartRequired {
		slog.Warn("config change requires a restart to take effect")
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Argus startup summary        ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Recognizer", cfg.Providers.Recognizer.Name, "")
	fmt.Printf("║  Sound dir    : %-22s ║\n", trim(cfg.Sounds.Dir, 22))
	fmt.Printf("║  Listen addr  : %-22s ║\n", trim(cfg.Server.ListenAddr, 22))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	fmt.Printf("║  %-12s : %-22s ║\n", kind, trim(value, 22))
}

func trim(s string, max int) string {
	if len(s) > max {
		return s[:max-1] + "…"
	}
	return s
}

// ── Logger ────────────────────────────────────────────────────────────────────

func logLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
