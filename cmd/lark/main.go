// Lark is a voice assistant server.
//
// It accepts WebSocket connections carrying text or recorded audio,
// relays utterances to an OpenAI-compatible chat backend with a fixed
// tool catalogue (reminders, messages, music lookup, time and date),
// and streams responses back as text and synthesized audio. Each
// connection also runs a reminder scanner that fires due reminders
// into the same stream.
//
// Usage:
//
//	lark serve               Start the server
//	lark version             Print version and build information
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/lark-ai/lark/internal/buildinfo"
	"github.com/lark-ai/lark/internal/config"
	"github.com/lark-ai/lark/internal/events"
	"github.com/lark-ai/lark/internal/llm"
	"github.com/lark-ai/lark/internal/mqtt"
	"github.com/lark-ai/lark/internal/notes"
	"github.com/lark-ai/lark/internal/orchestrator"
	"github.com/lark-ai/lark/internal/reminders"
	"github.com/lark-ai/lark/internal/server"
	"github.com/lark-ai/lark/internal/speech"
	"github.com/lark-ai/lark/internal/tools"
)

// main constructs the OS-level environment and delegates to run, which
// keeps os.Exit and os.Args out of the application logic so the full
// lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	// Parse arguments by hand: the flag package's package-level state
	// interferes with parallel tests, and the surface here is tiny.
	var configPath string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		}
	}

	switch command {
	case "version":
		return json.NewEncoder(stdout).Encode(buildinfo.Info())
	case "", "serve":
		return serve(ctx, stdout, configPath)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", command)
		return printUsage(stderr)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "usage: lark [-config path] <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  serve     Start the server (default)")
	fmt.Fprintln(w, "  version   Print version and build information")
	return nil
}

func serve(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	slog.SetDefault(logger)

	logger.Info("starting", "build", buildinfo.String())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared stores: one reminder store and one note log for the whole
	// process, visible to every session's tool dispatches.
	remStore := reminders.NewStore()

	noteLog, err := notes.NewStore(cfg.NotesDB)
	if err != nil {
		return fmt.Errorf("open note log: %w", err)
	}
	defer noteLog.Close()

	bus := events.New()

	registry := tools.NewRegistry(remStore, noteLog, logger)

	chatClient := llm.NewOpenAIClient(
		cfg.Provider.BaseURL, cfg.Provider.APIKey,
		cfg.Provider.ChatModel, cfg.Provider.Temperature,
		logger,
	)
	audio := speech.NewOpenAIAudio(
		cfg.Provider.BaseURL, cfg.Provider.APIKey,
		cfg.Speech.TranscribeModel, cfg.Speech.SpeechModel, cfg.Speech.Voice,
		logger,
	)

	orch := orchestrator.New(chatClient, registry, cfg.ProviderTimeout(), bus, logger)

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}

	srv := server.New(server.Config{
		Address:       net.JoinHostPort(cfg.Listen.Address, strconv.Itoa(cfg.Listen.Port)),
		SystemPrompt:  systemPrompt,
		MaxHistory:    cfg.History.MaxMessages,
		PollInterval:  cfg.PollInterval(),
		SpeechTimeout: cfg.SpeechTimeout(),
	}, orch, audio, audio, remStore, noteLog, bus, logger)

	if cfg.MQTT.Enabled {
		pub := mqtt.New(cfg.MQTT, bus, logger)
		go func() {
			if err := pub.Run(ctx); err != nil {
				logger.Error("mqtt publisher stopped", "error", err)
			}
		}()
	}

	return srv.Start(ctx)
}

// loadConfig resolves and loads the YAML config. Running without any
// config file is allowed; defaults assume a Groq-style endpoint with
// the API key in the environment.
func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, err
		}
		cfg := config.Default()
		cfg.Provider.APIKey = os.Getenv("GROQ_API_KEY")
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
