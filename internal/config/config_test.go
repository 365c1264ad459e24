package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen:
  port: 9000
provider:
  chat_model: test-model
  temperature: 0.2
history:
  max_messages: 11
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen.Port != 9000 {
		t.Errorf("port = %d", cfg.Listen.Port)
	}
	if cfg.Provider.ChatModel != "test-model" {
		t.Errorf("chat model = %q", cfg.Provider.ChatModel)
	}
	if cfg.Provider.Temperature != 0.2 {
		t.Errorf("temperature = %v", cfg.Provider.Temperature)
	}
	if cfg.History.MaxMessages != 11 {
		t.Errorf("max messages = %d", cfg.History.MaxMessages)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}

	// Keys the file omits keep their defaults.
	if cfg.Provider.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("base url = %q", cfg.Provider.BaseURL)
	}
	if cfg.Speech.Voice != "alloy" {
		t.Errorf("voice = %q", cfg.Speech.Voice)
	}
	if cfg.NotesDB != ":memory:" {
		t.Errorf("notes db = %q", cfg.NotesDB)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("LARK_TEST_KEY", "sk-from-env")
	path := writeConfig(t, `
provider:
  api_key: ${LARK_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.Provider.APIKey)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "listen: [not: a: mapping")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestFindConfigExplicitMustExist(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}

	path := writeConfig(t, "log_level: info\n")
	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if got != path {
		t.Errorf("FindConfig = %q, want %q", got, path)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if cfg.ProviderTimeout() != 60*time.Second {
		t.Errorf("provider timeout = %v", cfg.ProviderTimeout())
	}
	if cfg.SpeechTimeout() != 30*time.Second {
		t.Errorf("speech timeout = %v", cfg.SpeechTimeout())
	}
	if cfg.PollInterval() != 10*time.Second {
		t.Errorf("poll interval = %v", cfg.PollInterval())
	}

	cfg.Provider.TimeoutSec = 5
	cfg.Reminders.PollIntervalSec = -1
	if cfg.ProviderTimeout() != 5*time.Second {
		t.Errorf("provider timeout = %v", cfg.ProviderTimeout())
	}
	if cfg.PollInterval() != 10*time.Second {
		t.Errorf("negative poll interval = %v, want default", cfg.PollInterval())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"trace", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{" Debug ", slog.LevelDebug, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLogLevel(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLogLevel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReplaceLogLevelNames(t *testing.T) {
	a := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(LevelTrace)}
	got := ReplaceLogLevelNames(nil, a)
	if got.Value.String() != "TRACE" {
		t.Errorf("trace renders as %q", got.Value.String())
	}

	a = slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(slog.LevelInfo)}
	got = ReplaceLogLevelNames(nil, a)
	if got.Value.Any() != slog.LevelInfo {
		t.Errorf("info level rewritten to %v", got.Value.Any())
	}
}
