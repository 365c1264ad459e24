// Package config handles Lark configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt seeds every new session's conversation history.
// It can be overridden per deployment via the system_prompt config key.
const DefaultSystemPrompt = "You are Lark, a voice assistant. You can set reminders, " +
	"send messages, look up music, and tell the time and date using your tools. " +
	"Keep replies short and conversational; they will be read aloud."

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/lark/config.yaml, /etc/lark/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lark", "config.yaml"))
	}

	paths = append(paths, "/etc/lark/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Lark configuration.
type Config struct {
	Listen       ListenConfig    `yaml:"listen"`
	Provider     ProviderConfig  `yaml:"provider"`
	Speech       SpeechConfig    `yaml:"speech"`
	Reminders    RemindersConfig `yaml:"reminders"`
	History      HistoryConfig   `yaml:"history"`
	MQTT         MQTTConfig      `yaml:"mqtt"`
	NotesDB      string          `yaml:"notes_db"`
	SystemPrompt string          `yaml:"system_prompt"`
	LogLevel     string          `yaml:"log_level"`
}

// ListenConfig defines the server bind settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ProviderConfig defines the chat-completion backend. Any
// OpenAI-compatible endpoint works (OpenAI, Groq, a local gateway);
// only the base URL and key change.
type ProviderConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	ChatModel   string  `yaml:"chat_model"`
	Temperature float64 `yaml:"temperature"`
	// TimeoutSec bounds each completion call. A timed-out call is
	// treated the same as any other gateway failure.
	TimeoutSec int `yaml:"timeout_sec"`
}

// SpeechConfig defines the transcription and synthesis backends.
type SpeechConfig struct {
	TranscribeModel string `yaml:"transcribe_model"` // e.g. whisper-large-v3
	SpeechModel     string `yaml:"speech_model"`     // e.g. tts-1
	Voice           string `yaml:"voice"`
	TimeoutSec      int    `yaml:"timeout_sec"`
}

// RemindersConfig defines the per-session reminder scanner.
type RemindersConfig struct {
	PollIntervalSec int `yaml:"poll_interval_sec"`
}

// HistoryConfig bounds per-session conversation history.
type HistoryConfig struct {
	// MaxMessages caps persisted history length. When exceeded, the
	// history is truncated to the system message plus the most recent
	// MaxMessages-1 entries.
	MaxMessages int `yaml:"max_messages"`
}

// MQTTConfig defines the optional operational-event publisher.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g. mqtt://host:1883 or mqtts://host:8883
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
}

// Load reads configuration from a YAML file. Environment variables in
// the file are expanded, so secrets can live in the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8765},
		Provider: ProviderConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			ChatModel:   "llama-3.3-70b-versatile",
			Temperature: 0.7,
			TimeoutSec:  60,
		},
		Speech: SpeechConfig{
			TranscribeModel: "whisper-large-v3",
			SpeechModel:     "tts-1",
			Voice:           "alloy",
			TimeoutSec:      30,
		},
		Reminders: RemindersConfig{PollIntervalSec: 10},
		History:   HistoryConfig{MaxMessages: 21},
		MQTT:      MQTTConfig{TopicPrefix: "lark"},
		NotesDB:   ":memory:",
	}
}

// ProviderTimeout returns the configured completion timeout as a Duration.
func (c *Config) ProviderTimeout() time.Duration {
	if c.Provider.TimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Provider.TimeoutSec) * time.Second
}

// SpeechTimeout returns the configured speech timeout as a Duration.
func (c *Config) SpeechTimeout() time.Duration {
	if c.Speech.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Speech.TimeoutSec) * time.Second
}

// PollInterval returns the reminder scanner interval as a Duration.
func (c *Config) PollInterval() time.Duration {
	if c.Reminders.PollIntervalSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Reminders.PollIntervalSec) * time.Second
}
