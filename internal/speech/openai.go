package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIAudio implements [Transcriber] and [Synthesizer] against any
// OpenAI-compatible audio endpoint (OpenAI, Groq).
type OpenAIAudio struct {
	client          openai.Client
	transcribeModel string
	speechModel     string
	voice           string
	logger          *slog.Logger
}

// NewOpenAIAudio creates an audio client. baseURL may be empty for the
// default OpenAI endpoint.
func NewOpenAIAudio(baseURL, apiKey, transcribeModel, speechModel, voice string, logger *slog.Logger) *OpenAIAudio {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &OpenAIAudio{
		client:          openai.NewClient(opts...),
		transcribeModel: transcribeModel,
		speechModel:     speechModel,
		voice:           voice,
		logger:          logger,
	}
}

// Transcribe sends audio bytes to the transcription endpoint. The
// browser records webm; whisper-class models detect the container from
// the upload, so no transcoding happens here.
func (a *OpenAIAudio) Transcribe(ctx context.Context, audio []byte) (string, error) {
	start := time.Now()

	transcription, err := a.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(a.transcribeModel),
		File:  openai.File(bytes.NewReader(audio), "audio.webm", "audio/webm"),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	a.logger.Debug("transcription complete",
		"bytes", len(audio),
		"chars", len(transcription.Text),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return transcription.Text, nil
}

// Speak synthesizes text into WAV audio bytes.
func (a *OpenAIAudio) Speak(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()

	resp, err := a.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(a.speechModel),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(a.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}

	a.logger.Debug("synthesis complete",
		"chars", len(text),
		"bytes", len(audio),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return audio, nil
}
