package server

import (
	"github.com/lark-ai/lark/internal/orchestrator"
	"github.com/lark-ai/lark/internal/reminders"
)

// Inbound message types.
const (
	typeText  = "text"
	typeAudio = "audio"
)

// Outbound message types.
const (
	typeTranscription = "transcription"
	typeResponse      = "response"
	typeAudioResponse = "audio_response"
	typeReminder      = "reminder"
	typeError         = "error"
)

// inboundMessage is one client frame. Type discriminates: "text"
// carries Text, "audio" carries a base64 payload.
type inboundMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

type transcriptionMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseMessage struct {
	Type string               `json:"type"`
	Data *orchestrator.Result `json:"data"`
}

type audioResponseMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"` // base64
}

type reminderMessage struct {
	Type string          `json:"type"`
	Data reminderPayload `json:"data"`
}

type reminderPayload struct {
	Message  string             `json:"message"`
	Reminder reminders.Reminder `json:"reminder"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
