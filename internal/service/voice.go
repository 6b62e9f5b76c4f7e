package service

import (
	"context"
	"fmt"

	"github.com/windoze95/saltybytes-voice/internal/ai"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/realtime"
)

// VoiceService prepares realtime voice sessions and handles one-shot
// transcription.
type VoiceService struct {
	Cfg            *config.Config
	SpeechProvider ai.SpeechProvider
}

// NewVoiceService creates a new VoiceService.
func NewVoiceService(cfg *config.Config, speechProvider ai.SpeechProvider) *VoiceService {
	return &VoiceService{
		Cfg:            cfg,
		SpeechProvider: speechProvider,
	}
}

// DialUpstream opens the realtime conversation for one voice session.
func (s *VoiceService) DialUpstream(ctx context.Context) (*realtime.Client, error) {
	return realtime.Dial(ctx, realtime.Config{
		URL:    s.Cfg.EnvVars.RealtimeURL,
		Model:  s.Cfg.EnvVars.RealtimeModel,
		APIKey: s.Cfg.EnvVars.OpenAIAPIKey,
	})
}

// SessionConfig builds the session.update payload for a cooking session.
func (s *VoiceService) SessionConfig(prompts *config.Prompts) realtime.SessionConfig {
	return realtime.SessionConfig{
		Modalities:              []string{"text", "audio"},
		Instructions:            prompts.Realtime.Instructions,
		Voice:                   s.Cfg.EnvVars.RealtimeVoice,
		InputAudioFormat:        realtime.AudioFormatPCM16,
		OutputAudioFormat:       realtime.AudioFormatPCM16,
		InputAudioTranscription: &realtime.InputAudioTranscription{Model: realtime.TranscriptionModel},
		TurnDetection:           realtime.DefaultTurnDetection(),
		Tools:                   []realtime.Tool{realtime.StartTimerToolDef(prompts.Realtime.ToolStartTimer)},
		ToolChoice:              "auto",
	}
}

// SeedText renders the first user turn. An empty recipe yields the
// placeholder asking the user to fetch a recipe first.
func (s *VoiceService) SeedText(prompts *config.Prompts, recipeText string) (string, error) {
	if recipeText == "" {
		return config.RenderPrompt(prompts.Realtime.NoRecipe, nil)
	}
	return config.RenderPrompt(prompts.Realtime.Seed, map[string]interface{}{
		"Recipe": recipeText,
	})
}

// Transcribe converts recorded audio to text.
func (s *VoiceService) Transcribe(ctx context.Context, audioData []byte, filename string) (string, error) {
	text, err := s.SpeechProvider.TranscribeAudio(ctx, audioData, filename)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return text, nil
}
