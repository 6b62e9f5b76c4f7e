package realtime

import (
	"encoding/json"
	"fmt"
)

// Outbound event types.
const (
	EventSessionUpdate     = "session.update"
	EventItemCreate        = "conversation.item.create"
	EventAudioBufferAppend = "input_audio_buffer.append"
	EventResponseCreate    = "response.create"
)

// Item, content and format values used in outbound payloads.
const (
	ItemTypeMessage        = "message"
	ItemTypeFunctionOutput = "function_call_output"
	ContentTypeInputText   = "input_text"
	RoleUser               = "user"
	ToolTypeFunction       = "function"
	TurnDetectionServerVAD = "server_vad"
	AudioFormatPCM16       = "pcm16"
	TranscriptionModel     = "whisper-1"
)

// Inbound event types.
const (
	EventAudioDelta            = "response.audio.delta"
	EventAudioTranscriptDone   = "response.audio_transcript.done"
	EventFunctionArgumentsDone = "response.function_call_arguments.done"
	EventError                 = "error"
)

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

// DefaultTurnDetection is the VAD configuration used for cooking sessions.
func DefaultTurnDetection() *TurnDetection {
	return &TurnDetection{
		Type:              TurnDetectionServerVAD,
		Threshold:         0.5,
		PrefixPaddingMS:   300,
		SilenceDurationMS: 500,
	}
}

// InputAudioTranscription enables transcripts of the user's speech.
type InputAudioTranscription struct {
	Model string `json:"model"`
}

// Tool declares a function the model may call.
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// SessionConfig is the payload of session.update.
type SessionConfig struct {
	Modalities              []string                 `json:"modalities"`
	Instructions            string                   `json:"instructions,omitempty"`
	Voice                   string                   `json:"voice,omitempty"`
	InputAudioFormat        string                   `json:"input_audio_format"`
	OutputAudioFormat       string                   `json:"output_audio_format"`
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection           `json:"turn_detection,omitempty"`
	Tools                   []Tool                   `json:"tools,omitempty"`
	ToolChoice              string                   `json:"tool_choice,omitempty"`
}

// StartTimerTool is the tool name the model uses to start a cooking timer.
const StartTimerTool = "start_timer"

// StartTimerToolDef declares start_timer(seconds: integer).
func StartTimerToolDef(description string) Tool {
	return Tool{
		Type:        ToolTypeFunction,
		Name:        StartTimerTool,
		Description: description,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"seconds": map[string]any{
					"type":        "integer",
					"description": "Timer length in seconds",
				},
			},
			"required": []string{"seconds"},
		},
	}
}

// StartTimerArgs are the decoded arguments of a start_timer call.
type StartTimerArgs struct {
	Seconds *int `json:"seconds"`
}

// ParseStartTimerArgs decodes start_timer arguments. A missing or negative
// seconds value is an error.
func ParseStartTimerArgs(raw string) (int, error) {
	var args StartTimerArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return 0, fmt.Errorf("malformed start_timer arguments: %w", err)
	}
	if args.Seconds == nil {
		return 0, fmt.Errorf("start_timer arguments missing seconds")
	}
	if *args.Seconds < 0 {
		return 0, fmt.Errorf("start_timer seconds must be >= 0, got %d", *args.Seconds)
	}
	return *args.Seconds, nil
}

// ContentPart is one part of a conversation message.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ConversationItem is the item payload of conversation.item.create.
type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

// UserTextItem builds a user message carrying text.
func UserTextItem(text string) ConversationItem {
	return ConversationItem{
		Type:    ItemTypeMessage,
		Role:    RoleUser,
		Content: []ContentPart{{Type: ContentTypeInputText, Text: text}},
	}
}

// FunctionOutputItem builds the acknowledgment of a tool call.
func FunctionOutputItem(callID, output string) ConversationItem {
	return ConversationItem{
		Type:   ItemTypeFunctionOutput,
		CallID: callID,
		Output: output,
	}
}

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

type itemCreateMessage struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

type audioAppendMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type responseCreateMessage struct {
	Type string `json:"type"`
}

// Event is a decoded inbound upstream event.
type Event interface {
	EventType() string
}

// AudioDelta carries a base64 chunk of synthesized audio.
type AudioDelta struct {
	Delta string `json:"delta"`
}

// TranscriptDone carries the full transcript of one spoken response.
type TranscriptDone struct {
	Transcript string `json:"transcript"`
}

// ToolCallArgumentsDone signals that the model finished a tool call.
type ToolCallArgumentsDone struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ErrorEvent is an upstream-reported error. Payload is the raw error object.
type ErrorEvent struct {
	Payload json.RawMessage `json:"error"`
}

// OtherEvent is any event type the gateway does not act on.
type OtherEvent struct {
	Type string
}

func (AudioDelta) EventType() string            { return EventAudioDelta }
func (TranscriptDone) EventType() string        { return EventAudioTranscriptDone }
func (ToolCallArgumentsDone) EventType() string { return EventFunctionArgumentsDone }
func (ErrorEvent) EventType() string            { return EventError }
func (e OtherEvent) EventType() string          { return e.Type }

// Message returns the human-readable message of the error, falling back to
// the raw payload.
func (e ErrorEvent) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Payload, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(e.Payload)
}

// DecodeEvent decodes one upstream frame.
func DecodeEvent(data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed upstream event: %w", err)
	}

	var ev Event
	var err error
	switch envelope.Type {
	case EventAudioDelta:
		var e AudioDelta
		err = json.Unmarshal(data, &e)
		ev = e
	case EventAudioTranscriptDone:
		var e TranscriptDone
		err = json.Unmarshal(data, &e)
		ev = e
	case EventFunctionArgumentsDone:
		var e ToolCallArgumentsDone
		err = json.Unmarshal(data, &e)
		ev = e
	case EventError:
		var e ErrorEvent
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return OtherEvent{Type: envelope.Type}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("malformed %s event: %w", envelope.Type, err)
	}
	return ev, nil
}
