package ws

import "encoding/json"

// Message types sent to the voice client.
const (
	MsgTypeAudio      = "audio"       // Base64 PCM16 audio from the assistant
	MsgTypeText       = "text"        // Assistant transcript or notice
	MsgTypeTimerStart = "timer_start" // A cooking timer began
	MsgTypeTimerDone  = "timer_done"  // A cooking timer elapsed
	MsgTypeError      = "error"       // Upstream or session error
)

// DataMessage carries a string payload (audio, text, error).
type DataMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// TimerStartMessage announces a started timer.
type TimerStartMessage struct {
	Type    string `json:"type"`
	Seconds int    `json:"seconds"`
}

// TimerDoneMessage announces an elapsed timer.
type TimerDoneMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func encode(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}

// AudioMessage forwards an audio delta unmodified.
func AudioMessage(b64 string) []byte {
	return encode(DataMessage{Type: MsgTypeAudio, Data: b64})
}

// TextMessage carries text for display.
func TextMessage(text string) []byte {
	return encode(DataMessage{Type: MsgTypeText, Data: text})
}

// ErrorMessage reports an error to the client.
func ErrorMessage(text string) []byte {
	return encode(DataMessage{Type: MsgTypeError, Data: text})
}

// TimerStart builds a timer_start event.
func TimerStart(seconds int) []byte {
	return encode(TimerStartMessage{Type: MsgTypeTimerStart, Seconds: seconds})
}

// TimerDone builds a timer_done event.
func TimerDone(message string) []byte {
	return encode(TimerDoneMessage{Type: MsgTypeTimerDone, Message: message})
}
