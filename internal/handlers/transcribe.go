package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/windoze95/saltybytes-voice/internal/service"
)

// maxAudioUploadSize is the Whisper upload limit.
const maxAudioUploadSize = 25 << 20

// TranscribeHandler serves one-shot speech-to-text.
type TranscribeHandler struct {
	Service *service.VoiceService
}

// NewTranscribeHandler returns a new TranscribeHandler.
func NewTranscribeHandler(voiceService *service.VoiceService) *TranscribeHandler {
	return &TranscribeHandler{Service: voiceService}
}

// Transcribe converts the multipart "audio" file to text.
func (h *TranscribeHandler) Transcribe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioUploadSize+1<<20)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	if fileHeader.Size > maxAudioUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio file is too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio file"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is empty"})
		return
	}

	text, err := h.Service.Transcribe(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		respondServiceError(c, "failed to transcribe audio", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text})
}
