package ws

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"github.com/windoze95/saltybytes-voice/internal/middleware"
	"github.com/windoze95/saltybytes-voice/internal/repository"
	"github.com/windoze95/saltybytes-voice/internal/service"
	"go.uber.org/zap"
)

// VoiceHandler upgrades /ws requests into realtime cooking sessions.
type VoiceHandler struct {
	Hub            *Hub
	RecipeService  *service.RecipeService
	VoiceService   *service.VoiceService
	Prompts        *config.PromptSet
	AllowedOrigins []string

	// TimerUnit overrides the length of one timer second.
	TimerUnit time.Duration

	upgrader websocket.Upgrader
}

// NewVoiceHandler returns a new VoiceHandler.
func NewVoiceHandler(hub *Hub, recipeService *service.RecipeService, voiceService *service.VoiceService, prompts *config.PromptSet, allowedOrigins []string) *VoiceHandler {
	h := &VoiceHandler{
		Hub:            hub,
		RecipeService:  recipeService,
		VoiceService:   voiceService,
		Prompts:        prompts,
		AllowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     h.checkOrigin,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	return h
}

// checkOrigin accepts requests without an Origin header, any configured
// origin, and localhost. With no configured origins every origin is allowed.
func (h *VoiceHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	if u, err := url.Parse(origin); err == nil && u.Hostname() == "localhost" {
		return true
	}
	return false
}

// HandleVoiceSession resolves the recipe to cook, upgrades the connection,
// dials the realtime upstream and bridges the two until either side ends.
// The recipe session comes from the "session_id" context key set by the
// session token middleware, or is the latest acquired recipe.
func (h *VoiceHandler) HandleVoiceSession(c *gin.Context) {
	log := logger.Get()

	requestedID := middleware.SessionIDFromContext(c)
	recipe, err := h.RecipeService.ResolveRecipeSession(requestedID)
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe session not found"})
			return
		}
		log.Error("failed to resolve recipe session", zap.String("session_id", requestedID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load recipe session"})
		return
	}

	var sessionID, recipeText string
	if recipe != nil {
		sessionID = recipe.ID
		recipeText = recipe.Text
	}

	// One snapshot per connection so a prompt reload never mixes templates
	// within a session.
	prompts := h.Prompts.Current()
	seed, err := h.VoiceService.SeedText(prompts, recipeText)
	if err != nil {
		log.Error("failed to render seed turn", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare voice session"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	sessionLog := logger.WithSessionID(sessionID)

	upstream, err := h.VoiceService.DialUpstream(c.Request.Context())
	if err != nil {
		sessionLog.Error("failed to connect to realtime upstream", zap.Error(err))
		rejectConn(conn, "voice assistant is unavailable")
		return
	}

	client := NewClient(h.Hub, conn, sessionID)
	if h.Hub != nil {
		h.Hub.Register <- client
	}

	session := NewSession(client, upstream, SessionOptions{
		RecipeText:    recipeText,
		SeedText:      seed,
		SessionConfig: h.VoiceService.SessionConfig(prompts),
		Prompts:       prompts,
		Log:           sessionLog,
		TimerUnit:     h.TimerUnit,
	})

	if err := session.Start(); err != nil {
		sessionLog.Error("failed to start voice session", zap.Error(err))
		session.Close()
		return
	}

	sessionLog.Info("voice session started", zap.Bool("has_recipe", recipe != nil))
	session.Run()
}

// rejectConn writes a single error frame and closes conn. It is used before
// the write pump exists.
func rejectConn(conn *websocket.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, ErrorMessage(message))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, message))
	conn.Close()
}
