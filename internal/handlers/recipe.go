package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/windoze95/saltybytes-voice/internal/service"
	"go.uber.org/zap"
)

// RecipeHandler is the handler for recipe acquisition requests.
type RecipeHandler struct {
	Service *service.RecipeService
}

// NewRecipeHandler is the constructor function for initializing a new RecipeHandler.
func NewRecipeHandler(recipeService *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{Service: recipeService}
}

// AcquireByName generates a recipe from a dish name and makes it the current
// recipe.
func (h *RecipeHandler) AcquireByName(c *gin.Context) {
	var request struct {
		MenuName string `json:"menu_name"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	menuName := strings.TrimSpace(request.MenuName)
	if err := service.ValidateMenuName(menuName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Service.AcquireByName(c.Request.Context(), menuName)
	if err != nil {
		respondServiceError(c, "failed to generate recipe", err, zap.String("menu_name", menuName))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AcquireByVideo extracts a recipe from a cooking video and makes it the
// current recipe.
func (h *RecipeHandler) AcquireByVideo(c *gin.Context) {
	var request struct {
		VideoURL string `json:"video_url"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	videoURL := strings.TrimSpace(request.VideoURL)
	if err := service.ValidateVideoURL(videoURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Service.AcquireByVideo(c.Request.Context(), videoURL)
	if err != nil {
		respondServiceError(c, "failed to extract recipe from video", err, zap.String("video_url", videoURL))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetCurrentRecipe returns the most recently acquired recipe.
func (h *RecipeHandler) GetCurrentRecipe(c *gin.Context) {
	session, err := h.Service.GetCurrentRecipe()
	if err != nil {
		respondServiceError(c, "failed to get current recipe", err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetRecipeSession returns a recipe session by ID.
func (h *RecipeHandler) GetRecipeSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	session, err := h.Service.GetRecipeSession(sessionID)
	if err != nil {
		respondServiceError(c, "failed to get recipe session", err, zap.String("session_id", sessionID))
		return
	}

	c.JSON(http.StatusOK, session)
}
