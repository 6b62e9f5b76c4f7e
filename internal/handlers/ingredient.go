package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/windoze95/saltybytes-voice/internal/service"
	"go.uber.org/zap"
)

// IngredientHandler serves categorized shopping lists.
type IngredientHandler struct {
	Service *service.IngredientService
}

// NewIngredientHandler returns a new IngredientHandler.
func NewIngredientHandler(ingredientService *service.IngredientService) *IngredientHandler {
	return &IngredientHandler{Service: ingredientService}
}

// ByMenu lists ingredients for a dish name.
func (h *IngredientHandler) ByMenu(c *gin.Context) {
	var request struct {
		FoodName string `json:"food_name"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	foodName := strings.TrimSpace(request.FoodName)
	if err := service.ValidateMenuName(foodName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Service.IngredientsByMenu(c.Request.Context(), foodName)
	if err != nil {
		respondServiceError(c, "failed to extract ingredients", err, zap.String("food_name", foodName))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ByLink lists ingredients of the dish in a cooking video. The response is
// the bare category array.
func (h *IngredientHandler) ByLink(c *gin.Context) {
	var request struct {
		Link string `json:"link"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	link := strings.TrimSpace(request.Link)
	if err := service.ValidateVideoURL(link); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Service.IngredientsByLink(c.Request.Context(), link)
	if err != nil {
		respondServiceError(c, "failed to extract ingredients from video", err, zap.String("link", link))
		return
	}

	c.JSON(http.StatusOK, resp.Ingredients)
}
