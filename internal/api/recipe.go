package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/models"
)

// RecipeHandler handles the per-user recipe collection
type RecipeHandler struct {
	db *gorm.DB
}

func NewRecipeHandler(db *gorm.DB) *RecipeHandler {
	return &RecipeHandler{db: db}
}

// RegisterRoutes registers the recipe routes. The group is expected to
// carry the auth middleware already.
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.List)
		recipes.POST("", h.Create)
		recipes.GET("/:id", h.Get)
		recipes.PUT("/:id", h.Update)
		recipes.DELETE("/:id", h.Delete)
	}
}

type recipeRequest struct {
	Name         string   `json:"name" binding:"required"`
	Category     string   `json:"category"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Paused       bool     `json:"paused"`
}

func (h *RecipeHandler) List(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var recipes []models.Recipe
	if err := h.db.Where("user_id = ?", userID).Order("name ASC").Find(&recipes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list recipes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) Create(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipe name required"})
		return
	}

	recipe := models.Recipe{
		Name:         req.Name,
		Category:     req.Category,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		Paused:       req.Paused,
		UserID:       userID,
	}
	if err := h.db.Create(&recipe).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recipe"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"recipe": recipe})
}

func (h *RecipeHandler) Get(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	recipe, ok := h.ownedRecipe(c, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

func (h *RecipeHandler) Update(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	recipe, ok := h.ownedRecipe(c, userID)
	if !ok {
		return
	}

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipe name required"})
		return
	}

	recipe.Name = req.Name
	recipe.Category = req.Category
	recipe.Ingredients = req.Ingredients
	recipe.Instructions = req.Instructions
	recipe.Paused = req.Paused

	if err := h.db.Save(recipe).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipe"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	recipe, ok := h.ownedRecipe(c, userID)
	if !ok {
		return
	}

	if err := h.db.Delete(recipe).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recipe"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ownedRecipe loads the recipe from the path param, scoped to the
// authenticated user. Writes the error response itself when not found.
func (h *RecipeHandler) ownedRecipe(c *gin.Context, userID uuid.UUID) (*models.Recipe, bool) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return nil, false
	}

	var recipe models.Recipe
	if err := h.db.Where("id = ? AND user_id = ?", recipeID, userID).First(&recipe).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return nil, false
	}
	return &recipe, true
}
