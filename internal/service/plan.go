package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/appetora/backend/internal/models"
)

var (
	ErrNoActiveRecipes = errors.New("no active recipes")
	ErrNoSavedPlan     = errors.New("no saved plan found")
	ErrEmptyPlan       = errors.New("empty plan after validation")
)

// planDays is the length of a generated meal plan.
const planDays = 7

// PlanService generates and stores weekly meal plans.
type PlanService struct {
	db *gorm.DB
}

func NewPlanService(db *gorm.DB) *PlanService {
	return &PlanService{db: db}
}

// Generate shuffles the user's active recipes over the next seven days
// starting today (UTC). Paused recipes are skipped; recipes repeat when
// fewer than seven are active.
func (s *PlanService) Generate(ctx context.Context, userID uuid.UUID) ([]models.PlanEntry, error) {
	var recipes []models.Recipe
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND paused = ?", userID, false).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, ErrNoActiveRecipes
	}

	shuffled := make([]models.Recipe, len(recipes))
	copy(shuffled, recipes)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	today := time.Now().UTC()
	plan := make([]models.PlanEntry, 0, planDays)
	for i := 0; i < planDays; i++ {
		recipe := shuffled[i%len(shuffled)]
		plan = append(plan, models.PlanEntry{
			Date:     today.AddDate(0, 0, i).Format("2006-01-02"),
			RecipeID: recipe.ID.String(),
			Name:     recipe.Name,
			Category: recipe.Category,
		})
	}
	return plan, nil
}

// Save stores a plan snapshot after dropping entries without a date or
// recipe reference.
func (s *PlanService) Save(ctx context.Context, userID uuid.UUID, entries []models.PlanEntry) (*models.SavedPlan, error) {
	cleaned := make(models.PlanEntries, 0, len(entries))
	for _, e := range entries {
		if len(e.Date) > 10 {
			e.Date = e.Date[:10]
		}
		if e.Date == "" || e.RecipeID == "" {
			continue
		}
		cleaned = append(cleaned, e)
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyPlan
	}

	plan := models.SavedPlan{
		UserID:  userID,
		Entries: cleaned,
	}
	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// Latest returns the most recently saved plan.
func (s *PlanService) Latest(ctx context.Context, userID uuid.UUID) (*models.SavedPlan, error) {
	var plan models.SavedPlan
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSavedPlan
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
