package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanEntry is a single day of a meal plan.
type PlanEntry struct {
	Date     string `json:"date"`
	RecipeID string `json:"recipe_id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// PlanEntries stores a plan as a JSONB array.
type PlanEntries []PlanEntry

// Value implements the driver.Valuer interface
func (p PlanEntries) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface
func (p *PlanEntries) Scan(value interface{}) error {
	if value == nil {
		*p = PlanEntries{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// SavedPlan is a snapshot of a meal plan a user chose to keep.
type SavedPlan struct {
	ID        uuid.UUID   `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UserID    uuid.UUID   `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Entries   PlanEntries `gorm:"type:jsonb;not null;default:'[]'" json:"entries"`
}

func (p *SavedPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HistoryEntry records that a user cooked a recipe on a given day.
// One row per (user, date, recipe).
type HistoryEntry struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_history_user_date_recipe" json:"user_id"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_history_user_date_recipe" json:"date"`
	RecipeID  uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_history_user_date_recipe" json:"recipe_id"`
}

func (h *HistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
