package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord holds the metered-action counters for one user on one UTC
// calendar day. All counter fields are monotonically non-decreasing; the
// row is created on the first metered action of the day.
type UsageRecord struct {
	ID            uuid.UUID `gorm:"type:varchar(36);primarykey" json:"-"`
	UserID        uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_usage_user_date;index" json:"user_id"`
	Date          string    `gorm:"size:10;not null;uniqueIndex:idx_usage_user_date;index" json:"date"`
	ActionCount   int64     `gorm:"not null;default:0" json:"action_count"`
	InputUnits    int64     `gorm:"not null;default:0" json:"input_units"`
	OutputUnits   int64     `gorm:"not null;default:0" json:"output_units"`
	CostMicros    int64     `gorm:"not null;default:0" json:"estimated_cost_micros"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	// Version guards concurrent read-modify-write cycles.
	Version int64 `gorm:"not null;default:0" json:"-"`
}
