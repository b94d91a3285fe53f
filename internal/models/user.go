package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultDailyImportLimit is the number of metered imports a non-exempt
// user may perform per UTC calendar day.
const DefaultDailyImportLimit = 5

type User struct {
	ID           uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`

	// Quota policy: DailyLimit bounds metered imports per UTC day,
	// Unlimited bypasses the limit entirely. Mutated only via admin actions.
	DailyLimit int  `gorm:"not null;default:5" json:"daily_limit"`
	Unlimited  bool `gorm:"not null;default:false" json:"unlimited"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.DailyLimit <= 0 {
		u.DailyLimit = DefaultDailyImportLimit
	}
	return nil
}
