package models

import (
	"time"
)

// Credential is the single OpenRouter credential stored inside one user's
// partition database. The row id is always 1; Set replaces the row wholesale.
type Credential struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AccessToken string    `gorm:"type:text;not null" json:"-"`
	Balance     int       `gorm:"default:-1" json:"balance"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Credential) TableName() string {
	return "openrouter_credentials"
}
