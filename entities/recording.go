package entities

import (
	"time"

	"github.com/google/uuid"
)

// Recording is a captured spoken response. The audio lives in object
// storage under ObjectPath; Duration is seconds.
type Recording struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey"`
	Prompt     string    `json:"prompt"`
	ObjectPath string    `json:"object_path"`
	Duration   int       `json:"duration"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Recording) TableName() string {
	return "recordings"
}
