package db

import (
	"time"

	"gorm.io/datatypes"
)

type Location struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	Name      string         `gorm:"size:64;uniqueIndex;not null"`
	Roles     datatypes.JSON `gorm:"not null"` // []string
	Themes    datatypes.JSON // []string, optional
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}
