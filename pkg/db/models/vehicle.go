package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle is the unit a deal is written against.
type Vehicle struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Year        int       `gorm:"column:year"`
	Make        string    `gorm:"column:make;not null"`
	Model       string    `gorm:"column:model;not null"`
	VIN         *string   `gorm:"column:vin"`
	StockNumber *string   `gorm:"column:stock_number"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Vehicle) TableName() string { return "vehicles" }

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
