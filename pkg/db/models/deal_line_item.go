package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealdesk-backend/pkg/types"
)

// DealLineItem is one product or service sold on a deal (historically "job part").
// Rows belong to a generation; only rows matching the deal's
// line_item_generation are current.
type DealLineItem struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	DealID             uuid.UUID           `gorm:"column:deal_id;type:uuid;not null"`
	ProductID          uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	UnitPrice          decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Cost               decimal.NullDecimal `gorm:"column:cost;type:numeric(12,2)"`
	Quantity           int                 `gorm:"column:quantity;not null"`
	IsOffSite          bool                `gorm:"column:is_off_site;not null"`
	VendorID           *uuid.UUID          `gorm:"column:vendor_id;type:uuid"`
	RequiresScheduling bool                `gorm:"column:requires_scheduling;not null"`
	PromisedDate       *types.Date         `gorm:"column:promised_date;type:date"`
	NoScheduleReason   *string             `gorm:"column:no_schedule_reason"`
	Generation         int64               `gorm:"column:generation;not null"`
	Position           int                 `gorm:"column:position;not null"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (DealLineItem) TableName() string { return "deal_line_items" }

func (i *DealLineItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
