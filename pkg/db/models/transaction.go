package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is the single financial record attached to a deal.
type Transaction struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DealID        uuid.UUID       `gorm:"column:deal_id;type:uuid;not null;uniqueIndex:deal_transactions_deal_id_key"`
	CustomerName  string          `gorm:"column:customer_name;not null"`
	CustomerPhone string          `gorm:"column:customer_phone;not null"`
	CustomerEmail string          `gorm:"column:customer_email;not null"`
	SpouseName    *string         `gorm:"column:spouse_name"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax           decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Notes         *string         `gorm:"column:notes"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string { return "deal_transactions" }

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
