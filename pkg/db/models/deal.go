package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	"github.com/angelmondragon/dealdesk-backend/pkg/types"
)

// Deal is the aggregate root: one sale tied to one vehicle.
type Deal struct {
	ID                       uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	JobNumber                string             `gorm:"column:job_number;not null"`
	Title                    string             `gorm:"column:title;not null"`
	Description              *string            `gorm:"column:description"`
	Status                   enums.DealStatus   `gorm:"column:status;type:deal_status;not null"`
	Priority                 enums.DealPriority `gorm:"column:priority;type:deal_priority;not null"`
	CustomerNeedsLoaner      bool               `gorm:"column:customer_needs_loaner;not null"`
	LoanerNumber             *string            `gorm:"column:loaner_number"`
	LoanerExpectedReturnDate *types.Date        `gorm:"column:loaner_expected_return_date;type:date"`
	LoanerNotes              *string            `gorm:"column:loaner_notes"`
	SalesConsultantID        *uuid.UUID         `gorm:"column:sales_consultant_id;type:uuid"`
	FinanceManagerID         *uuid.UUID         `gorm:"column:finance_manager_id;type:uuid"`
	DeliveryCoordinatorID    *uuid.UUID         `gorm:"column:delivery_coordinator_id;type:uuid"`
	VendorID                 *uuid.UUID         `gorm:"column:vendor_id;type:uuid"`
	VehicleID                *uuid.UUID         `gorm:"column:vehicle_id;type:uuid"`
	TitleIsCustom            *bool              `gorm:"column:title_is_custom"`
	Version                  int64              `gorm:"column:version;not null"`
	LineItemGeneration       int64              `gorm:"column:line_item_generation;not null"`
	Vendor                   *Vendor            `gorm:"foreignKey:VendorID"`
	Vehicle                  *Vehicle           `gorm:"foreignKey:VehicleID"`
	LineItems                []DealLineItem     `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE"`
	Transaction              *Transaction       `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE"`
	CreatedAt                time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Deal) TableName() string { return "deals" }

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
