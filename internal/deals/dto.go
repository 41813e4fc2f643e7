package deals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	"github.com/angelmondragon/dealdesk-backend/pkg/types"
)

// LineItem is the canonical in-memory shape of one deal line item. Alternate
// spellings are resolved by ToCanonicalLineItem and rendered back by RenderLineItem.
type LineItem struct {
	ID                 *uuid.UUID          `json:"id,omitempty"`
	ProductID          uuid.UUID           `json:"product_id"`
	UnitPrice          decimal.Decimal     `json:"unit_price"`
	Cost               decimal.NullDecimal `json:"cost"`
	Quantity           int                 `json:"quantity"`
	IsOffSite          bool                `json:"is_off_site"`
	VendorID           *uuid.UUID          `json:"vendor_id"`
	RequiresScheduling bool                `json:"requires_scheduling"`
	PromisedDate       *types.Date         `json:"promised_date"`
	NoScheduleReason   *string             `json:"no_schedule_reason"`
}

// LoanerForm holds the loaner sub-record while editing. Fields are never nil so
// form inputs always observe a string.
type LoanerForm struct {
	Number             string
	ExpectedReturnDate string
	Notes              string
}

// CustomerForm holds the editable transaction fields.
type CustomerForm struct {
	Name       string
	Phone      string
	Email      string
	SpouseName string
	Notes      string
}

// Draft is the editable mirror of a deal aggregate for one edit session.
type Draft struct {
	// DraftKey identifies the edit session; concurrent saves sharing a key coalesce.
	DraftKey string

	ID        *uuid.UUID
	Version   int64
	UpdatedAt *time.Time

	JobNumber     string
	Title         string
	TitleIsCustom *bool
	Description   string
	Status        enums.DealStatus
	Priority      enums.DealPriority

	CustomerNeedsLoaner bool
	Loaner              LoanerForm

	SalesConsultantID     *uuid.UUID
	FinanceManagerID      *uuid.UUID
	DeliveryCoordinatorID *uuid.UUID
	VendorID              *uuid.UUID
	VehicleID             *uuid.UUID

	Customer  CustomerForm
	LineItems []LineItem
}

// SetCustomerNeedsLoaner toggles the loaner flag; turning it off clears the loaner form.
func (d *Draft) SetCustomerNeedsLoaner(needs bool) {
	d.CustomerNeedsLoaner = needs
	if !needs {
		d.Loaner = LoanerForm{}
	}
}

// LoanerPayload is the persisted loaner sub-record.
type LoanerPayload struct {
	Number             string
	ExpectedReturnDate *types.Date
	Notes              *string
}

// CustomerPayload carries the transaction identity fields.
type CustomerPayload struct {
	Name       string
	Phone      string
	Email      string
	SpouseName *string
	Notes      *string
}

// Payload is the persistence-ready form of a draft.
type Payload struct {
	// ID and the Expected* markers are only set for updates.
	ID                *uuid.UUID
	ExpectedVersion   int64
	ExpectedUpdatedAt *time.Time

	DraftKey string

	JobNumber     string
	Title         string
	TitleIsCustom *bool
	Description   *string
	Status        enums.DealStatus
	Priority      enums.DealPriority

	CustomerNeedsLoaner bool
	Loaner              *LoanerPayload

	SalesConsultantID     *uuid.UUID
	FinanceManagerID      *uuid.UUID
	DeliveryCoordinatorID *uuid.UUID
	VendorID              *uuid.UUID
	VehicleID             *uuid.UUID

	Customer  CustomerPayload
	LineItems []LineItem
}

// Totals summarises the money on a set of line items.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Profit    decimal.Decimal `json:"profit"`
	ItemCount int             `json:"item_count"`
}

// LoanerView is the loaner sub-record returned to callers.
type LoanerView struct {
	Number             string      `json:"loaner_number"`
	ExpectedReturnDate *types.Date `json:"expected_return_date"`
	Notes              *string     `json:"notes"`
}

// TransactionView is the persisted transaction returned to callers.
type TransactionView struct {
	ID            uuid.UUID       `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerEmail string          `json:"customer_email"`
	SpouseName    *string         `json:"spouse_name"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Notes         *string         `json:"notes"`
}

// DealDetail is the re-read aggregate returned by every save and by GetDeal.
type DealDetail struct {
	ID                    uuid.UUID          `json:"id"`
	JobNumber             string             `json:"job_number"`
	Title                 string             `json:"title"`
	TitleIsCustom         *bool              `json:"title_is_custom"`
	Description           *string            `json:"description"`
	Status                enums.DealStatus   `json:"status"`
	Priority              enums.DealPriority `json:"priority"`
	CustomerNeedsLoaner   bool               `json:"customer_needs_loaner"`
	Loaner                *LoanerView        `json:"loaner"`
	SalesConsultantID     *uuid.UUID         `json:"sales_consultant_id"`
	FinanceManagerID      *uuid.UUID         `json:"finance_manager_id"`
	DeliveryCoordinatorID *uuid.UUID         `json:"delivery_coordinator_id"`
	VendorID              *uuid.UUID         `json:"vendor_id"`
	VehicleID             *uuid.UUID         `json:"vehicle_id"`
	VehicleDescription    string             `json:"vehicle_description"`
	VendorLabel           string             `json:"vendor_label"`
	Version               int64              `json:"version"`
	LineItems             []LineItem         `json:"line_items"`
	Transaction           *TransactionView   `json:"transaction"`
	Totals                Totals             `json:"totals"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// ListFilters narrows the deal list.
type ListFilters struct {
	Status *enums.DealStatus
}

// DealSummary is one row of the deal list.
type DealSummary struct {
	ID                 uuid.UUID          `json:"id"`
	JobNumber          string             `json:"job_number"`
	Title              string             `json:"title"`
	Status             enums.DealStatus   `json:"status"`
	Priority           enums.DealPriority `json:"priority"`
	VehicleDescription string             `json:"vehicle_description"`
	VendorLabel        string             `json:"vendor_label"`
	TotalAmount        decimal.Decimal    `json:"total_amount"`
	ItemCount          int                `json:"item_count"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DealList wraps a page of deals plus the next page cursor.
type DealList struct {
	Deals      []DealSummary `json:"deals"`
	NextCursor string        `json:"next_cursor,omitempty"`
}
