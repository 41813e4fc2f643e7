package deals

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	"github.com/angelmondragon/dealdesk-backend/pkg/types"
)

// EntityToDraft builds an editable draft from a persisted deal. A nil entity yields
// an empty draft. The entity is not modified and shares no pointers with the result.
func EntityToDraft(entity *models.Deal) Draft {
	draft := Draft{
		DraftKey:  uuid.NewString(),
		Status:    enums.DealStatusPending,
		Priority:  enums.DealPriorityMedium,
		LineItems: []LineItem{},
	}
	if entity == nil {
		return draft
	}

	if entity.ID != uuid.Nil {
		id := entity.ID
		draft.ID = &id
		updatedAt := entity.UpdatedAt
		draft.UpdatedAt = &updatedAt
	}
	draft.Version = entity.Version
	draft.JobNumber = entity.JobNumber
	draft.Title = entity.Title
	draft.TitleIsCustom = cloneBool(entity.TitleIsCustom)
	draft.Description = deref(entity.Description)
	if entity.Status.IsValid() {
		draft.Status = entity.Status
	}
	if entity.Priority.IsValid() {
		draft.Priority = entity.Priority
	}

	draft.CustomerNeedsLoaner = entity.CustomerNeedsLoaner
	draft.Loaner = LoanerForm{
		Number: deref(entity.LoanerNumber),
		Notes:  deref(entity.LoanerNotes),
	}
	if entity.LoanerExpectedReturnDate != nil {
		draft.Loaner.ExpectedReturnDate = entity.LoanerExpectedReturnDate.String()
	}

	draft.SalesConsultantID = cloneUUID(entity.SalesConsultantID)
	draft.FinanceManagerID = cloneUUID(entity.FinanceManagerID)
	draft.DeliveryCoordinatorID = cloneUUID(entity.DeliveryCoordinatorID)
	draft.VendorID = cloneUUID(entity.VendorID)
	draft.VehicleID = cloneUUID(entity.VehicleID)

	if tx := entity.Transaction; tx != nil {
		draft.Customer = CustomerForm{
			Name:       tx.CustomerName,
			Phone:      tx.CustomerPhone,
			Email:      tx.CustomerEmail,
			SpouseName: deref(tx.SpouseName),
			Notes:      deref(tx.Notes),
		}
	}

	for _, row := range entity.LineItems {
		draft.LineItems = append(draft.LineItems, LineItemFromModel(row))
	}
	return draft
}

// LineItemFromModel converts a persisted row into the canonical line item.
func LineItemFromModel(row models.DealLineItem) LineItem {
	item := LineItem{
		ProductID:          row.ProductID,
		UnitPrice:          row.UnitPrice,
		Cost:               row.Cost,
		Quantity:           row.Quantity,
		IsOffSite:          row.IsOffSite,
		VendorID:           cloneUUID(row.VendorID),
		RequiresScheduling: row.RequiresScheduling,
		PromisedDate:       cloneDate(row.PromisedDate),
		NoScheduleReason:   cloneString(row.NoScheduleReason),
	}
	if row.ID != uuid.Nil {
		id := row.ID
		item.ID = &id
	}
	return item.normalized()
}

// lineItemModels builds fresh rows for a deal generation. Ids are always newly
// assigned; previous generations are garbage collected separately.
func lineItemModels(dealID uuid.UUID, generation int64, items []LineItem) []models.DealLineItem {
	rows := make([]models.DealLineItem, 0, len(items))
	for idx, item := range items {
		rows = append(rows, models.DealLineItem{
			ID:                 uuid.New(),
			DealID:             dealID,
			ProductID:          item.ProductID,
			UnitPrice:          item.UnitPrice.Round(2),
			Cost:               roundNull(item.Cost),
			Quantity:           item.Quantity,
			IsOffSite:          item.IsOffSite,
			VendorID:           cloneUUID(item.VendorID),
			RequiresScheduling: item.RequiresScheduling,
			PromisedDate:       cloneDate(item.PromisedDate),
			NoScheduleReason:   cloneString(item.NoScheduleReason),
			Generation:         generation,
			Position:           idx,
		})
	}
	return rows
}

func roundNull(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NullDecimal{Decimal: d.Decimal.Round(2), Valid: true}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optionalString trims s and returns nil when nothing is left.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneDate(d *types.Date) *types.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
