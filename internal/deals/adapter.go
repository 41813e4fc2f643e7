package deals

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealdesk-backend/pkg/config"
	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	"github.com/angelmondragon/dealdesk-backend/pkg/types"
)

// Adapter turns drafts into persistence payloads. Implementations never modify
// the draft they are given.
type Adapter interface {
	Name() string
	ToCreatePayload(draft Draft) Payload
	ToUpdatePayload(original *models.Deal, draft Draft) Payload
}

// NewAdapter returns the adapter registered under name.
func NewAdapter(name string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.DealAdapterNormalized:
		return NormalizedAdapter{}, nil
	case config.DealAdapterLegacy:
		return LegacyAdapter{}, nil
	default:
		return nil, fmt.Errorf("unknown deal adapter %q", name)
	}
}

// DraftToCreatePayload converts a draft using the normalized adapter.
func DraftToCreatePayload(draft Draft) Payload {
	return NormalizedAdapter{}.ToCreatePayload(draft)
}

// DraftToUpdatePayload converts a draft using the normalized adapter and carries the
// original deal's id and concurrency markers.
func DraftToUpdatePayload(original *models.Deal, draft Draft) Payload {
	return NormalizedAdapter{}.ToUpdatePayload(original, draft)
}

// NormalizedAdapter drops blank trailing rows and persists the loaner record only
// when the flag is on and a loaner number was entered.
type NormalizedAdapter struct{}

func (NormalizedAdapter) Name() string { return config.DealAdapterNormalized }

func (NormalizedAdapter) ToCreatePayload(draft Draft) Payload {
	payload := basePayload(draft)
	if draft.CustomerNeedsLoaner && strings.TrimSpace(draft.Loaner.Number) != "" {
		payload.Loaner = loanerPayload(draft.Loaner)
	}
	payload.LineItems = payloadLineItems(draft.LineItems, true)
	return payload
}

func (a NormalizedAdapter) ToUpdatePayload(original *models.Deal, draft Draft) Payload {
	return withUpdateMarkers(a.ToCreatePayload(draft), original, draft)
}

// LegacyAdapter mirrors the older save path: rows without a product are kept so they
// fail validation, and the loaner record follows the flag alone.
type LegacyAdapter struct{}

func (LegacyAdapter) Name() string { return config.DealAdapterLegacy }

func (LegacyAdapter) ToCreatePayload(draft Draft) Payload {
	payload := basePayload(draft)
	if draft.CustomerNeedsLoaner {
		payload.Loaner = loanerPayload(draft.Loaner)
	}
	payload.LineItems = payloadLineItems(draft.LineItems, false)
	return payload
}

func (a LegacyAdapter) ToUpdatePayload(original *models.Deal, draft Draft) Payload {
	return withUpdateMarkers(a.ToCreatePayload(draft), original, draft)
}

func basePayload(draft Draft) Payload {
	// unknown values pass through and are rejected by validation
	status := enums.DealStatus(strings.TrimSpace(string(draft.Status)))
	if status == "" {
		status = enums.DealStatusPending
	}
	priority := enums.DealPriority(strings.TrimSpace(string(draft.Priority)))
	if priority == "" {
		priority = enums.DealPriorityMedium
	}

	return Payload{
		DraftKey:              draft.DraftKey,
		JobNumber:             strings.TrimSpace(draft.JobNumber),
		Title:                 strings.TrimSpace(draft.Title),
		TitleIsCustom:         cloneBool(draft.TitleIsCustom),
		Description:           optionalString(draft.Description),
		Status:                status,
		Priority:              priority,
		CustomerNeedsLoaner:   draft.CustomerNeedsLoaner,
		SalesConsultantID:     nonNilUUID(draft.SalesConsultantID),
		FinanceManagerID:      nonNilUUID(draft.FinanceManagerID),
		DeliveryCoordinatorID: nonNilUUID(draft.DeliveryCoordinatorID),
		VendorID:              nonNilUUID(draft.VendorID),
		VehicleID:             nonNilUUID(draft.VehicleID),
		Customer: CustomerPayload{
			Name:       strings.TrimSpace(draft.Customer.Name),
			Phone:      NormalizePhone(draft.Customer.Phone),
			Email:      strings.TrimSpace(draft.Customer.Email),
			SpouseName: optionalString(draft.Customer.SpouseName),
			Notes:      optionalString(draft.Customer.Notes),
		},
	}
}

func loanerPayload(form LoanerForm) *LoanerPayload {
	loaner := &LoanerPayload{
		Number: strings.TrimSpace(form.Number),
		Notes:  optionalString(form.Notes),
	}
	if d, err := types.ParseDate(form.ExpectedReturnDate); err == nil {
		loaner.ExpectedReturnDate = &d
	}
	return loaner
}

// payloadLineItems copies items, enforcing scheduling exclusivity: scheduled items
// carry no reason and unscheduled items carry no date.
func payloadLineItems(items []LineItem, dropBlankProduct bool) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if dropBlankProduct && item.ProductID == uuid.Nil {
			continue
		}
		next := item.normalized()
		next.ID = cloneUUID(item.ID)
		next.VendorID = nonNilUUID(item.VendorID)
		if next.RequiresScheduling {
			next.NoScheduleReason = nil
			next.PromisedDate = cloneDate(item.PromisedDate)
			if next.PromisedDate != nil && next.PromisedDate.IsZero() {
				next.PromisedDate = nil
			}
		} else {
			next.PromisedDate = nil
			next.NoScheduleReason = optionalString(deref(item.NoScheduleReason))
		}
		out = append(out, next)
	}
	return out
}

func withUpdateMarkers(payload Payload, original *models.Deal, draft Draft) Payload {
	switch {
	case original != nil && original.ID != uuid.Nil:
		id := original.ID
		updatedAt := original.UpdatedAt
		payload.ID = &id
		payload.ExpectedVersion = original.Version
		payload.ExpectedUpdatedAt = &updatedAt
	case draft.ID != nil:
		payload.ID = cloneUUID(draft.ID)
		payload.ExpectedVersion = draft.Version
		if draft.UpdatedAt != nil {
			updatedAt := *draft.UpdatedAt
			payload.ExpectedUpdatedAt = &updatedAt
		}
	}
	return payload
}

func nonNilUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return cloneUUID(id)
}
