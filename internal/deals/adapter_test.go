package deals

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	"github.com/angelmondragon/dealdesk-backend/pkg/types"
)

func sampleEntity() *models.Deal {
	vendor := uuid.New()
	loaner := "L-12"
	notes := "keys at desk"
	reason := "walk-in"
	returnDate := types.Date{Year: 2025, Month: 2, Day: 1}
	promised := types.Date{Year: 2025, Month: 1, Day: 20}
	spouse := "Sam"
	return &models.Deal{
		ID:                       uuid.New(),
		JobNumber:                "JOB-7",
		Title:                    "Deal JOB-7",
		Status:                   enums.DealStatusScheduled,
		Priority:                 enums.DealPriorityHigh,
		CustomerNeedsLoaner:      true,
		LoanerNumber:             &loaner,
		LoanerExpectedReturnDate: &returnDate,
		LoanerNotes:              &notes,
		Version:                  3,
		UpdatedAt:                time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC),
		Transaction: &models.Transaction{
			CustomerName:  "Dana Reyes",
			CustomerPhone: "+15551234567",
			CustomerEmail: "dana@example.com",
			SpouseName:    &spouse,
		},
		LineItems: []models.DealLineItem{
			{ID: uuid.New(), ProductID: uuid.New(), UnitPrice: decimal.NewFromInt(100), Quantity: 1, IsOffSite: true, VendorID: &vendor, RequiresScheduling: true, PromisedDate: &promised},
			{ID: uuid.New(), ProductID: uuid.New(), UnitPrice: decimal.NewFromInt(50), Quantity: 2, NoScheduleReason: &reason},
		},
	}
}

func TestEntityToDraftNilSafe(t *testing.T) {
	draft := EntityToDraft(nil)
	assert.NotEmpty(t, draft.DraftKey)
	assert.Nil(t, draft.ID)
	assert.Equal(t, enums.DealStatusPending, draft.Status)
	assert.Equal(t, enums.DealPriorityMedium, draft.Priority)
	assert.Empty(t, draft.LineItems)
	assert.Equal(t, LoanerForm{}, draft.Loaner)
}

func TestEntityToDraftCopiesWithoutSharing(t *testing.T) {
	entity := sampleEntity()
	draft := EntityToDraft(entity)

	require.NotNil(t, draft.ID)
	assert.Equal(t, entity.ID, *draft.ID)
	assert.Equal(t, int64(3), draft.Version)
	require.NotNil(t, draft.UpdatedAt)
	assert.True(t, entity.UpdatedAt.Equal(*draft.UpdatedAt))
	assert.Equal(t, "L-12", draft.Loaner.Number)
	assert.Equal(t, "2025-02-01", draft.Loaner.ExpectedReturnDate)
	assert.Equal(t, "Dana Reyes", draft.Customer.Name)
	assert.Equal(t, "Sam", draft.Customer.SpouseName)
	require.Len(t, draft.LineItems, 2)
	assert.Equal(t, 2, draft.LineItems[1].Quantity)

	*draft.LineItems[0].VendorID = uuid.New()
	draft.LineItems[0].PromisedDate.Day = 28
	assert.NotEqual(t, *draft.LineItems[0].VendorID, *entity.LineItems[0].VendorID)
	assert.Equal(t, 20, entity.LineItems[0].PromisedDate.Day)
}

func TestDraftToUpdatePayloadCarriesMarkers(t *testing.T) {
	entity := sampleEntity()
	draft := EntityToDraft(entity)

	payload := DraftToUpdatePayload(entity, draft)
	require.NotNil(t, payload.ID)
	assert.Equal(t, entity.ID, *payload.ID)
	assert.Equal(t, int64(3), payload.ExpectedVersion)
	require.NotNil(t, payload.ExpectedUpdatedAt)
	assert.True(t, entity.UpdatedAt.Equal(*payload.ExpectedUpdatedAt))

	fromDraft := DraftToUpdatePayload(nil, draft)
	require.NotNil(t, fromDraft.ID)
	assert.Equal(t, entity.ID, *fromDraft.ID)
	assert.Equal(t, int64(3), fromDraft.ExpectedVersion)
}

func TestRoundTripKeepsLineItemCount(t *testing.T) {
	entity := sampleEntity()
	payload := DraftToUpdatePayload(entity, EntityToDraft(entity))
	assert.Len(t, payload.LineItems, len(entity.LineItems))
}

func TestLoanerClearing(t *testing.T) {
	draft := EntityToDraft(sampleEntity())
	draft.SetCustomerNeedsLoaner(false)

	assert.False(t, draft.CustomerNeedsLoaner)
	assert.Equal(t, LoanerForm{}, draft.Loaner)
	assert.Nil(t, DraftToCreatePayload(draft).Loaner)

	// the payload drops the loaner even if the form still holds text
	draft = EntityToDraft(sampleEntity())
	draft.CustomerNeedsLoaner = false
	assert.Nil(t, DraftToCreatePayload(draft).Loaner)

	draft.CustomerNeedsLoaner = true
	draft.Loaner.Number = "  "
	assert.Nil(t, DraftToCreatePayload(draft).Loaner)
	assert.NotNil(t, LegacyAdapter{}.ToCreatePayload(draft).Loaner)

	draft.Loaner.Number = " L-12 "
	loaner := DraftToCreatePayload(draft).Loaner
	require.NotNil(t, loaner)
	assert.Equal(t, "L-12", loaner.Number)
	require.NotNil(t, loaner.ExpectedReturnDate)
	assert.Equal(t, "2025-02-01", loaner.ExpectedReturnDate.String())
}

func TestSchedulingExclusivity(t *testing.T) {
	reason := "waiting on parts"
	date := types.Date{Year: 2025, Month: 1, Day: 20}
	draft := Draft{
		LineItems: []LineItem{
			{ProductID: uuid.New(), UnitPrice: decimal.NewFromInt(10), Quantity: 1, RequiresScheduling: true, PromisedDate: &date, NoScheduleReason: &reason},
			{ProductID: uuid.New(), UnitPrice: decimal.NewFromInt(10), Quantity: 1, RequiresScheduling: false, PromisedDate: &date, NoScheduleReason: &reason},
		},
	}

	payload := DraftToCreatePayload(draft)
	require.Len(t, payload.LineItems, 2)
	assert.Nil(t, payload.LineItems[0].NoScheduleReason)
	assert.NotNil(t, payload.LineItems[0].PromisedDate)
	assert.Nil(t, payload.LineItems[1].PromisedDate)
	require.NotNil(t, payload.LineItems[1].NoScheduleReason)
	assert.Equal(t, reason, *payload.LineItems[1].NoScheduleReason)

	// the draft is untouched
	assert.NotNil(t, draft.LineItems[0].NoScheduleReason)
}

func TestAdaptersDifferOnBlankRows(t *testing.T) {
	draft := Draft{
		LineItems: []LineItem{
			{ProductID: uuid.New(), UnitPrice: decimal.NewFromInt(10), Quantity: 1},
			{UnitPrice: decimal.Zero, Quantity: 1},
		},
	}
	assert.Len(t, NormalizedAdapter{}.ToCreatePayload(draft).LineItems, 1)

	legacy := LegacyAdapter{}.ToCreatePayload(draft)
	require.Len(t, legacy.LineItems, 2)
	res := ValidateLineItems(legacy.LineItems)
	require.False(t, res.OK)
	assert.Equal(t, CodeMissingProduct, res.Errors[0].Code)
	assert.Equal(t, 1, res.Errors[0].Index)
}

func TestBasePayloadNormalizes(t *testing.T) {
	draft := Draft{
		Title:       "  Tint job ",
		Description: "   ",
		Customer:    CustomerForm{Name: " Dana ", Phone: "(555) 123-4567", Email: " dana@example.com "},
		VendorID:    &uuid.Nil,
	}
	payload := DraftToCreatePayload(draft)
	assert.Equal(t, "Tint job", payload.Title)
	assert.Nil(t, payload.Description)
	assert.Equal(t, enums.DealStatusPending, payload.Status)
	assert.Equal(t, enums.DealPriorityMedium, payload.Priority)
	assert.Equal(t, "Dana", payload.Customer.Name)
	assert.Equal(t, "+15551234567", payload.Customer.Phone)
	assert.Equal(t, "dana@example.com", payload.Customer.Email)
	assert.Nil(t, payload.VendorID)
	assert.NotNil(t, payload.LineItems)
}

func TestNewAdapter(t *testing.T) {
	a, err := NewAdapter("")
	require.NoError(t, err)
	assert.Equal(t, "normalized", a.Name())

	a, err = NewAdapter(" LEGACY ")
	require.NoError(t, err)
	assert.IsType(t, LegacyAdapter{}, a)

	_, err = NewAdapter("experimental")
	assert.Error(t, err)
}
