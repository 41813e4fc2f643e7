package deals

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	"github.com/angelmondragon/dealdesk-backend/pkg/types"
)

// Convention selects the key spelling used when a draft leaves the service.
type Convention string

const (
	ConventionSnake Convention = "snake"
	ConventionCamel Convention = "camel"
)

// ParseConvention maps a query value to a Convention; empty means snake.
func ParseConvention(value string) (Convention, error) {
	switch Convention(strings.ToLower(strings.TrimSpace(value))) {
	case "", ConventionSnake:
		return ConventionSnake, nil
	case ConventionCamel:
		return ConventionCamel, nil
	default:
		return "", fmt.Errorf("unknown naming convention %q", value)
	}
}

// fieldName pairs the two spellings of one wire field.
type fieldName struct {
	snake string
	camel string
}

func (c Convention) key(f fieldName) string {
	if c == ConventionCamel {
		return f.camel
	}
	return f.snake
}

func (f fieldName) keys() []string {
	if f.snake == f.camel {
		return []string{f.snake}
	}
	return []string{f.snake, f.camel}
}

var (
	fID                 = fieldName{"id", "id"}
	fProductID          = fieldName{"product_id", "productId"}
	fUnitPrice          = fieldName{"unit_price", "unitPrice"}
	fCost               = fieldName{"cost", "cost"}
	fQuantity           = fieldName{"quantity", "quantity"}
	fIsOffSite          = fieldName{"is_off_site", "isOffSite"}
	fVendorID           = fieldName{"vendor_id", "vendorId"}
	fRequiresScheduling = fieldName{"requires_scheduling", "requiresScheduling"}
	fPromisedDate       = fieldName{"promised_date", "promisedDate"}
	fNoScheduleReason   = fieldName{"no_schedule_reason", "noScheduleReason"}

	fDraftKey              = fieldName{"draft_key", "draftKey"}
	fVersion               = fieldName{"version", "version"}
	fUpdatedAt             = fieldName{"updated_at", "updatedAt"}
	fJobNumber             = fieldName{"job_number", "jobNumber"}
	fTitle                 = fieldName{"title", "title"}
	fTitleIsCustom         = fieldName{"title_is_custom", "titleIsCustom"}
	fDescription           = fieldName{"description", "description"}
	fStatus                = fieldName{"status", "status"}
	fPriority              = fieldName{"priority", "priority"}
	fCustomerNeedsLoaner   = fieldName{"customer_needs_loaner", "customerNeedsLoaner"}
	fLoanerForm            = fieldName{"loaner_form", "loanerForm"}
	fLoanerNumber          = fieldName{"loaner_number", "loanerNumber"}
	fExpectedReturnDate    = fieldName{"expected_return_date", "expectedReturnDate"}
	fNotes                 = fieldName{"notes", "notes"}
	fSalesConsultantID     = fieldName{"sales_consultant_id", "salesConsultantId"}
	fFinanceManagerID      = fieldName{"finance_manager_id", "financeManagerId"}
	fDeliveryCoordinatorID = fieldName{"delivery_coordinator_id", "deliveryCoordinatorId"}
	fCustomer              = fieldName{"customer", "customer"}
	fName                  = fieldName{"name", "name"}
	fPhone                 = fieldName{"phone", "phone"}
	fEmail                 = fieldName{"email", "email"}
	fSpouseName            = fieldName{"spouse_name", "spouseName"}
	fLineItems             = fieldName{"line_items", "lineItems"}
	fVehicleID             = fieldName{"vehicle_id", "vehicleId"}
)

// legacy collection names for line items
var jobPartsKeys = []string{"job_parts", "jobParts"}

// RenderLineItem renders item with the keys of one convention.
func RenderLineItem(item LineItem, c Convention) map[string]any {
	out := map[string]any{
		c.key(fProductID):          uuidString(&item.ProductID),
		c.key(fUnitPrice):          item.UnitPrice,
		c.key(fCost):               nullDecimal(item.Cost),
		c.key(fQuantity):           item.Quantity,
		c.key(fIsOffSite):          item.IsOffSite,
		c.key(fVendorID):           uuidString(item.VendorID),
		c.key(fRequiresScheduling): item.RequiresScheduling,
		c.key(fPromisedDate):       dateString(item.PromisedDate),
		c.key(fNoScheduleReason):   stringOrNil(item.NoScheduleReason),
	}
	if item.ID != nil {
		out[c.key(fID)] = item.ID.String()
	}
	return out
}

// RenderDraft renders the whole draft with the keys of one convention.
func RenderDraft(d Draft, c Convention) map[string]any {
	items := make([]map[string]any, 0, len(d.LineItems))
	for _, item := range d.LineItems {
		items = append(items, RenderLineItem(item, c))
	}

	out := map[string]any{
		c.key(fDraftKey):            d.DraftKey,
		c.key(fID):                  uuidString(d.ID),
		c.key(fVersion):             d.Version,
		c.key(fJobNumber):           d.JobNumber,
		c.key(fTitle):               d.Title,
		c.key(fTitleIsCustom):       d.TitleIsCustom,
		c.key(fDescription):         d.Description,
		c.key(fStatus):              d.Status,
		c.key(fPriority):            d.Priority,
		c.key(fCustomerNeedsLoaner): d.CustomerNeedsLoaner,
		c.key(fLoanerForm): map[string]any{
			c.key(fLoanerNumber):       d.Loaner.Number,
			c.key(fExpectedReturnDate): d.Loaner.ExpectedReturnDate,
			c.key(fNotes):              d.Loaner.Notes,
		},
		c.key(fSalesConsultantID):     uuidString(d.SalesConsultantID),
		c.key(fFinanceManagerID):      uuidString(d.FinanceManagerID),
		c.key(fDeliveryCoordinatorID): uuidString(d.DeliveryCoordinatorID),
		c.key(fVendorID):              uuidString(d.VendorID),
		c.key(fVehicleID):             uuidString(d.VehicleID),
		c.key(fCustomer): map[string]any{
			c.key(fName):       d.Customer.Name,
			c.key(fPhone):      d.Customer.Phone,
			c.key(fEmail):      d.Customer.Email,
			c.key(fSpouseName): d.Customer.SpouseName,
			c.key(fNotes):      d.Customer.Notes,
		},
		c.key(fLineItems): items,
	}
	if d.UpdatedAt != nil {
		out[c.key(fUpdatedAt)] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// ParseDraft builds a draft from a decoded JSON object written in either convention.
// Line items are also accepted under the legacy job_parts collection. Values that
// cannot be coerced are left at their zero value.
func ParseDraft(raw map[string]any) Draft {
	d := Draft{LineItems: []LineItem{}}
	if raw == nil {
		return d
	}

	d.DraftKey, _ = coerceString(pickField(raw, fDraftKey))
	if id, ok := coerceUUID(pickField(raw, fID)); ok {
		d.ID = &id
	}
	if v, ok := coerceDecimal(pickField(raw, fVersion)); ok {
		d.Version = v.IntPart()
	}
	if s, ok := coerceString(pickField(raw, fUpdatedAt)); ok {
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
			d.UpdatedAt = &t
		}
	}
	d.JobNumber, _ = coerceString(pickField(raw, fJobNumber))
	d.Title, _ = coerceString(pickField(raw, fTitle))
	if v := pickField(raw, fTitleIsCustom); v != nil {
		custom := coerceBool(v)
		d.TitleIsCustom = &custom
	}
	d.Description, _ = coerceString(pickField(raw, fDescription))
	if s, ok := coerceString(pickField(raw, fStatus)); ok {
		d.Status = enums.DealStatus(strings.TrimSpace(s))
	}
	if s, ok := coerceString(pickField(raw, fPriority)); ok {
		d.Priority = enums.DealPriority(strings.TrimSpace(s))
	}
	d.CustomerNeedsLoaner = coerceBool(pickField(raw, fCustomerNeedsLoaner))

	// loaner fields may be nested under loaner_form or sent flat with a loaner_ prefix
	if loaner := asObject(pickField(raw, fLoanerForm)); loaner != nil {
		d.Loaner.Number, _ = coerceString(pickField(loaner, fLoanerNumber))
		d.Loaner.ExpectedReturnDate, _ = coerceString(pickField(loaner, fExpectedReturnDate))
		d.Loaner.Notes, _ = coerceString(pickFirst(loaner, "notes", "loaner_notes", "loanerNotes"))
	} else {
		d.Loaner.Number, _ = coerceString(pickField(raw, fLoanerNumber))
		d.Loaner.ExpectedReturnDate, _ = coerceString(pickFirst(raw, "loaner_expected_return_date", "loanerExpectedReturnDate"))
		d.Loaner.Notes, _ = coerceString(pickFirst(raw, "loaner_notes", "loanerNotes"))
	}

	d.SalesConsultantID = optionalUUID(pickField(raw, fSalesConsultantID))
	d.FinanceManagerID = optionalUUID(pickField(raw, fFinanceManagerID))
	d.DeliveryCoordinatorID = optionalUUID(pickField(raw, fDeliveryCoordinatorID))
	d.VendorID = optionalUUID(pickField(raw, fVendorID))
	d.VehicleID = optionalUUID(pickField(raw, fVehicleID))

	if customer := asObject(pickField(raw, fCustomer)); customer != nil {
		d.Customer.Name, _ = coerceString(pickField(customer, fName))
		d.Customer.Phone, _ = coerceString(pickField(customer, fPhone))
		d.Customer.Email, _ = coerceString(pickField(customer, fEmail))
		d.Customer.SpouseName, _ = coerceString(pickField(customer, fSpouseName))
		d.Customer.Notes, _ = coerceString(pickField(customer, fNotes))
	}

	items := pickField(raw, fLineItems)
	if items == nil {
		items = pick(raw, jobPartsKeys)
	}
	if list, ok := items.([]any); ok {
		for _, entry := range list {
			if obj := asObject(entry); obj != nil {
				d.LineItems = append(d.LineItems, ToCanonicalLineItem(RawLineItem(obj)))
			}
		}
	}
	return d
}

func pickField(raw map[string]any, f fieldName) any {
	return pick(raw, f.keys())
}

func pickFirst(raw map[string]any, keys ...string) any {
	return pick(raw, keys)
}

func asObject(v any) map[string]any {
	switch obj := v.(type) {
	case map[string]any:
		return obj
	case RawLineItem:
		return obj
	default:
		return nil
	}
}

func optionalUUID(v any) *uuid.UUID {
	if id, ok := coerceUUID(v); ok {
		return &id
	}
	return nil
}

func uuidString(id *uuid.UUID) any {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id.String()
}

func dateString(d *types.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal
}
