package deals

import (
	"strings"

	"github.com/google/uuid"
)

// Line item validation codes.
const (
	CodeNoLineItems              = "NO_LINE_ITEMS"
	CodeMissingProduct           = "MISSING_PRODUCT"
	CodeInvalidPrice             = "INVALID_PRICE"
	CodeInvalidQuantity          = "INVALID_QUANTITY"
	CodeVendorRequired           = "VENDOR_REQUIRED"
	CodePromisedDateRequired     = "PROMISED_DATE_REQUIRED"
	CodeSchedulingReasonRequired = "SCHEDULING_REASON_REQUIRED"
	CodeInvalidStatus            = "INVALID_STATUS"
	CodeInvalidPriority          = "INVALID_PRIORITY"
	CodeDuplicateJobNumber       = "DUPLICATE_JOB_NUMBER"
)

// FieldError points at one offending field. Index is -1 for set-level errors.
type FieldError struct {
	Field string `json:"field"`
	Index int    `json:"index"`
	Code  string `json:"code"`
}

// ValidationResult reports every rule violation found in a line item set.
type ValidationResult struct {
	OK     bool         `json:"ok"`
	Errors []FieldError `json:"errors,omitempty"`
}

// ValidateLineItems checks the business rules a line item set must satisfy before it
// is persisted. It reports all violations and never modifies items.
func ValidateLineItems(items []LineItem) ValidationResult {
	if len(items) == 0 {
		return ValidationResult{Errors: []FieldError{{Field: "line_items", Index: -1, Code: CodeNoLineItems}}}
	}

	var errs []FieldError
	add := func(idx int, field, code string) {
		errs = append(errs, FieldError{Field: field, Index: idx, Code: code})
	}

	for idx, item := range items {
		if item.ProductID == uuid.Nil {
			add(idx, "product_id", CodeMissingProduct)
		}
		if !item.UnitPrice.IsPositive() {
			add(idx, "unit_price", CodeInvalidPrice)
		}
		if item.Quantity < 1 {
			add(idx, "quantity", CodeInvalidQuantity)
		}
		if item.IsOffSite && (item.VendorID == nil || *item.VendorID == uuid.Nil) {
			add(idx, "vendor_id", CodeVendorRequired)
		}
		if item.RequiresScheduling {
			if item.PromisedDate == nil || item.PromisedDate.IsZero() {
				add(idx, "promised_date", CodePromisedDateRequired)
			}
		} else if item.NoScheduleReason == nil || strings.TrimSpace(*item.NoScheduleReason) == "" {
			add(idx, "no_schedule_reason", CodeSchedulingReasonRequired)
		}
	}

	if len(errs) > 0 {
		return ValidationResult{Errors: errs}
	}
	return ValidationResult{OK: true}
}

// validatePayload checks the deal-level fields and then the line items.
func validatePayload(p Payload) ValidationResult {
	var errs []FieldError
	if !p.Status.IsValid() {
		errs = append(errs, FieldError{Field: "status", Index: -1, Code: CodeInvalidStatus})
	}
	if !p.Priority.IsValid() {
		errs = append(errs, FieldError{Field: "priority", Index: -1, Code: CodeInvalidPriority})
	}
	items := ValidateLineItems(p.LineItems)
	errs = append(errs, items.Errors...)
	if len(errs) > 0 {
		return ValidationResult{Errors: errs}
	}
	return ValidationResult{OK: true}
}
