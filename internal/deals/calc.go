package deals

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
)

const (
	// VendorLabelNone is shown when no vendor is involved in a deal.
	VendorLabelNone = "none"
	// VendorLabelMixed is shown when off-site work is split across vendors.
	VendorLabelMixed = "Mixed"
)

// TotalAmount sums unit_price * quantity.
func TotalAmount(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(lineTotal(item))
	}
	return total
}

// Profit returns (unit_price - cost) * quantity; a missing cost counts as zero.
func Profit(item LineItem) decimal.Decimal {
	cost := decimal.Zero
	if item.Cost.Valid {
		cost = item.Cost.Decimal
	}
	return item.UnitPrice.Sub(cost).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func TotalProfit(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(Profit(item))
	}
	return total
}

// CalculateTotals derives subtotal, tax, total and profit. Tax is rounded to cents.
func CalculateTotals(items []LineItem, taxRate decimal.Decimal) Totals {
	subtotal := TotalAmount(items)
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal.Add(tax),
		Profit:    TotalProfit(items),
		ItemCount: len(items),
	}
}

func lineTotal(item LineItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// VehicleDescription returns the deal title when it is custom, otherwise
// "{year} {make} {model}" of the attached vehicle. The stored title_is_custom flag
// wins over the title pattern heuristic when set.
func VehicleDescription(deal *models.Deal) string {
	if deal == nil {
		return ""
	}
	title := strings.TrimSpace(deal.Title)
	if title != "" && titleIsCustom(deal) {
		return title
	}
	if desc := describeVehicle(deal.Vehicle); desc != "" {
		return desc
	}
	return title
}

func titleIsCustom(deal *models.Deal) bool {
	if deal.TitleIsCustom != nil {
		return *deal.TitleIsCustom
	}
	return !IsGenericTitle(deal.Title, deal.JobNumber)
}

// IsGenericTitle reports whether title matches one of the auto-generated title
// templates. This is a heuristic: titles produced by a template not listed here
// are treated as custom.
func IsGenericTitle(title, jobNumber string) bool {
	t := strings.ToLower(strings.Join(strings.Fields(title), " "))
	switch t {
	case "", "untitled deal", "new deal", "untitled":
		return true
	}
	if strings.HasPrefix(t, "deal #") {
		return true
	}
	job := strings.ToLower(strings.TrimSpace(jobNumber))
	if job != "" && (t == "deal "+job || t == "job "+job) {
		return true
	}
	return false
}

func describeVehicle(v *models.Vehicle) string {
	if v == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	if v.Year > 0 {
		parts = append(parts, strconv.Itoa(v.Year))
	}
	for _, p := range []string{v.Make, v.Model} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// VendorLabel names the vendor doing the off-site work on items. Per-item vendors are
// the source of truth; dealVendorName is only used when no item is off-site.
func VendorLabel(items []LineItem, vendorNames map[uuid.UUID]string, dealVendorName string) string {
	vendors := OffSiteVendorIDs(items)
	switch len(vendors) {
	case 0:
		if name := strings.TrimSpace(dealVendorName); name != "" {
			return name
		}
		return VendorLabelNone
	case 1:
		if name := strings.TrimSpace(vendorNames[vendors[0]]); name != "" {
			return name
		}
		return vendors[0].String()
	default:
		return VendorLabelMixed
	}
}

// OffSiteVendorIDs returns the distinct vendor ids of off-site items in first-seen order.
func OffSiteVendorIDs(items []LineItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, item := range items {
		if !item.IsOffSite || item.VendorID == nil || *item.VendorID == uuid.Nil {
			continue
		}
		if _, ok := seen[*item.VendorID]; ok {
			continue
		}
		seen[*item.VendorID] = struct{}{}
		ids = append(ids, *item.VendorID)
	}
	return ids
}
