package deals

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dealdesk-backend/pkg/types"
)

// RawLineItem is a loosely typed line item as decoded from JSON, possibly mixing
// snake_case, camelCase and legacy key spellings.
type RawLineItem map[string]any

// Accepted spellings per field, in priority order.
var (
	idKeys         = []string{"id"}
	productKeys    = []string{"product_id", "productId"}
	priceKeys      = []string{"unit_price", "unitPrice", "price"}
	costKeys       = []string{"cost", "unit_cost", "unitCost"}
	quantityKeys   = []string{"quantity_used", "quantity", "qty"}
	offSiteKeys    = []string{"is_off_site", "isOffSite"}
	vendorKeys     = []string{"vendor_id", "vendorId"}
	schedulingKeys = []string{"requires_scheduling", "requiresScheduling"}
	promisedKeys   = []string{"promised_date", "promisedDate", "scheduled_date"}
	reasonKeys     = []string{"no_schedule_reason", "noScheduleReason"}
)

// ToCanonicalLineItem resolves alternate spellings into one LineItem. Malformed
// values fall back to the field default; it never fails.
func ToCanonicalLineItem(raw RawLineItem) LineItem {
	item := LineItem{
		UnitPrice: decimal.Zero,
		Quantity:  1,
	}
	if raw == nil {
		return item
	}

	if id, ok := coerceUUID(pick(raw, idKeys)); ok {
		item.ID = &id
	}
	if product, ok := coerceUUID(pick(raw, productKeys)); ok {
		item.ProductID = product
	}
	if price, ok := coerceDecimal(pick(raw, priceKeys)); ok {
		item.UnitPrice = price
	}
	if cost, ok := coerceDecimal(pick(raw, costKeys)); ok {
		item.Cost = decimal.NullDecimal{Decimal: cost, Valid: true}
	}
	if qty, ok := coerceDecimal(pick(raw, quantityKeys)); ok {
		item.Quantity = clampQuantity(qty)
	}
	item.IsOffSite = coerceBool(pick(raw, offSiteKeys))
	if vendor, ok := coerceUUID(pick(raw, vendorKeys)); ok {
		item.VendorID = &vendor
	}
	item.RequiresScheduling = coerceBool(pick(raw, schedulingKeys))
	if date, ok := coerceDate(pick(raw, promisedKeys)); ok {
		item.PromisedDate = &date
	}
	if reason, ok := coerceString(pick(raw, reasonKeys)); ok {
		item.NoScheduleReason = &reason
	}

	return item.normalized()
}

// normalized applies the numeric floors shared by every construction path.
func (i LineItem) normalized() LineItem {
	if i.UnitPrice.IsNegative() {
		i.UnitPrice = decimal.Zero
	}
	if i.Quantity < 1 {
		i.Quantity = 1
	}
	return i
}

// clampQuantity bounds q before truncating so huge values never wrap.
func clampQuantity(q decimal.Decimal) int {
	if q.LessThan(decimal.NewFromInt(1)) {
		return 1
	}
	if q.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return math.MaxInt32
	}
	return int(q.IntPart())
}

// pick returns the first present, non-blank value among keys.
func pick(raw map[string]any, keys []string) any {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func coerceDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		return coerceDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		return coerceDecimal(n.String())
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		if d, ok := coerceDecimal(v); ok {
			return !d.IsZero()
		}
		return false
	}
}

func coerceUUID(v any) (uuid.UUID, bool) {
	switch id := v.(type) {
	case uuid.UUID:
		return id, id != uuid.Nil
	case *uuid.UUID:
		if id == nil {
			return uuid.Nil, false
		}
		return *id, *id != uuid.Nil
	case string:
		parsed, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil || parsed == uuid.Nil {
			return uuid.Nil, false
		}
		return parsed, true
	default:
		return uuid.Nil, false
	}
}

func coerceDate(v any) (types.Date, bool) {
	switch d := v.(type) {
	case types.Date:
		return d, !d.IsZero()
	case *types.Date:
		if d == nil {
			return types.Date{}, false
		}
		return *d, !d.IsZero()
	case time.Time:
		if d.IsZero() {
			return types.Date{}, false
		}
		return types.DateOf(d), true
	case string:
		parsed, err := types.ParseDate(d)
		if err != nil {
			return types.Date{}, false
		}
		return parsed, true
	default:
		return types.Date{}, false
	}
}

func coerceString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	default:
		return "", false
	}
}
