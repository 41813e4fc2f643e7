package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
)

// DealSavedEvent is emitted after a deal aggregate save commits.
type DealSavedEvent struct {
	DealID        uuid.UUID        `json:"deal_id"`
	JobNumber     string           `json:"job_number"`
	Status        enums.DealStatus `json:"status"`
	Version       int64            `json:"version"`
	Op            string           `json:"op"`
	LineItemCount int              `json:"line_item_count"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
}
