package deals

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
)

const defaultSweepBatch = 500

// LineItemSweeper removes line item rows left behind by saves whose stale-row
// cleanup failed. Only generations older than the deal's published one are
// touched, so rows of an in-flight save are never collected.
type LineItemSweeper struct {
	db *gorm.DB
}

func NewLineItemSweeper(db *gorm.DB) *LineItemSweeper {
	return &LineItemSweeper{db: db}
}

// SweepStaleLineItems deletes up to limit superseded rows and reports how many went.
func (s *LineItemSweeper) SweepStaleLineItems(ctx context.Context, tx *gorm.DB, limit int) (int64, error) {
	conn := tx
	if conn == nil {
		conn = s.db
	}
	if conn == nil {
		return 0, fmt.Errorf("database handle required")
	}
	if limit <= 0 {
		limit = defaultSweepBatch
	}
	conn = conn.WithContext(ctx)
	stale := conn.Model(&models.DealLineItem{}).
		Select("deal_line_items.id").
		Joins("JOIN deals ON deals.id = deal_line_items.deal_id").
		Where("deal_line_items.generation < deals.line_item_generation").
		Limit(limit)
	res := conn.Where("id IN (?)", stale).Delete(&models.DealLineItem{})
	return res.RowsAffected, res.Error
}
