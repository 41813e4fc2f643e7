package deals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/dealdesk-backend/internal/repo"
	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
	"github.com/angelmondragon/dealdesk-backend/pkg/pagination"
)

// currentGenerationFilter restricts preloaded line items to the deal's live generation.
const currentGenerationFilter = "generation = (SELECT d.line_item_generation FROM deals d WHERE d.id = deal_line_items.deal_id)"

type repository struct {
	repo.Base
}

// NewRepository builds a deals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) CreateDeal(ctx context.Context, deal *models.Deal) error {
	return r.DB(ctx).Create(deal).Error
}

func (r *repository) UpdateDeal(ctx context.Context, id uuid.UUID, expectedVersion int64, updates map[string]any) (bool, error) {
	query := r.DB(ctx).Model(&models.Deal{}).Where("id = ?", id)
	if expectedVersion > 0 {
		query = query.Where("version = ?", expectedVersion)
	}
	res := query.UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := r.DB(ctx).
		Preload("Vendor").
		Preload("Vehicle").
		Preload("Transaction").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Where(currentGenerationFilter).Order("position ASC")
		}).
		Where("id = ?", id).
		First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// FindDealForUpdate loads the parent row only, locking it where the dialect supports it.
func (r *repository) FindDealForUpdate(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := r.ForUpdate(ctx).Where("id = ?", id).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *repository) ListDeals(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Deal, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.DB(ctx).
		Preload("Vendor").
		Preload("Vehicle").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Where(currentGenerationFilter).Order("position ASC")
		}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Deal
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindTransactionByDeal(ctx context.Context, dealID uuid.UUID) (*models.Transaction, error) {
	var rows []models.Transaction
	if err := r.DB(ctx).Where("deal_id = ?", dealID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// CreateTransaction inserts txn unless the deal already has one. It reports whether
// the row was written.
func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) (bool, error) {
	res := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "deal_id"}}, DoNothing: true}).
		Create(txn)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.DB(ctx).Model(&models.Transaction{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.DealLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&items).Error
}

func (r *repository) SetLineItemGeneration(ctx context.Context, dealID uuid.UUID, generation, expectedVersion int64) (bool, error) {
	res := r.DB(ctx).Model(&models.Deal{}).
		Where("id = ? AND version = ?", dealID, expectedVersion).
		UpdateColumns(map[string]any{
			"line_item_generation": generation,
			"version":              gorm.Expr("version + 1"),
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteStaleLineItems(ctx context.Context, dealID uuid.UUID, currentGeneration int64) (int64, error) {
	res := r.DB(ctx).
		Where("deal_id = ? AND generation <> ?", dealID, currentGeneration).
		Delete(&models.DealLineItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) FindLineItems(ctx context.Context, dealID uuid.UUID, generation int64) ([]models.DealLineItem, error) {
	var rows []models.DealLineItem
	err := r.DB(ctx).
		Where("deal_id = ? AND generation = ?", dealID, generation).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindVendorNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var vendors []models.Vendor
	if err := r.DB(ctx).Select("id", "name").Where("id IN ?", ids).Find(&vendors).Error; err != nil {
		return nil, err
	}
	for _, v := range vendors {
		names[v.ID] = v.Name
	}
	return names, nil
}
