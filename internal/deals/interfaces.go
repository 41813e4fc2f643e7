package deals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
	"github.com/angelmondragon/dealdesk-backend/pkg/outbox"
	"github.com/angelmondragon/dealdesk-backend/pkg/pagination"
)

// Repository defines persistence operations for the deal aggregate tables.
// Reads of line items only ever return the deal's current generation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateDeal(ctx context.Context, deal *models.Deal) error
	// UpdateDeal writes the parent columns without touching version or updated_at.
	// When expectedVersion is positive the row must still carry it. It reports
	// whether a row matched.
	UpdateDeal(ctx context.Context, id uuid.UUID, expectedVersion int64, updates map[string]any) (bool, error)
	FindDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	FindDealForUpdate(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	ListDeals(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Deal, error)
	// FindTransactionByDeal returns nil without error when the deal has no transaction.
	FindTransactionByDeal(ctx context.Context, dealID uuid.UUID) (*models.Transaction, error)
	// CreateTransaction reports false when another transaction row already exists.
	CreateTransaction(ctx context.Context, txn *models.Transaction) (bool, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateLineItems(ctx context.Context, items []models.DealLineItem) error
	// SetLineItemGeneration publishes generation and bumps the version in one
	// statement. It reports false when the row no longer carries expectedVersion.
	SetLineItemGeneration(ctx context.Context, dealID uuid.UUID, generation, expectedVersion int64) (bool, error)
	// DeleteStaleLineItems removes every row of the deal outside currentGeneration.
	DeleteStaleLineItems(ctx context.Context, dealID uuid.UUID, currentGeneration int64) (int64, error)
	FindLineItems(ctx context.Context, dealID uuid.UUID, generation int64) ([]models.DealLineItem, error)
	FindVendorNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// saveLocker hands out a cross-instance lock per deal save.
type saveLocker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, ok bool, err error)
}

// eventEmitter queues domain events inside a caller-owned transaction.
type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
