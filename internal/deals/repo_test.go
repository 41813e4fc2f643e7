package deals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	"github.com/angelmondragon/dealdesk-backend/pkg/pagination"
)

func setupDealsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	vendors := `
CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	vehicles := `
CREATE TABLE IF NOT EXISTS vehicles (
  id TEXT PRIMARY KEY,
  year INTEGER,
  make TEXT NOT NULL,
  model TEXT NOT NULL,
  vin TEXT,
  stock_number TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	deals := `
CREATE TABLE IF NOT EXISTS deals (
  id TEXT PRIMARY KEY,
  job_number TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  description TEXT,
  status TEXT NOT NULL,
  priority TEXT NOT NULL,
  customer_needs_loaner INTEGER NOT NULL DEFAULT 0,
  loaner_number TEXT,
  loaner_expected_return_date TEXT,
  loaner_notes TEXT,
  sales_consultant_id TEXT,
  finance_manager_id TEXT,
  delivery_coordinator_id TEXT,
  vendor_id TEXT,
  vehicle_id TEXT,
  title_is_custom INTEGER,
  version INTEGER NOT NULL DEFAULT 1,
  line_item_generation INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	lineItems := `
CREATE TABLE IF NOT EXISTS deal_line_items (
  id TEXT PRIMARY KEY,
  deal_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  unit_price TEXT NOT NULL,
  cost TEXT,
  quantity INTEGER NOT NULL,
  is_off_site INTEGER NOT NULL DEFAULT 0,
  vendor_id TEXT,
  requires_scheduling INTEGER NOT NULL DEFAULT 0,
  promised_date TEXT,
  no_schedule_reason TEXT,
  generation INTEGER NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	transactions := `
CREATE TABLE IF NOT EXISTS deal_transactions (
  id TEXT PRIMARY KEY,
  deal_id TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  spouse_name TEXT,
  subtotal TEXT NOT NULL,
  tax TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	for _, stmt := range []string{vendors, vehicles, deals, lineItems, transactions} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func seedVendor(t *testing.T, db *gorm.DB, name string) models.Vendor {
	t.Helper()
	vendor := models.Vendor{ID: uuid.New(), Name: name, IsActive: true}
	require.NoError(t, db.Create(&vendor).Error)
	return vendor
}

func seedVehicle(t *testing.T, db *gorm.DB) models.Vehicle {
	t.Helper()
	vehicle := models.Vehicle{ID: uuid.New(), Year: 2022, Make: "Honda", Model: "Accord"}
	require.NoError(t, db.Create(&vehicle).Error)
	return vehicle
}

func newDealRow(job string) *models.Deal {
	return &models.Deal{
		ID:        uuid.New(),
		JobNumber: job,
		Title:     "Deal " + job,
		Status:    enums.DealStatusPending,
		Priority:  enums.DealPriorityMedium,
		Version:   1,
	}
}

// flipGeneration publishes generation on the deal at its current version.
func flipGeneration(t *testing.T, repo Repository, dealID uuid.UUID, generation int64) {
	t.Helper()
	current, err := repo.FindDealForUpdate(context.Background(), dealID)
	require.NoError(t, err)
	flipped, err := repo.SetLineItemGeneration(context.Background(), dealID, generation, current.Version)
	require.NoError(t, err)
	require.True(t, flipped)
}

func countRows(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestRepositoryFindDealReturnsCurrentGeneration(t *testing.T) {
	ctx := context.Background()
	db := setupDealsTestDB(t)
	repo := NewRepository(db)

	vehicle := seedVehicle(t, db)
	deal := newDealRow("JOB-1")
	deal.VehicleID = &vehicle.ID
	require.NoError(t, repo.CreateDeal(ctx, deal))

	items := []LineItem{priced(100, 1), priced(50, 2)}
	require.NoError(t, repo.CreateLineItems(ctx, lineItemModels(deal.ID, 0, items)))
	// a half-written next generation stays invisible until the flip
	require.NoError(t, repo.CreateLineItems(ctx, lineItemModels(deal.ID, 1, []LineItem{priced(5, 1)})))

	found, err := repo.FindDeal(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, found.LineItems, 2)
	assert.Equal(t, 0, found.LineItems[0].Position)
	assert.True(t, found.LineItems[0].UnitPrice.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, found.Vehicle)
	assert.Equal(t, "Accord", found.Vehicle.Model)
	assert.Nil(t, found.Transaction)

	flipGeneration(t, repo, deal.ID, 1)
	found, err = repo.FindDeal(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, found.LineItems, 1)
	assert.Equal(t, int64(1), found.LineItemGeneration)
	assert.Equal(t, int64(2), found.Version)

	removed, err := repo.DeleteStaleLineItems(ctx, deal.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	rows, err := repo.FindLineItems(ctx, deal.ID, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRepositoryFindDealMissing(t *testing.T) {
	repo := NewRepository(setupDealsTestDB(t))
	_, err := repo.FindDeal(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = repo.FindDealForUpdate(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	flipped, err := repo.SetLineItemGeneration(context.Background(), uuid.New(), 1, 1)
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestRepositoryUpdateDealChecksVersion(t *testing.T) {
	ctx := context.Background()
	db := setupDealsTestDB(t)
	repo := NewRepository(db)
	deal := newDealRow("JOB-2")
	require.NoError(t, repo.CreateDeal(ctx, deal))

	matched, err := repo.UpdateDeal(ctx, deal.ID, 1, map[string]any{"title": "Tint"})
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = repo.UpdateDeal(ctx, deal.ID, 1, map[string]any{"title": "Stale"})
	require.NoError(t, err)
	assert.False(t, matched)

	current, err := repo.FindDealForUpdate(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current.Version, "column writes leave the version alone")
	assert.Equal(t, "Tint", current.Title)

	flipped, err := repo.SetLineItemGeneration(ctx, deal.ID, 1, 1)
	require.NoError(t, err)
	assert.True(t, flipped)

	matched, err = repo.UpdateDeal(ctx, deal.ID, 1, map[string]any{"title": "Stale"})
	require.NoError(t, err)
	assert.False(t, matched)
	flipped, err = repo.SetLineItemGeneration(ctx, deal.ID, 2, 1)
	require.NoError(t, err)
	assert.False(t, flipped)

	// no expected version skips the check
	matched, err = repo.UpdateDeal(ctx, deal.ID, 0, map[string]any{"description": nil})
	require.NoError(t, err)
	assert.True(t, matched)
	current, err = repo.FindDealForUpdate(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.Version)
	assert.Equal(t, int64(1), current.LineItemGeneration)
	assert.Equal(t, "Tint", current.Title)
}

func TestRepositoryTransactionIsUniquePerDeal(t *testing.T) {
	ctx := context.Background()
	db := setupDealsTestDB(t)
	repo := NewRepository(db)
	deal := newDealRow("JOB-3")
	require.NoError(t, repo.CreateDeal(ctx, deal))

	existing, err := repo.FindTransactionByDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Nil(t, existing)

	first := &models.Transaction{ID: uuid.New(), DealID: deal.ID, CustomerName: "Dana", Subtotal: decimal.NewFromInt(10), Tax: decimal.Zero, TotalAmount: decimal.NewFromInt(10)}
	created, err := repo.CreateTransaction(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := &models.Transaction{ID: uuid.New(), DealID: deal.ID, CustomerName: "Sam", Subtotal: decimal.Zero, Tax: decimal.Zero, TotalAmount: decimal.Zero}
	created, err = repo.CreateTransaction(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), countRows(t, db, &models.Transaction{}, "deal_id = ?", deal.ID))

	require.NoError(t, repo.UpdateTransaction(ctx, first.ID, map[string]any{"customer_name": "Dana Reyes"}))
	existing, err = repo.FindTransactionByDeal(ctx, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, "Dana Reyes", existing.CustomerName)

	err = repo.UpdateTransaction(ctx, uuid.New(), map[string]any{"customer_name": "nobody"})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	db := setupDealsTestDB(t)
	repo := NewRepository(db)

	sentinel := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).CreateDeal(ctx, newDealRow("JOB-4")); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, int64(0), countRows(t, db, &models.Deal{}, "job_number = ?", "JOB-4"))
	assert.Same(t, repo, repo.WithTx(nil))
}

func TestRepositoryListDealsPagesAndFilters(t *testing.T) {
	ctx := context.Background()
	db := setupDealsTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		deal := newDealRow("JOB-L" + string(rune('A'+i)))
		deal.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		deal.UpdatedAt = deal.CreatedAt
		if i%2 == 0 {
			deal.Status = enums.DealStatusScheduled
		}
		require.NoError(t, repo.CreateDeal(ctx, deal))
	}

	rows, err := repo.ListDeals(ctx, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	page, more := pagination.SplitPage(rows, 2)
	assert.True(t, more)
	assert.Equal(t, "JOB-LE", page[0].JobNumber)
	assert.Equal(t, "JOB-LD", page[1].JobNumber)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: page[1].CreatedAt, ID: page[1].ID})
	rows, err = repo.ListDeals(ctx, pagination.Params{Limit: 2, Cursor: cursor}, ListFilters{})
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "JOB-LC", rows[0].JobNumber)

	scheduled := enums.DealStatusScheduled
	rows, err = repo.ListDeals(ctx, pagination.Params{Limit: 10}, ListFilters{Status: &scheduled})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = repo.ListDeals(ctx, pagination.Params{Cursor: "%%%"}, ListFilters{})
	assert.Error(t, err)
}

func TestRepositoryFindVendorNames(t *testing.T) {
	ctx := context.Background()
	db := setupDealsTestDB(t)
	repo := NewRepository(db)
	v1 := seedVendor(t, db, "Shine Detail")
	v2 := seedVendor(t, db, "Glass Pros")

	names, err := repo.FindVendorNames(ctx, []uuid.UUID{v1.ID, v2.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]string{v1.ID: "Shine Detail", v2.ID: "Glass Pros"}, names)

	names, err = repo.FindVendorNames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}
