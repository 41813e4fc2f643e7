package deals

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealdesk-backend/pkg/db"
	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealdesk-backend/pkg/errors"
	"github.com/angelmondragon/dealdesk-backend/pkg/logger"
	"github.com/angelmondragon/dealdesk-backend/pkg/metrics"
	"github.com/angelmondragon/dealdesk-backend/pkg/outbox"
	"github.com/angelmondragon/dealdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/dealdesk-backend/pkg/pagination"
	"github.com/angelmondragon/dealdesk-backend/pkg/types"
)

// Save steps reported in error details and failure metrics.
const (
	StepValidate    = "validate"
	StepLock        = "lock"
	StepParent      = "parent"
	StepTransaction = "transaction"
	StepLineItems   = "line_items"
	StepEvents      = "events"
	StepReload      = "reload"
)

const (
	opCreate = "create"
	opUpdate = "update"

	transactionDealConstraint = "deal_transactions_deal_id_key"
	jobNumberConstraint       = "idx_deals_job_number"
)

// Service defines the deal aggregate operations used by the deals controller.
type Service interface {
	CreateDeal(ctx context.Context, draft Draft) (*DealDetail, error)
	UpdateDeal(ctx context.Context, id uuid.UUID, draft Draft) (*DealDetail, error)
	GetDeal(ctx context.Context, id uuid.UUID) (*DealDetail, error)
	GetDraft(ctx context.Context, id uuid.UUID) (*Draft, error)
	ListDeals(ctx context.Context, params pagination.Params, filters ListFilters) (*DealList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	adapter  Adapter
	locker   saveLocker
	events   eventEmitter
	guard    *saveGuard
	metrics  *metrics.DealSaveMetrics
	logg     *logger.Logger
	taxRate  decimal.Decimal
	location *time.Location
	now      func() time.Time
}

// ServiceParams bundles the dependencies required to build a deals service.
type ServiceParams struct {
	Repo Repository
	// TxRunner is optional; without it the save steps run outside a database transaction.
	TxRunner txRunner
	Adapter  Adapter
	// Locker is optional and guards saves across instances.
	Locker saveLocker
	// Events queues deal_created/deal_updated in the save transaction; it needs TxRunner.
	Events   eventEmitter
	Metrics  *metrics.DealSaveMetrics
	Logger   *logger.Logger
	TaxRate  decimal.Decimal
	Location *time.Location
	Now      func() time.Time
}

// NewService constructs the deal aggregate service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("deals repository is required")
	}
	if params.Events != nil && params.TxRunner == nil {
		return nil, fmt.Errorf("deal events require a transaction runner")
	}
	if params.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	adapter := params.Adapter
	if adapter == nil {
		adapter = NormalizedAdapter{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.Local
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.TxRunner,
		adapter:  adapter,
		locker:   params.Locker,
		events:   params.Events,
		guard:    &saveGuard{},
		metrics:  params.Metrics,
		logg:     logg,
		taxRate:  params.TaxRate,
		location: loc,
		now:      now,
	}, nil
}

// CreateDeal persists a new aggregate from draft and returns the re-read detail.
func (s *service) CreateDeal(ctx context.Context, draft Draft) (*DealDetail, error) {
	payload := s.adapter.ToCreatePayload(draft)
	return s.guarded(ctx, opCreate, createGuardKey(payload), func(ctx context.Context) (*DealDetail, int, error) {
		return s.create(ctx, payload)
	})
}

// UpdateDeal replaces the aggregate identified by id with draft. A draft carrying a
// version or updated_at marker is rejected with a conflict when the stored deal moved on.
func (s *service) UpdateDeal(ctx context.Context, id uuid.UUID, draft Draft) (*DealDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal id is required")
	}
	if draft.ID != nil && *draft.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft belongs to a different deal")
	}
	payload := s.adapter.ToUpdatePayload(nil, draft)
	payload.ID = &id
	return s.guarded(ctx, opUpdate, updateGuardKey(id.String()), func(ctx context.Context) (*DealDetail, int, error) {
		return s.update(ctx, id, payload)
	})
}

func (s *service) GetDeal(ctx context.Context, id uuid.UUID) (*DealDetail, error) {
	deal, err := s.repo.FindDeal(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deal")
	}
	return s.detail(ctx, deal)
}

func (s *service) GetDraft(ctx context.Context, id uuid.UUID) (*Draft, error) {
	deal, err := s.repo.FindDeal(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deal")
	}
	draft := EntityToDraft(deal)
	return &draft, nil
}

func (s *service) ListDeals(ctx context.Context, params pagination.Params, filters ListFilters) (*DealList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListDeals(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deals")
	}
	page, hasMore := pagination.SplitPage(rows, params.Limit)

	var vendorIDs []uuid.UUID
	itemsByDeal := make([][]LineItem, len(page))
	for idx, row := range page {
		items := make([]LineItem, 0, len(row.LineItems))
		for _, li := range row.LineItems {
			items = append(items, LineItemFromModel(li))
		}
		itemsByDeal[idx] = items
		vendorIDs = append(vendorIDs, OffSiteVendorIDs(items)...)
	}
	names, err := s.repo.FindVendorNames(ctx, vendorIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor names")
	}

	list := &DealList{Deals: make([]DealSummary, 0, len(page))}
	for idx := range page {
		row := &page[idx]
		totals := CalculateTotals(itemsByDeal[idx], s.taxRate)
		list.Deals = append(list.Deals, DealSummary{
			ID:                 row.ID,
			JobNumber:          row.JobNumber,
			Title:              row.Title,
			Status:             row.Status,
			Priority:           row.Priority,
			VehicleDescription: VehicleDescription(row),
			VendorLabel:        VendorLabel(itemsByDeal[idx], names, vendorName(row.Vendor)),
			TotalAmount:        totals.Total,
			ItemCount:          totals.ItemCount,
			CreatedAt:          row.CreatedAt,
			UpdatedAt:          row.UpdatedAt,
		})
	}
	if hasMore && len(page) > 0 {
		last := page[len(page)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

type saveFunc func(ctx context.Context) (*DealDetail, int, error)

// guarded runs one save under the duplicate-submit guard and records its outcome.
func (s *service) guarded(ctx context.Context, op, key string, fn saveFunc) (*DealDetail, error) {
	detail, shared, err := s.guard.do(ctx, key, func() (*DealDetail, error) {
		start := s.now()
		detail, replaced, err := s.locked(ctx, key, fn)
		s.metrics.ObserveDuration(op, s.now().Sub(start))
		if err != nil {
			s.metrics.IncFailure(op, failureLabel(err))
			s.logFailure(ctx, op, err)
			return nil, err
		}
		s.metrics.IncSuccess(op)
		s.metrics.AddLineItemsReplaced(replaced)
		logCtx := s.logg.WithDealID(ctx, detail.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"op": op, "version": detail.Version, "line_items": replaced})
		s.logg.Info(logCtx, "deal.save.completed")
		return detail, nil
	})
	if shared && err == nil {
		s.logg.Debug(s.logg.WithField(ctx, "guard_key", key), "deal.save.coalesced")
	}
	return detail, err
}

func (s *service) locked(ctx context.Context, key string, fn saveFunc) (*DealDetail, int, error) {
	if s.locker == nil {
		return fn(ctx)
	}
	release, ok, err := s.locker.Acquire(ctx, key)
	if err != nil {
		// the in-process guard still applies when the lock store is unreachable
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"guard_key": key, "error": err.Error()}), "deal.save.lock_unavailable")
		return fn(ctx)
	}
	if !ok {
		return nil, 0, pkgerrors.New(pkgerrors.CodeConflict, "save already in progress").
			WithDetails(map[string]any{"step": StepLock})
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "guard_key", key), "deal.save.lock_release_failed")
		}
	}()
	return fn(ctx)
}

func (s *service) create(ctx context.Context, payload Payload) (*DealDetail, int, error) {
	if err := s.prepare(ctx, &payload); err != nil {
		return nil, 0, err
	}
	if payload.JobNumber == "" {
		payload.JobNumber = generateJobNumber()
	}
	if payload.Title == "" {
		payload.Title = defaultTitle(payload.JobNumber)
	}

	// once the parent write starts the save runs to completion
	wctx := context.WithoutCancel(ctx)
	deal := newDealModel(payload)
	err := s.inTx(wctx, func(r Repository, tx *gorm.DB) error {
		if err := r.CreateDeal(wctx, deal); err != nil {
			return parentError(err)
		}
		if err := s.upsertTransaction(wctx, r, deal.ID, payload); err != nil {
			return stepError(StepTransaction, err)
		}
		// a new deal starts on generation zero, so its rows are live on insert
		if err := r.CreateLineItems(wctx, lineItemModels(deal.ID, deal.LineItemGeneration, payload.LineItems)); err != nil {
			return stepError(StepLineItems, err)
		}
		return s.emit(wctx, tx, opCreate, deal.ID, deal.JobNumber, deal.Version, payload)
	})
	if err != nil {
		return nil, 0, err
	}
	detail, err := s.reload(wctx, deal.ID)
	return detail, len(payload.LineItems), err
}

func (s *service) update(ctx context.Context, id uuid.UUID, payload Payload) (*DealDetail, int, error) {
	if err := s.prepare(ctx, &payload); err != nil {
		return nil, 0, err
	}

	wctx := context.WithoutCancel(ctx)
	err := s.inTx(wctx, func(r Repository, tx *gorm.DB) error {
		current, err := r.FindDealForUpdate(wctx, id)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
			}
			return stepError(StepParent, err)
		}
		if staleMarkers(current, payload) {
			return conflictError(current)
		}

		matched, err := r.UpdateDeal(wctx, id, payload.ExpectedVersion, dealUpdates(payload, current))
		if err != nil {
			return parentError(err)
		}
		if !matched {
			return s.resolveMissedUpdate(wctx, r, id)
		}
		if err := s.upsertTransaction(wctx, r, id, payload); err != nil {
			return stepError(StepTransaction, err)
		}
		if err := s.replaceLineItems(wctx, r, current, payload.LineItems); err != nil {
			return err
		}
		jobNumber := payload.JobNumber
		if jobNumber == "" {
			jobNumber = current.JobNumber
		}
		return s.emit(wctx, tx, opUpdate, id, jobNumber, current.Version+1, payload)
	})
	if err != nil {
		return nil, 0, err
	}
	detail, err := s.reload(wctx, id)
	return detail, len(payload.LineItems), err
}

// prepare fills default promised dates and validates the payload.
func (s *service) prepare(ctx context.Context, payload *Payload) error {
	today := types.DateOf(s.now().In(s.location))
	for idx := range payload.LineItems {
		item := &payload.LineItems[idx]
		if item.RequiresScheduling && (item.PromisedDate == nil || item.PromisedDate.IsZero()) {
			d := today
			item.PromisedDate = &d
		}
	}
	if res := validatePayload(*payload); !res.OK {
		return pkgerrors.New(pkgerrors.CodeValidation, "deal is invalid").
			WithDetails(map[string]any{"errors": res.Errors})
	}
	return ctx.Err()
}

// inTx runs fn against a transaction-bound repository. tx is nil without a TxRunner.
func (s *service) inTx(ctx context.Context, fn func(r Repository, tx *gorm.DB) error) error {
	if s.tx == nil {
		return fn(s.repo, nil)
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.repo.WithTx(tx), tx)
	})
}

// emit queues the saved event in the same transaction as the aggregate writes.
func (s *service) emit(ctx context.Context, tx *gorm.DB, op string, dealID uuid.UUID, jobNumber string, version int64, payload Payload) error {
	if s.events == nil || tx == nil {
		return nil
	}
	eventType := enums.EventDealCreated
	if op == opUpdate {
		eventType = enums.EventDealUpdated
	}
	totals := CalculateTotals(payload.LineItems, s.taxRate)
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDeal,
		AggregateID:   dealID,
		Data: payloads.DealSavedEvent{
			DealID:        dealID,
			JobNumber:     jobNumber,
			Status:        payload.Status,
			Version:       version,
			Op:            op,
			LineItemCount: len(payload.LineItems),
			TotalAmount:   totals.Total.Round(2),
		},
		OccurredAt: s.now().UTC(),
	})
	return stepError(StepEvents, err)
}

func (s *service) resolveMissedUpdate(ctx context.Context, r Repository, id uuid.UUID) error {
	current, err := r.FindDeal(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return stepError(StepParent, err)
	}
	return conflictError(current)
}

// upsertTransaction keeps exactly one transaction row per deal.
func (s *service) upsertTransaction(ctx context.Context, r Repository, dealID uuid.UUID, payload Payload) error {
	totals := CalculateTotals(payload.LineItems, s.taxRate)
	existing, err := r.FindTransactionByDeal(ctx, dealID)
	if err != nil {
		return err
	}
	if existing == nil {
		created, err := r.CreateTransaction(ctx, transactionModel(dealID, payload, totals))
		if err != nil && !db.IsUniqueViolation(err, transactionDealConstraint) {
			return err
		}
		if created {
			return nil
		}
		// a concurrent save inserted first
		existing, err = r.FindTransactionByDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("transaction for deal %s vanished after insert conflict", dealID)
		}
	}
	return r.UpdateTransaction(ctx, existing.ID, transactionUpdates(payload, totals, s.now().UTC()))
}

// replaceLineItems writes items as the generation after current's, publishes it
// together with the version bump and removes every other row. Readers see either
// the old set or the new one. Rows staged by an earlier attempt that never flipped
// are purged first, so retries converge on one set.
func (s *service) replaceLineItems(ctx context.Context, r Repository, current *models.Deal, items []LineItem) error {
	dealID := current.ID
	next := current.LineItemGeneration + 1
	if _, err := r.DeleteStaleLineItems(ctx, dealID, current.LineItemGeneration); err != nil {
		return stepError(StepLineItems, err)
	}
	if err := r.CreateLineItems(ctx, lineItemModels(dealID, next, items)); err != nil {
		return stepError(StepLineItems, err)
	}
	flipped, err := r.SetLineItemGeneration(ctx, dealID, next, current.Version)
	if err != nil {
		return stepError(StepLineItems, err)
	}
	if !flipped {
		return s.resolveMissedUpdate(ctx, r, dealID)
	}
	removed, err := r.DeleteStaleLineItems(ctx, dealID, next)
	if err != nil {
		if s.tx != nil {
			return stepError(StepLineItems, err)
		}
		// stale rows are invisible to reads and the next save collects them
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"deal_id": dealID.String(), "error": err.Error()}), "deal.line_items.gc_failed")
		return nil
	}
	if removed > 0 {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"deal_id": dealID.String(), "removed": removed}), "deal.line_items.gc")
	}
	return nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*DealDetail, error) {
	detail, err := s.GetDeal(ctx, id)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save deal: "+StepReload).
				WithDetails(map[string]any{"step": StepReload})
		}
		return nil, err
	}
	return detail, nil
}

func (s *service) detail(ctx context.Context, deal *models.Deal) (*DealDetail, error) {
	items := make([]LineItem, 0, len(deal.LineItems))
	for _, row := range deal.LineItems {
		items = append(items, LineItemFromModel(row))
	}
	names, err := s.repo.FindVendorNames(ctx, OffSiteVendorIDs(items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor names")
	}

	detail := &DealDetail{
		ID:                    deal.ID,
		JobNumber:             deal.JobNumber,
		Title:                 deal.Title,
		TitleIsCustom:         cloneBool(deal.TitleIsCustom),
		Description:           cloneString(deal.Description),
		Status:                deal.Status,
		Priority:              deal.Priority,
		CustomerNeedsLoaner:   deal.CustomerNeedsLoaner,
		SalesConsultantID:     cloneUUID(deal.SalesConsultantID),
		FinanceManagerID:      cloneUUID(deal.FinanceManagerID),
		DeliveryCoordinatorID: cloneUUID(deal.DeliveryCoordinatorID),
		VendorID:              cloneUUID(deal.VendorID),
		VehicleID:             cloneUUID(deal.VehicleID),
		VehicleDescription:    VehicleDescription(deal),
		VendorLabel:           VendorLabel(items, names, vendorName(deal.Vendor)),
		Version:               deal.Version,
		LineItems:             items,
		Totals:                CalculateTotals(items, s.taxRate),
		CreatedAt:             deal.CreatedAt,
		UpdatedAt:             deal.UpdatedAt,
	}
	if deal.LoanerNumber != nil {
		detail.Loaner = &LoanerView{
			Number:             *deal.LoanerNumber,
			ExpectedReturnDate: cloneDate(deal.LoanerExpectedReturnDate),
			Notes:              cloneString(deal.LoanerNotes),
		}
	}
	if txn := deal.Transaction; txn != nil {
		detail.Transaction = &TransactionView{
			ID:            txn.ID,
			CustomerName:  txn.CustomerName,
			CustomerPhone: txn.CustomerPhone,
			CustomerEmail: txn.CustomerEmail,
			SpouseName:    cloneString(txn.SpouseName),
			Subtotal:      txn.Subtotal,
			Tax:           txn.Tax,
			TotalAmount:   txn.TotalAmount,
			Notes:         cloneString(txn.Notes),
		}
	}
	return detail, nil
}

func (s *service) logFailure(ctx context.Context, op string, err error) {
	dump := pkgerrors.Dump(err)
	logCtx := s.logg.WithFields(ctx, map[string]any{"op": op, "code": dump.Code, "step": dump.Step})
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeValidation),
		pkgerrors.HasCode(err, pkgerrors.CodeConflict),
		pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
		s.logg.Warn(logCtx, "deal.save.rejected")
	default:
		s.logg.Error(s.logg.WithFields(logCtx, dump.Fields()), "deal.save.failed", err)
	}
}

// IsValidationError returns the field errors carried by a rejected save.
func IsValidationError(err error) ([]FieldError, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		return nil, false
	}
	details, _ := typed.Details().(map[string]any)
	errs, _ := details["errors"].([]FieldError)
	return errs, true
}

// FailedStep names the save step an error was raised in.
func FailedStep(err error) (string, bool) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "", false
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return "", false
	}
	step, ok := details["step"].(string)
	return step, ok && step != ""
}

func failureLabel(err error) string {
	if step, ok := FailedStep(err); ok {
		return step
	}
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeValidation):
		return StepValidate
	case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
		return "conflict"
	case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
		return "not_found"
	case stdErrors.Is(err, context.Canceled), stdErrors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}

// parentError maps a job number clash to a validation error. Anything else is an
// infrastructure failure of the parent step.
func parentError(err error) error {
	if db.IsUniqueViolation(err, jobNumberConstraint) {
		return pkgerrors.New(pkgerrors.CodeValidation, "deal is invalid").
			WithDetails(map[string]any{"errors": []FieldError{{Field: "job_number", Index: -1, Code: CodeDuplicateJobNumber}}})
	}
	return stepError(StepParent, err)
}

// stepError tags an infrastructure failure with the step it happened in. Typed
// errors pass through untouched.
func stepError(step string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save deal: "+step).
		WithDetails(map[string]any{"step": step})
}

func conflictError(current *models.Deal) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "deal was modified by another save").
		WithDetails(map[string]any{
			"current_version":    current.Version,
			"current_updated_at": current.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
}

// staleMarkers reports whether the payload was built from an older copy of current.
func staleMarkers(current *models.Deal, payload Payload) bool {
	if payload.ExpectedVersion > 0 {
		return current.Version != payload.ExpectedVersion
	}
	if payload.ExpectedUpdatedAt != nil {
		return !current.UpdatedAt.Truncate(time.Microsecond).Equal(payload.ExpectedUpdatedAt.Truncate(time.Microsecond))
	}
	return false
}

func newDealModel(p Payload) *models.Deal {
	deal := &models.Deal{
		ID:                    uuid.New(),
		JobNumber:             p.JobNumber,
		Title:                 p.Title,
		TitleIsCustom:         cloneBool(p.TitleIsCustom),
		Description:           cloneString(p.Description),
		Status:                p.Status,
		Priority:              p.Priority,
		CustomerNeedsLoaner:   p.CustomerNeedsLoaner,
		SalesConsultantID:     cloneUUID(p.SalesConsultantID),
		FinanceManagerID:      cloneUUID(p.FinanceManagerID),
		DeliveryCoordinatorID: cloneUUID(p.DeliveryCoordinatorID),
		VendorID:              cloneUUID(p.VendorID),
		VehicleID:             cloneUUID(p.VehicleID),
		Version:               1,
		LineItemGeneration:    0,
	}
	if p.CustomerNeedsLoaner && p.Loaner != nil {
		number := p.Loaner.Number
		deal.LoanerNumber = &number
		deal.LoanerExpectedReturnDate = cloneDate(p.Loaner.ExpectedReturnDate)
		deal.LoanerNotes = cloneString(p.Loaner.Notes)
	}
	return deal
}

// dealUpdates maps the payload onto deal columns. Cleared values are written as NULL.
func dealUpdates(p Payload, current *models.Deal) map[string]any {
	jobNumber := p.JobNumber
	if jobNumber == "" {
		jobNumber = current.JobNumber
	}
	title := p.Title
	if title == "" {
		title = defaultTitle(jobNumber)
	}

	updates := map[string]any{
		"job_number":                  jobNumber,
		"title":                       title,
		"title_is_custom":             valueOrNil(p.TitleIsCustom),
		"description":                 valueOrNil(p.Description),
		"status":                      string(p.Status),
		"priority":                    string(p.Priority),
		"customer_needs_loaner":       p.CustomerNeedsLoaner,
		"loaner_number":               nil,
		"loaner_expected_return_date": nil,
		"loaner_notes":                nil,
		"sales_consultant_id":         valueOrNil(p.SalesConsultantID),
		"finance_manager_id":          valueOrNil(p.FinanceManagerID),
		"delivery_coordinator_id":     valueOrNil(p.DeliveryCoordinatorID),
		"vendor_id":                   valueOrNil(p.VendorID),
		"vehicle_id":                  valueOrNil(p.VehicleID),
	}
	if p.CustomerNeedsLoaner && p.Loaner != nil {
		updates["loaner_number"] = p.Loaner.Number
		updates["loaner_expected_return_date"] = valueOrNil(p.Loaner.ExpectedReturnDate)
		updates["loaner_notes"] = valueOrNil(p.Loaner.Notes)
	}
	return updates
}

func transactionModel(dealID uuid.UUID, p Payload, totals Totals) *models.Transaction {
	return &models.Transaction{
		ID:            uuid.New(),
		DealID:        dealID,
		CustomerName:  p.Customer.Name,
		CustomerPhone: p.Customer.Phone,
		CustomerEmail: p.Customer.Email,
		SpouseName:    cloneString(p.Customer.SpouseName),
		Subtotal:      totals.Subtotal.Round(2),
		Tax:           totals.Tax,
		TotalAmount:   totals.Total.Round(2),
		Notes:         cloneString(p.Customer.Notes),
	}
}

func transactionUpdates(p Payload, totals Totals, now time.Time) map[string]any {
	return map[string]any{
		"customer_name":  p.Customer.Name,
		"customer_phone": p.Customer.Phone,
		"customer_email": p.Customer.Email,
		"spouse_name":    valueOrNil(p.Customer.SpouseName),
		"subtotal":       totals.Subtotal.Round(2),
		"tax":            totals.Tax,
		"total_amount":   totals.Total.Round(2),
		"notes":          valueOrNil(p.Customer.Notes),
		"updated_at":     now,
	}
}

// valueOrNil keeps typed nil pointers out of update maps.
func valueOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func vendorName(v *models.Vendor) string {
	if v == nil {
		return ""
	}
	return v.Name
}

func generateJobNumber() string {
	return "JOB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func defaultTitle(jobNumber string) string {
	return "Deal " + jobNumber
}
