package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/dealdesk-backend/pkg/logger"
)

const (
	lineItemGCBatch      = 500
	lineItemGCMaxBatches = 20
)

type lineItemSweeper interface {
	SweepStaleLineItems(ctx context.Context, tx *gorm.DB, limit int) (int64, error)
}

type LineItemGCJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Sweeper    lineItemSweeper
	BatchSize  int
	MaxBatches int
}

// NewLineItemGCJob collects line item generations a failed save left behind.
func NewLineItemGCJob(params LineItemGCJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("line item sweeper required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = lineItemGCBatch
	}
	maxBatches := params.MaxBatches
	if maxBatches <= 0 {
		maxBatches = lineItemGCMaxBatches
	}
	return &lineItemGCJob{
		logg:       params.Logger,
		db:         params.DB,
		sweeper:    params.Sweeper,
		batch:      batch,
		maxBatches: maxBatches,
	}, nil
}

type lineItemGCJob struct {
	logg       *logger.Logger
	db         txRunner
	sweeper    lineItemSweeper
	batch      int
	maxBatches int
}

func (j *lineItemGCJob) Name() string { return "line-item-gc" }

// Run sweeps in short transactions until a batch comes back partial.
func (j *lineItemGCJob) Run(ctx context.Context) error {
	var total int64
	batches := 0
	for batches < j.maxBatches {
		if err := ctx.Err(); err != nil {
			return err
		}
		var removed int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := j.sweeper.SweepStaleLineItems(ctx, tx, j.batch)
			removed = n
			return err
		})
		if err != nil {
			return fmt.Errorf("line item gc: %w", err)
		}
		batches++
		total += removed
		if removed < int64(j.batch) {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"rows_deleted": total,
		"batches":      batches,
		"batch_size":   j.batch,
	}), "line item gc complete")
	return nil
}
