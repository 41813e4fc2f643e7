package cron

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/angelmondragon/dealdesk-backend/pkg/logger"
)

type fakeSweeper struct {
	results []int64
	limits  []int
	err     error
}

func (f *fakeSweeper) SweepStaleLineItems(_ context.Context, _ *gorm.DB, limit int) (int64, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.results) == 0 {
		return 0, nil
	}
	n := f.results[0]
	f.results = f.results[1:]
	return n, nil
}

func newLineItemGCJob(t *testing.T, sweeper *fakeSweeper, batch, maxBatches int) Job {
	t.Helper()
	job, err := NewLineItemGCJob(LineItemGCJobParams{
		Logger:     logger.Nop(),
		DB:         passthroughTxRunner{},
		Sweeper:    sweeper,
		BatchSize:  batch,
		MaxBatches: maxBatches,
	})
	if err != nil {
		t.Fatalf("NewLineItemGCJob: %v", err)
	}
	return job
}

func TestLineItemGCJobStopsOnPartialBatch(t *testing.T) {
	sweeper := &fakeSweeper{results: []int64{10, 10, 3, 10}}
	job := newLineItemGCJob(t, sweeper, 10, 0)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sweeper.limits) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(sweeper.limits))
	}
	if job.Name() != "line-item-gc" {
		t.Fatalf("unexpected name %q", job.Name())
	}
}

func TestLineItemGCJobCapsBatches(t *testing.T) {
	sweeper := &fakeSweeper{results: []int64{5, 5, 5, 5}}
	job := newLineItemGCJob(t, sweeper, 5, 2)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sweeper.limits) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(sweeper.limits))
	}
}

func TestLineItemGCJobDefaultsAndErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	job := newLineItemGCJob(t, sweeper, 0, 0)
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if sweeper.limits[0] != lineItemGCBatch {
		t.Fatalf("expected default batch %d, got %d", lineItemGCBatch, sweeper.limits[0])
	}

	if _, err := NewLineItemGCJob(LineItemGCJobParams{Logger: logger.Nop(), DB: passthroughTxRunner{}}); err == nil {
		t.Fatalf("expected missing sweeper error")
	}
}
