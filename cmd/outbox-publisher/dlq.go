package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealdesk-backend/pkg/db/models"
	"github.com/angelmondragon/dealdesk-backend/pkg/enums"
	"github.com/angelmondragon/dealdesk-backend/pkg/outbox"
)

type dlqReader interface {
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
}

// dlqQuery selects dead letters to print. EventID wins over the list filters.
type dlqQuery struct {
	EventID     string
	AggregateID string
	Reason      string
	Limit       int
}

type dlqRow struct {
	EventID      uuid.UUID                  `json:"event_id"`
	EventType    enums.OutboxEventType      `json:"event_type"`
	AggregateID  uuid.UUID                  `json:"aggregate_id"`
	ErrorReason  enums.OutboxDLQErrorReason `json:"error_reason"`
	ErrorMessage string                     `json:"error_message,omitempty"`
	AttemptCount int                        `json:"attempt_count"`
	FailedAt     string                     `json:"failed_at"`
	Payload      json.RawMessage            `json:"payload"`
}

// inspectDLQ writes matching dead letters to w as JSON lines.
func inspectDLQ(ctx context.Context, repo dlqReader, q dlqQuery, w io.Writer) error {
	rows, err := loadDLQ(ctx, repo, q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, row := range rows {
		out := dlqRow{
			EventID:      row.EventID,
			EventType:    row.EventType,
			AggregateID:  row.AggregateID,
			ErrorReason:  row.ErrorReason,
			AttemptCount: row.AttemptCount,
			FailedAt:     row.FailedAt.UTC().Format(time.RFC3339),
			Payload:      row.Payload,
		}
		if row.ErrorMessage != nil {
			out.ErrorMessage = *row.ErrorMessage
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

func loadDLQ(ctx context.Context, repo dlqReader, q dlqQuery) ([]models.OutboxDLQ, error) {
	if raw := strings.TrimSpace(q.EventID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid event id %q", raw)
		}
		row, err := repo.FindByEventID(ctx, id)
		if err != nil || row == nil {
			return nil, err
		}
		return []models.OutboxDLQ{*row}, nil
	}

	filter := outbox.DLQFilter{Limit: q.Limit}
	if raw := strings.TrimSpace(q.AggregateID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid aggregate id %q", raw)
		}
		filter.AggregateID = id
	}
	if raw := strings.TrimSpace(q.Reason); raw != "" {
		reason, err := enums.ParseOutboxDLQErrorReason(raw)
		if err != nil {
			return nil, err
		}
		filter.Reason = reason
	}
	return repo.List(ctx, filter)
}
