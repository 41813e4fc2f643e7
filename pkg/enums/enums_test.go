package enums

import "testing"

func TestParseDealStatus(t *testing.T) {
	for _, raw := range []string{"pending", "scheduled", "in_progress", "completed", "cancelled"} {
		status, err := ParseDealStatus(raw)
		if err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
		if !status.IsValid() || status.String() != raw {
			t.Fatalf("unexpected status %q", status)
		}
	}
	if _, err := ParseDealStatus("canceled"); err == nil {
		t.Fatal("expected american spelling to be rejected")
	}
}

func TestParseDealPriority(t *testing.T) {
	if p, err := ParseDealPriority("urgent"); err != nil || p != DealPriorityUrgent {
		t.Fatalf("unexpected parse result %q %v", p, err)
	}
	if DealPriority("critical").IsValid() {
		t.Fatal("unknown priority should be invalid")
	}
}

func TestParseOutboxTypes(t *testing.T) {
	if e, err := ParseOutboxEventType("deal_updated"); err != nil || e != EventDealUpdated {
		t.Fatalf("unexpected event type %q %v", e, err)
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatal("expected unknown event type to be rejected")
	}
	if a, err := ParseOutboxAggregateType("deal"); err != nil || !a.IsValid() {
		t.Fatalf("unexpected aggregate %q %v", a, err)
	}
	if !OutboxDLQReasonMaxAttempts.IsValid() || OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatal("unexpected dlq reason validity")
	}
	if r, err := ParseOutboxDLQErrorReason("non_retryable"); err != nil || r != OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected dlq reason %q %v", r, err)
	}
	if _, err := ParseOutboxDLQErrorReason("timeout"); err == nil {
		t.Fatal("expected unknown dlq reason to be rejected")
	}
}
