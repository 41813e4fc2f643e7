package enums

import "fmt"

// DealStatus tracks the lifecycle of a deal.
type DealStatus string

const (
	DealStatusPending    DealStatus = "pending"
	DealStatusScheduled  DealStatus = "scheduled"
	DealStatusInProgress DealStatus = "in_progress"
	DealStatusCompleted  DealStatus = "completed"
	DealStatusCancelled  DealStatus = "cancelled"
)

var validDealStatuses = []DealStatus{
	DealStatusPending,
	DealStatusScheduled,
	DealStatusInProgress,
	DealStatusCompleted,
	DealStatusCancelled,
}

// String implements fmt.Stringer.
func (s DealStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DealStatus.
func (s DealStatus) IsValid() bool {
	for _, candidate := range validDealStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDealStatus converts raw input into a DealStatus.
func ParseDealStatus(value string) (DealStatus, error) {
	for _, candidate := range validDealStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal status %q", value)
}
