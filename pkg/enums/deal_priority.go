package enums

import "fmt"

// DealPriority orders deals on the console board.
type DealPriority string

const (
	DealPriorityLow    DealPriority = "low"
	DealPriorityMedium DealPriority = "medium"
	DealPriorityHigh   DealPriority = "high"
	DealPriorityUrgent DealPriority = "urgent"
)

var validDealPriorities = []DealPriority{
	DealPriorityLow,
	DealPriorityMedium,
	DealPriorityHigh,
	DealPriorityUrgent,
}

// String implements fmt.Stringer.
func (p DealPriority) String() string {
	return string(p)
}

// IsValid reports whether the value is a known DealPriority.
func (p DealPriority) IsValid() bool {
	for _, candidate := range validDealPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseDealPriority converts raw input into a DealPriority.
func ParseDealPriority(value string) (DealPriority, error) {
	for _, candidate := range validDealPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal priority %q", value)
}
