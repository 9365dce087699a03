package enums

import "fmt"

// SubscriptionAction labels entries in the subscription audit history.
type SubscriptionAction string

const (
	SubscriptionActionCreated  SubscriptionAction = "created"
	SubscriptionActionUpgraded SubscriptionAction = "upgraded"
)

var validSubscriptionActions = []SubscriptionAction{
	SubscriptionActionCreated,
	SubscriptionActionUpgraded,
}

// String implements fmt.Stringer.
func (a SubscriptionAction) String() string {
	return string(a)
}

// IsValid reports whether the value is known.
func (a SubscriptionAction) IsValid() bool {
	for _, candidate := range validSubscriptionActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseSubscriptionAction converts raw input into a SubscriptionAction.
func ParseSubscriptionAction(value string) (SubscriptionAction, error) {
	for _, candidate := range validSubscriptionActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription action %q", value)
}
