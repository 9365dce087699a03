package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeSubscriptionExpiring NotificationType = "subscription_expiring"
	NotificationTypeSubscriptionExpired  NotificationType = "subscription_expired"
	NotificationTypeLeaseExpiring        NotificationType = "lease_expiring"
	NotificationTypeLeaseExpired         NotificationType = "lease_expired"
	NotificationTypeInvoiceOverdue       NotificationType = "invoice_overdue"
	NotificationTypeInvoiceReminder      NotificationType = "invoice_reminder"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeSubscriptionExpiring,
	NotificationTypeSubscriptionExpired,
	NotificationTypeLeaseExpiring,
	NotificationTypeLeaseExpired,
	NotificationTypeInvoiceOverdue,
	NotificationTypeInvoiceReminder,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
