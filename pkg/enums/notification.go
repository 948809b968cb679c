package enums

import "fmt"

// NotificationKind classifies entries on the user notification side-channel.
type NotificationKind string

const (
	NotificationKindOrderPlaced      NotificationKind = "order_placed"
	NotificationKindOrderWriteFailed NotificationKind = "order_write_failed"
	NotificationKindWriteFailed      NotificationKind = "write_failed"
	NotificationKindOrderStatus      NotificationKind = "order_status"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindOrderPlaced,
	NotificationKindOrderWriteFailed,
	NotificationKindWriteFailed,
	NotificationKindOrderStatus,
}

// IsValid checks whether the given kind matches the canonical enum.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
