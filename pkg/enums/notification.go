package enums

import "fmt"

// NotificationEvent names a lifecycle event pushed to users.
type NotificationEvent string

const (
	NotificationEventRentalRequested     NotificationEvent = "RentalRequested"
	NotificationEventRentalStatusChanged NotificationEvent = "RentalStatusChanged"
	NotificationEventItemListingChanged  NotificationEvent = "ItemListingChanged"
)

var validNotificationEvents = []NotificationEvent{
	NotificationEventRentalRequested,
	NotificationEventRentalStatusChanged,
	NotificationEventItemListingChanged,
}

// String implements fmt.Stringer.
func (n NotificationEvent) String() string {
	return string(n)
}

// IsValid checks whether the event matches a known name.
func (n NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationEvent converts raw strings into NotificationEvent.
func ParseNotificationEvent(value string) (NotificationEvent, error) {
	for _, candidate := range validNotificationEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event %q", value)
}
