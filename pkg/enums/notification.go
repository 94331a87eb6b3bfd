package enums

// NotificationType classifies in-app notifications shown to shoppers.
type NotificationType string

const NotificationTypeOrderConfirmation NotificationType = "order_confirmation"

func (n NotificationType) IsValid() bool {
	return n == NotificationTypeOrderConfirmation
}
