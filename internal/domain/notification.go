package domain

type NotificationTemplate string

const (
	TemplateRegistrationPending   NotificationTemplate = "registration_pending"
	TemplateRegistrationConfirmed NotificationTemplate = "registration_confirmed"
	TemplateRegistrationCancelled NotificationTemplate = "registration_cancelled"
	TemplateHoldExpired           NotificationTemplate = "hold_expired"
	TemplateWaitlistJoined        NotificationTemplate = "waitlist_joined"
	TemplateWaitlistPromoted      NotificationTemplate = "waitlist_promoted"
	TemplateWaitlistExpired       NotificationTemplate = "waitlist_expired"
	TemplatePaymentFailed         NotificationTemplate = "payment_failed"
	TemplateRefundIssued          NotificationTemplate = "refund_issued"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// Notification is handed to the dispatcher after the owning transaction commits.
type Notification struct {
	UserID   string               `json:"user_id"`
	Email    string               `json:"email"`
	Template NotificationTemplate `json:"template"`
	Data     map[string]string    `json:"data,omitempty"`
	Priority Priority             `json:"priority"`
}
