package email

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/Domenick1991/cohortseat/internal/domain"
)

var subjects = map[domain.NotificationTemplate]string{
	domain.TemplateRegistrationPending:   "Your seat is on hold",
	domain.TemplateRegistrationConfirmed: "You're enrolled",
	domain.TemplateRegistrationCancelled: "Your registration was cancelled",
	domain.TemplateHoldExpired:           "Your seat hold expired",
	domain.TemplateWaitlistJoined:        "You're on the waitlist",
	domain.TemplateWaitlistPromoted:      "A seat opened up for you",
	domain.TemplateWaitlistExpired:       "Your waitlist offer expired",
	domain.TemplatePaymentFailed:         "Your payment did not go through",
	domain.TemplateRefundIssued:          "Your refund is on its way",
}

// Sender renders notifications and writes them to the log. It is the terminal
// consumer of the notifications topic and the direct notifier when no broker
// is configured.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, n domain.Notification) error {
	if n.Email == "" {
		log.Printf("skip %s notification for user %s: no email", n.Template, n.UserID)
		return nil
	}
	log.Printf("send email to %s [%s] %s: %s", n.Email, n.Priority, Subject(n.Template), Body(n))
	return nil
}

// Subject returns the email subject line of a template.
func Subject(t domain.NotificationTemplate) string {
	if subject, ok := subjects[t]; ok {
		return subject
	}
	return string(t)
}

// Body renders the template data as sorted key=value pairs.
func Body(n domain.Notification) string {
	keys := make([]string, 0, len(n.Data))
	for k := range n.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+n.Data[k])
	}
	return strings.Join(parts, " ")
}
