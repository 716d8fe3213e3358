package domain

import "time"

type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "WAITING"
	WaitlistStatusNotified  WaitlistStatus = "NOTIFIED"
	WaitlistStatusConverted WaitlistStatus = "CONVERTED"
	WaitlistStatusExpired   WaitlistStatus = "EXPIRED"
)

// Live reports whether the entry still occupies a queue position.
func (s WaitlistStatus) Live() bool {
	return s == WaitlistStatusWaiting || s == WaitlistStatusNotified
}

type WaitlistEntry struct {
	ID         string
	UserID     string
	Email      string
	CohortID   string
	Position   int
	Status     WaitlistStatus
	JoinedAt   time.Time
	NotifiedAt *time.Time
	ExpiresAt  *time.Time
	UpdatedAt  time.Time
}
