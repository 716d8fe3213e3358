package domain

import "time"

type CohortStatus string

const (
	CohortStatusUpcoming  CohortStatus = "UPCOMING"
	CohortStatusOpen      CohortStatus = "OPEN"
	CohortStatusFull      CohortStatus = "FULL"
	CohortStatusCompleted CohortStatus = "COMPLETED"
	CohortStatusCancelled CohortStatus = "CANCELLED"
)

// Cohort is one scheduled offering of a program. EnrolledCount and the
// FULL/OPEN status are owned by the cohort ledger.
type Cohort struct {
	ID                  string
	ProgramID           string
	Title               string
	Capacity            int
	EnrolledCount       int
	Status              CohortStatus
	RegistrationStartAt time.Time
	RegistrationEndAt   time.Time
	PriceCents          int64
	Currency            string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AcceptsRegistrations reports whether the lifecycle status allows new holds.
func (c *Cohort) AcceptsRegistrations() bool {
	return c.Status == CohortStatusOpen || c.Status == CohortStatusUpcoming
}

// WindowOpen reports whether now falls inside the registration window.
func (c *Cohort) WindowOpen(now time.Time) bool {
	if !c.RegistrationStartAt.IsZero() && now.Before(c.RegistrationStartAt) {
		return false
	}
	if !c.RegistrationEndAt.IsZero() && now.After(c.RegistrationEndAt) {
		return false
	}
	return true
}

// Occupancy is a point-in-time view of a cohort's seats.
type Occupancy struct {
	Capacity  int
	Confirmed int
	Held      int
}

func (o Occupancy) Available() int {
	free := o.Capacity - o.Confirmed - o.Held
	if free < 0 {
		return 0
	}
	return free
}
