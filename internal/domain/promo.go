package domain

import "time"

type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

type PromoCode struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue int64
	// ProgramID restricts the code to one program when set.
	ProgramID  string
	MaxUses    int
	UsedCount  int
	ValidFrom  time.Time
	ValidUntil *time.Time
	Active     bool
}

// Quote is the price a learner pays after applying an optional promo code.
type Quote struct {
	BaseCents     int64
	DiscountCents int64
	TotalCents    int64
	Currency      string
	PromoCode     string
}
