package domain

import "github.com/shopspring/decimal"

// Service is an entry in the public services catalog.
type Service struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

// TimeSlots are the bookable windows offered by the booking form.
var TimeSlots = []string{
	"09:00-11:00",
	"11:00-13:00",
	"14:00-16:00",
	"16:00-18:00",
	"18:00-20:00",
}

// ValidTimeSlot returns true if slot is one of TimeSlots.
func ValidTimeSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}
