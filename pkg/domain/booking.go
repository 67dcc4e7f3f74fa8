package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of a booking.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusDeclined  Status = "DECLINED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists every booking status in display order.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusCompleted,
	StatusDeclined,
	StatusCancelled,
}

// ValidStatus returns true if s is one of the closed set of statuses.
func ValidStatus(s Status) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is orthogonal to Status. Empty means unpaid.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = ""
	PaymentPaid   PaymentStatus = "PAID"
)

// PaymentMethod is one of the supported ways to settle a booking.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentBkash  PaymentMethod = "BKASH"
	PaymentNagad  PaymentMethod = "NAGAD"
	PaymentRocket PaymentMethod = "ROCKET"
)

// PaymentMethods is the closed set offered to users, cash first.
var PaymentMethods = []PaymentMethod{PaymentCOD, PaymentBkash, PaymentNagad, PaymentRocket}

// ValidPaymentMethod returns true if m is in PaymentMethods.
func ValidPaymentMethod(m PaymentMethod) bool {
	for _, v := range PaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// Label returns the human-readable name of the method.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCOD:
		return "Cash on delivery"
	case PaymentBkash:
		return "bKash"
	case PaymentNagad:
		return "Nagad"
	case PaymentRocket:
		return "Rocket"
	}
	return string(m)
}

// EWallet reports whether the method settles through an external wallet checkout.
func (m PaymentMethod) EWallet() bool {
	return m == PaymentBkash || m == PaymentNagad || m == PaymentRocket
}

// ServiceSummary is the service snapshot embedded in a booking.
type ServiceSummary struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Booking is one service engagement between a user and a provider.
type Booking struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	ProviderID    *string         `json:"providerId"`
	ServiceID     string          `json:"serviceId"`
	Service       *ServiceSummary `json:"service,omitempty"`
	User          *Party          `json:"user,omitempty"`
	Provider      *Party          `json:"provider,omitempty"`
	Date          string          `json:"date"`
	TimeSlot      string          `json:"timeSlot"`
	Area          string          `json:"area"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus,omitempty"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

// Paid reports whether the payment was recorded.
func (b Booking) Paid() bool {
	return b.PaymentStatus == PaymentPaid
}

// Payable reports whether b is confirmed and still unpaid.
func (b Booking) Payable() bool {
	return b.Status == StatusConfirmed && !b.Paid()
}

// Assigned reports whether a provider has been attached to the booking.
func (b Booking) Assigned() bool {
	return b.ProviderID != nil && *b.ProviderID != ""
}

// ServiceName returns the embedded service name or the raw service id.
func (b Booking) ServiceName() string {
	if b.Service != nil && b.Service.Name != "" {
		return b.Service.Name
	}
	return b.ServiceID
}

// Price returns the embedded service price, zero when unknown.
func (b Booking) Price() decimal.Decimal {
	if b.Service == nil {
		return decimal.Zero
	}
	return b.Service.Price
}

// FindBooking returns the booking with id from list.
func FindBooking(list []Booking, id string) (Booking, bool) {
	for _, b := range list {
		if b.ID == id {
			return b, true
		}
	}
	return Booking{}, false
}
