package domain

// StatusCounts aggregates a provider's bookings per status.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Declined  int `json:"declined"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// DashboardSummary is the provider dashboard payload.
type DashboardSummary struct {
	Counts   StatusCounts `json:"counts"`
	Upcoming []Booking    `json:"upcoming"`
	Recent   []Booking    `json:"recent"`
}

// CountBookings tallies bookings per status.
func CountBookings(list []Booking) StatusCounts {
	var c StatusCounts
	for _, b := range list {
		switch b.Status {
		case StatusPending:
			c.Pending++
		case StatusConfirmed:
			c.Confirmed++
		case StatusCompleted:
			c.Completed++
		case StatusDeclined:
			c.Declined++
		case StatusCancelled:
			c.Cancelled++
		}
		c.Total++
	}
	return c
}

// Bookings returns the upcoming then recent bookings without duplicates.
func (s *DashboardSummary) Bookings() []Booking {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool, len(s.Upcoming)+len(s.Recent))
	out := make([]Booking, 0, len(s.Upcoming)+len(s.Recent))
	for _, group := range [][]Booking{s.Upcoming, s.Recent} {
		for _, b := range group {
			if seen[b.ID] {
				continue
			}
			seen[b.ID] = true
			out = append(out, b)
		}
	}
	return out
}
