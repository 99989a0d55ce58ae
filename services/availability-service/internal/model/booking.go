package model

import "strings"

const (
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Booking is an existing appointment as seen by the availability grid. Times are kept as
// received so malformed upstream records can be skipped per record rather than per fetch.
type Booking struct {
	ID              string
	StaffID         string
	OutletID        string
	Date            string // YYYY-MM-DD
	StartTime       string // HH:MM
	EndTime         string // HH:MM, optional when DurationMinutes is set
	DurationMinutes int
	Status          string
}

// Blocks reports whether the booking occupies its time; cancelled bookings never do.
func (b Booking) Blocks() bool {
	s := strings.ToLower(strings.TrimSpace(b.Status))
	return s != BookingCancelled && s != "canceled"
}
