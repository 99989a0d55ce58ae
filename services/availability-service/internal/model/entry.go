package model

import "time"

type AvailabilityType string

const (
	AvailabilityAvailable AvailabilityType = "available"
	AvailabilityBlocked   AvailabilityType = "blocked"
)

type RecurrenceType string

const (
	RecurrenceNone   RecurrenceType = "none"
	RecurrenceDaily  RecurrenceType = "daily"
	RecurrenceWeekly RecurrenceType = "weekly"
)

// AvailabilityEntry is a staff member's declared open or blocked window. Date is the
// anchor date; recurring entries repeat from it until RecurrenceEndDate (inclusive, empty = open).
type AvailabilityEntry struct {
	ID                string
	TenantID          string
	StaffID           string
	OutletID          string
	Date              string // YYYY-MM-DD
	StartTime         string // HH:MM
	EndTime           string // HH:MM
	Type              AvailabilityType
	RecurrenceType    RecurrenceType
	RecurrenceEndDate string // YYYY-MM-DD or ""
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
