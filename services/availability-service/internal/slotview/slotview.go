// Package slotview projects one date of an availability grid into the flat list a
// booking picker renders.
package slotview

import (
	"time"

	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
)

// Item is one selectable time label.
type Item struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// View is the picker payload for a single date.
type View struct {
	Date           string             `json:"date"`
	Staff          model.StaffSummary `json:"staff"`
	Items          []Item             `json:"items"`
	AvailableCount int                `json:"available_count"`
}

// Project returns the slots of date in grid order. now must already be in the tenant's
// timezone; slots of today starting at or before its minute are reported unavailable even
// if the grid still flags them available. The grid is only read.
func Project(grid model.AvailabilityGrid, date string, now time.Time) []Item {
	slots := grid.Days[date]
	items := make([]Item, 0, len(slots))
	for _, s := range slots {
		available := s.IsAvailable
		if available {
			if m, err := timeutil.ToMinutes(s.StartTime); err != nil || timeutil.IsPast(date, m, now) {
				available = false
			}
		}
		items = append(items, Item{Time: s.StartTime, Available: available})
	}
	return items
}

// Render builds the picker view for date, attaching display-only staff data.
func Render(grid model.AvailabilityGrid, date string, staff model.StaffSummary, now time.Time) View {
	items := Project(grid, date, now)
	v := View{Date: date, Staff: staff, Items: items}
	for _, it := range items {
		if it.Available {
			v.AvailableCount++
		}
	}
	return v
}
