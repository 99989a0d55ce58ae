package model

// AvailabilitySlot is one discrete bookable unit of a day.
type AvailabilitySlot struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

type GridMetadata struct {
	ServiceID              string `json:"service_id"`
	ServiceName            string `json:"service_name"`
	OutletID               string `json:"outlet_id"`
	OutletName             string `json:"outlet_name"`
	StaffID                string `json:"staff_id"`
	TotalAvailableSlots    int    `json:"total_available_slots"`
	ServiceDurationMinutes int    `json:"service_duration_minutes"`
	Timezone               string `json:"timezone"`
	SkippedRecords         int    `json:"skipped_records"`
}

// AvailabilityGrid maps every date of [StartDate, EndDate] to its ordered slots.
type AvailabilityGrid struct {
	StartDate           string                        `json:"start_date"`
	EndDate             string                        `json:"end_date"`
	NumDays             int                           `json:"num_days"`
	SlotIntervalMinutes int                           `json:"slot_interval_minutes"`
	Days                map[string][]AvailabilitySlot `json:"availability_grid"`
	Metadata            GridMetadata                  `json:"metadata"`
}
