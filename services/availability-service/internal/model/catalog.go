package model

// Service is the catalog view of a treatment needed for slot sizing.
type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Outlet carries an optional IANA timezone that overrides the tenant's.
type Outlet struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Timezone string `json:"timezone"`
}

// StaffSummary is display-only data for the slot picker header.
type StaffSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	OutletLabel string `json:"outlet_label"`
	AvatarURL   string `json:"avatar_url"`
}

// Tenant holds the clinic-wide scheduling defaults. Zero values mean "use the service default".
type Tenant struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Timezone            string `json:"timezone"`
	SlotIntervalMinutes int    `json:"slot_interval_minutes"`
}
