package availability

import (
	"errors"
	"fmt"
)

var (
	// ErrRangeTooLarge rejects date spans above the configured day bound before any data is fetched.
	ErrRangeTooLarge = errors.New("requested date range is too large")
	// ErrInvalidRange is returned when the end date precedes the start date.
	ErrInvalidRange = errors.New("end date precedes start date")
	// ErrMissingStaffContext means no staff member was selected; callers render a guided empty state.
	ErrMissingStaffContext = errors.New("staff member is required")
	ErrInvalidInterval     = errors.New("slot interval must be between 1 and 1440 minutes")
)

const DefaultMaxRangeDays = 90

// PartialDataWarning describes one upstream record that was skipped during grid computation.
type PartialDataWarning struct {
	Kind     string `json:"kind"` // "booking" or "entry"
	RecordID string `json:"record_id"`
	Date     string `json:"date,omitempty"`
	Reason   string `json:"reason"`
}

func (w PartialDataWarning) Error() string {
	return fmt.Sprintf("skipped %s %s: %s", w.Kind, w.RecordID, w.Reason)
}
