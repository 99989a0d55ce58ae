package storage

import (
	"context"
	"time"

	"github.com/glowbook/clinicavail/libs/db"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
)

// BookingRepository reads the appointment table replicated from the clinic's legacy store.
// Dates and times are kept as text there, so rows are returned unparsed and malformed ones
// are skipped later by the grid builder.
type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// ListBookings returns the staff member's non-cancelled appointments dated within [from, to].
func (r *BookingRepository) ListBookings(ctx context.Context, tenantID, staffID string, from, to time.Time) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, staff_id, outlet_id, appointment_date, start_time, end_time, duration_minutes, status
		FROM legacy_appointments
		WHERE tenant_id = $1
			AND staff_id = $2
			AND appointment_date BETWEEN $3 AND $4
			AND lower(status) NOT IN ('cancelled', 'canceled')
		ORDER BY appointment_date ASC, start_time ASC
	`, tenantID, staffID, timeutil.FormatDate(from), timeutil.FormatDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.StaffID, &b.OutletID, &b.Date, &b.StartTime, &b.EndTime, &b.DurationMinutes, &b.Status); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}
