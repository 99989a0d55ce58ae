package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glowbook/clinicavail/libs/db"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MaxBulkEntries bounds a single bulk write.
const MaxBulkEntries = 50

var ErrTooManyEntries = fmt.Errorf("at most %d availability entries per request", MaxBulkEntries)

type EntryRepository struct {
	pool *db.Pool
}

func NewEntryRepository(pool *db.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

func (r *EntryRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// EntryQuery selects one staff member's entries that can apply to [From, To]. An empty
// OutletID matches every outlet; entries without an outlet match every query.
type EntryQuery struct {
	StaffID  string
	OutletID string
	From     time.Time
	To       time.Time
}

const entryColumns = `id::text, tenant_id, staff_id, outlet_id, entry_date, start_time, end_time,
	availability_type, recurrence_type, recurrence_end_date, created_at, updated_at`

// ListEntries returns single-date entries inside the range plus recurring entries whose
// recurrence window intersects it, ordered by date then start time.
func (r *EntryRepository) ListEntries(ctx context.Context, tenantID string, q EntryQuery) ([]model.AvailabilityEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM availability_entries
		WHERE tenant_id = $1
			AND staff_id = $2
			AND ($3::text = '' OR outlet_id = '' OR outlet_id = $3)
			AND (
				(recurrence_type = 'none' AND entry_date BETWEEN $4 AND $5)
				OR (recurrence_type <> 'none' AND entry_date <= $5
					AND (recurrence_end_date IS NULL OR recurrence_end_date >= $4))
			)
		ORDER BY entry_date ASC, start_time ASC, id ASC
	`, tenantID, q.StaffID, q.OutletID, q.From, q.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AvailabilityEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func (r *EntryRepository) GetEntry(ctx context.Context, tenantID, id string) (model.AvailabilityEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM availability_entries
		WHERE tenant_id = $1 AND id::text = $2
	`, tenantID, id)
	return scanEntry(row)
}

// CreateEntries inserts already validated entries inside tx, assigning ids and timestamps.
func (r *EntryRepository) CreateEntries(ctx context.Context, tx pgx.Tx, tenantID string, entries []model.AvailabilityEntry) ([]model.AvailabilityEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if len(entries) > MaxBulkEntries {
		return nil, ErrTooManyEntries
	}

	out := make([]model.AvailabilityEntry, len(entries))
	batch := &pgx.Batch{}
	for i, e := range entries {
		e.ID = uuid.NewString()
		e.TenantID = tenantID
		if e.RecurrenceType == "" {
			e.RecurrenceType = model.RecurrenceNone
		}
		date, err := timeutil.ParseDate(e.Date, time.UTC)
		if err != nil {
			return nil, err
		}
		var until *time.Time
		if e.RecurrenceEndDate != "" {
			u, err := timeutil.ParseDate(e.RecurrenceEndDate, time.UTC)
			if err != nil {
				return nil, err
			}
			until = &u
		}
		batch.Queue(`
			INSERT INTO availability_entries
				(id, tenant_id, staff_id, outlet_id, entry_date, start_time, end_time,
				 availability_type, recurrence_type, recurrence_end_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`, e.ID, e.TenantID, e.StaffID, e.OutletID, date, e.StartTime, e.EndTime,
			string(e.Type), string(e.RecurrenceType), until)
		out[i] = e
	}

	br := tx.SendBatch(ctx, batch)
	for i := range out {
		if err := br.QueryRow().Scan(&out[i].CreatedAt, &out[i].UpdatedAt); err != nil {
			_ = br.Close()
			return nil, err
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEntry removes one entry and returns what was deleted.
func (r *EntryRepository) DeleteEntry(ctx context.Context, tx pgx.Tx, tenantID, id string) (model.AvailabilityEntry, error) {
	row := tx.QueryRow(ctx, `
		DELETE FROM availability_entries
		WHERE tenant_id = $1 AND id::text = $2
		RETURNING `+entryColumns, tenantID, id)
	return scanEntry(row)
}

func scanEntry(row pgx.Row) (model.AvailabilityEntry, error) {
	var (
		e          model.AvailabilityEntry
		date       time.Time
		until      *time.Time
		typ, recur string
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.StaffID, &e.OutletID, &date, &e.StartTime, &e.EndTime,
		&typ, &recur, &until, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.AvailabilityEntry{}, err
	}
	e.Date = timeutil.FormatDate(date)
	e.Type = model.AvailabilityType(typ)
	e.RecurrenceType = model.RecurrenceType(recur)
	if until != nil {
		e.RecurrenceEndDate = timeutil.FormatDate(*until)
	}
	return e, nil
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
