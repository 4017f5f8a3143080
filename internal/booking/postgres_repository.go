package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careroster/careroster/internal/schedule"
)

// overlapConstraint is the exclusion constraint preventing one carer from
// holding two overlapping bookings. It is enforced by the database as the
// second line of defense behind the in-process conflict scan.
const overlapConstraint = "bookings_carer_no_overlap"

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL booking repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const bookingColumns = `
	id, client_id, client_name, carer_id,
	booking_date, start_min, end_min,
	status, service_ref, notes, force_committed,
	created_at, updated_at
`

// Get retrieves a booking by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Booking, error) {
	query := `SELECT` + bookingColumns + `FROM bookings WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// QueryByCarerAndDate retrieves all bookings for a carer on a calendar day.
func (r *PostgresRepository) QueryByCarerAndDate(ctx context.Context, carerID string, date time.Time) ([]*Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings
		WHERE carer_id = $1 AND booking_date = $2
		ORDER BY start_min
	`

	rows, err := r.pool.Query(ctx, query, carerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

// QueryByDate retrieves all bookings on a calendar day.
func (r *PostgresRepository) QueryByDate(ctx context.Context, date time.Time) ([]*Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings
		WHERE booking_date = $1
		ORDER BY carer_id NULLS LAST, start_min
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

// Create persists a new booking.
func (r *PostgresRepository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (
			id, client_id, client_name, carer_id,
			booking_date, start_min, end_min,
			status, service_ref, notes, force_committed,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		b.ID, b.ClientID, b.ClientName, nullableCarer(b.CarerID),
		b.Date, int(b.Start), int(b.End),
		string(b.Status), b.ServiceRef, b.Notes, b.ForceCommitted,
		b.CreatedAt, b.UpdatedAt,
	)
	return mapConstraintError(err)
}

// Update replaces an existing booking.
func (r *PostgresRepository) Update(ctx context.Context, b *Booking) error {
	query := `
		UPDATE bookings SET
			client_id = $2, client_name = $3, carer_id = $4,
			booking_date = $5, start_min = $6, end_min = $7,
			status = $8, service_ref = $9, notes = $10, force_committed = $11,
			updated_at = $12
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		b.ID, b.ClientID, b.ClientName, nullableCarer(b.CarerID),
		b.Date, int(b.Start), int(b.End),
		string(b.Status), b.ServiceRef, b.Notes, b.ForceCommitted,
		b.UpdatedAt,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// Delete removes a booking by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// mapConstraintError converts an overlap-constraint violation into
// ErrScheduleTaken. Exclusion constraints raise 23P01; a plain unique index
// on (carer_id, booking_date, start_min) raises 23505.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if (pgErr.Code == "23P01" || pgErr.Code == "23505") && pgErr.ConstraintName == overlapConstraint {
			return ErrScheduleTaken
		}
	}
	return err
}

// nullableCarer maps an unassigned carer to SQL NULL.
func nullableCarer(carerID string) *string {
	if carerID == "" {
		return nil
	}
	return &carerID
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var (
		b        Booking
		carerID  *string
		startMin int
		endMin   int
		status   string
	)

	err := row.Scan(
		&b.ID, &b.ClientID, &b.ClientName, &carerID,
		&b.Date, &startMin, &endMin,
		&status, &b.ServiceRef, &b.Notes, &b.ForceCommitted,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if carerID != nil {
		b.CarerID = *carerID
	}
	b.Start, b.End = schedule.TimeOfDay(startMin), schedule.TimeOfDay(endMin)
	b.Status = Status(status)
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*Booking, error) {
	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
