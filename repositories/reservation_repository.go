package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/playnow/reservas-api/models"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationSlotTaken surfaces a violation of the partial unique
	// index on (cancha, fecha, horario) for non-cancelled rows.
	ErrReservationSlotTaken = errors.New("reservation slot already taken")
)

const reservationSlotConstraint = "reservations_slot_active_key"

type ReservationRepository interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id int) (*models.Reservation, error)
	// FindActiveBySlot returns the non-cancelled reservation occupying the
	// given (court, date, slot), or ErrReservationNotFound.
	FindActiveBySlot(ctx context.Context, court string, date time.Time, slot string) (*models.Reservation, error)
	Update(ctx context.Context, res *models.Reservation) error
	Delete(ctx context.Context, id int) error
	ListByUserID(ctx context.Context, userID int) ([]models.Reservation, error)
	// ListAllWithUsers returns every reservation with the owning account's
	// username/email joined in, newest first.
	ListAllWithUsers(ctx context.Context) ([]models.Reservation, error)
	// ListPendingInWindow returns pending reservations whose fecha falls in
	// [from, to] and whose reminder flag for kind is still unset, with the
	// owning account joined for contact resolution.
	ListPendingInWindow(ctx context.Context, from, to time.Time, kind models.ReminderKind) ([]models.Reservation, error)
	MarkReminderSent(ctx context.Context, id int, kind models.ReminderKind) error
}

type postgresReservationRepository struct {
	db *sql.DB
}

func NewPostgresReservationRepository(db *sql.DB) ReservationRepository {
	return &postgresReservationRepository{db: db}
}

func (r *postgresReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	query := `
		INSERT INTO reservations
			(cancha, fecha, horario, metodo_pago, tipo, usuario_id,
			 invitado_nombre, invitado_email, invitado_telefono, estado)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	var guestName, guestEmail, guestPhone sql.NullString
	if res.Guest != nil {
		guestName = nullString(res.Guest.Name)
		guestEmail = nullString(res.Guest.Email)
		guestPhone = nullString(res.Guest.Phone)
	}

	err := r.db.QueryRowContext(ctx, query,
		res.Court,
		res.Date,
		res.Slot,
		res.PaymentMethod,
		res.Type,
		nullInt(res.UserID),
		guestName,
		guestEmail,
		guestPhone,
		res.Status,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)

	if err != nil {
		return mapReservationError(err)
	}
	return nil
}

func (r *postgresReservationRepository) GetByID(ctx context.Context, id int) (*models.Reservation, error) {
	query := reservationSelectWithUser + ` WHERE r.id = $1`

	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to scan reservation: %w", err)
	}
	return res, nil
}

func (r *postgresReservationRepository) FindActiveBySlot(ctx context.Context, court string, date time.Time, slot string) (*models.Reservation, error) {
	query := reservationSelectWithUser + `
		WHERE r.cancha = $1 AND r.fecha = $2 AND r.horario = $3 AND r.estado <> $4`

	res, err := scanReservation(r.db.QueryRowContext(ctx, query, court, date, slot, models.ReservationCancelled))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to scan reservation: %w", err)
	}
	return res, nil
}

func (r *postgresReservationRepository) Update(ctx context.Context, res *models.Reservation) error {
	query := `
		UPDATE reservations SET
			cancha = $1,
			fecha = $2,
			horario = $3,
			metodo_pago = $4,
			tipo = $5,
			usuario_id = $6,
			invitado_nombre = $7,
			invitado_email = $8,
			invitado_telefono = $9,
			estado = $10,
			last_action_at = $11,
			updated_at = now()
		WHERE id = $12
		RETURNING updated_at`

	var guestName, guestEmail, guestPhone sql.NullString
	if res.Guest != nil {
		guestName = nullString(res.Guest.Name)
		guestEmail = nullString(res.Guest.Email)
		guestPhone = nullString(res.Guest.Phone)
	}

	err := r.db.QueryRowContext(ctx, query,
		res.Court,
		res.Date,
		res.Slot,
		res.PaymentMethod,
		res.Type,
		nullInt(res.UserID),
		guestName,
		guestEmail,
		guestPhone,
		res.Status,
		nullTime(res.LastActionAt),
		res.ID,
	).Scan(&res.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReservationNotFound
		}
		return mapReservationError(err)
	}
	return nil
}

func (r *postgresReservationRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrReservationNotFound)
}

func (r *postgresReservationRepository) ListByUserID(ctx context.Context, userID int) ([]models.Reservation, error) {
	query := reservationSelectWithUser + `
		WHERE r.usuario_id = $1
		ORDER BY r.fecha DESC, r.horario ASC`
	return r.list(ctx, query, userID)
}

func (r *postgresReservationRepository) ListAllWithUsers(ctx context.Context) ([]models.Reservation, error) {
	query := reservationSelectWithUser + ` ORDER BY r.created_at DESC`
	return r.list(ctx, query)
}

func (r *postgresReservationRepository) ListPendingInWindow(ctx context.Context, from, to time.Time, kind models.ReminderKind) ([]models.Reservation, error) {
	column, err := reminderColumn(kind)
	if err != nil {
		return nil, err
	}
	query := reservationSelectWithUser + `
		WHERE r.fecha >= $1 AND r.fecha <= $2
		  AND r.estado = $3
		  AND r.` + column + ` = FALSE`
	return r.list(ctx, query, from, to, models.ReservationPending)
}

func (r *postgresReservationRepository) MarkReminderSent(ctx context.Context, id int, kind models.ReminderKind) error {
	column, err := reminderColumn(kind)
	if err != nil {
		return err
	}
	query := `UPDATE reservations SET ` + column + ` = TRUE, updated_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrReservationNotFound)
}

func (r *postgresReservationRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]models.Reservation, 0)
	for rows.Next() {
		res, scanErr := scanReservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		reservations = append(reservations, *res)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

// reminderColumn maps a ReminderKind to its column. Kinds are a closed enum,
// so this is the only place the column names appear.
func reminderColumn(kind models.ReminderKind) (string, error) {
	switch kind {
	case models.FirstReminder:
		return "first_reminder_sent", nil
	case models.FinalReminder:
		return "final_reminder_sent", nil
	default:
		return "", fmt.Errorf("unknown reminder kind: %q", kind)
	}
}

const reservationSelectWithUser = `
	SELECT
		r.id, r.cancha, r.fecha, r.horario, r.metodo_pago, r.tipo, r.usuario_id,
		r.invitado_nombre, r.invitado_email, r.invitado_telefono, r.estado,
		r.first_reminder_sent, r.final_reminder_sent,
		r.last_action_at, r.created_at, r.updated_at,
		u.id, u.username, u.email
	FROM reservations r
	LEFT JOIN users u ON r.usuario_id = u.id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var res models.Reservation

	var userID sql.NullInt64
	var guestName, guestEmail, guestPhone sql.NullString
	var lastActionAt sql.NullTime
	var joinedID sql.NullInt64
	var joinedUsername, joinedEmail sql.NullString

	err := row.Scan(
		&res.ID,
		&res.Court,
		&res.Date,
		&res.Slot,
		&res.PaymentMethod,
		&res.Type,
		&userID,
		&guestName,
		&guestEmail,
		&guestPhone,
		&res.Status,
		&res.FirstReminderSent,
		&res.FinalReminderSent,
		&lastActionAt,
		&res.CreatedAt,
		&res.UpdatedAt,
		&joinedID,
		&joinedUsername,
		&joinedEmail,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		id := int(userID.Int64)
		res.UserID = &id
	}
	if guestName.Valid || guestEmail.Valid || guestPhone.Valid {
		res.Guest = &models.GuestContact{
			Name:  guestName.String,
			Email: guestEmail.String,
			Phone: guestPhone.String,
		}
	}
	if lastActionAt.Valid {
		t := lastActionAt.Time
		res.LastActionAt = &t
	}
	if joinedID.Valid {
		res.User = &models.User{
			ID:       int(joinedID.Int64),
			Username: joinedUsername.String,
			Email:    joinedEmail.String,
		}
	}

	return &res, nil
}

func mapReservationError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == reservationSlotConstraint {
		return ErrReservationSlotTaken
	}
	return err
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
