package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playnow/reservas-api/models"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrReservationFieldsRequired = errors.New("cancha, fecha and horario are required")
	ErrInvalidDate               = errors.New("invalid date")
	ErrGuestContactRequired      = errors.New("guest name and email are required")
	ErrReservationInPast         = errors.New("cannot modify a reservation whose date has passed")
	ErrEmptyUpdate               = errors.New("no fields provided to update")
	ErrRatingOutOfRange          = errors.New("rating must be between 1 and 5")
	ErrCommentRequired           = errors.New("rating and comment are required")
	ErrReviewAuthorRequired      = errors.New("a user session or a name is required")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReviewNotFound      = errors.New("review not found")
	ErrUserNotFound        = errors.New("user not found")

	// Отчёты
	ErrNoReservations  = errors.New("no reservations to report")
	ErrStorageDisabled = errors.New("report archive storage is not configured")
)

// ErrInvalidReservationStatus carries the allowed values in its message so
// the admin client can show them directly.
var ErrInvalidReservationStatus = fmt.Errorf(
	"invalid estado, allowed values are: %s", strings.Join(models.ReservationStatuses, ", "))

// SlotConflictError names the occupied slot, which the clients surface
// verbatim to the user.
type SlotConflictError struct {
	Court string
	Date  time.Time
	Slot  string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("la cancha %s ya está reservada para el %s a las %s",
		e.Court, e.Date.Format("02/01/2006"), e.Slot)
}
