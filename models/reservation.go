package models

import "time"

// Статусы резервации (значения совпадают с форматом клиента и CSV-отчёта).
const (
	ReservationPending   = "pendiente"
	ReservationConfirmed = "confirmada"
	ReservationCancelled = "cancelada"
)

// Типы резервации.
const (
	ReservationByUser  = "usuario"
	ReservationByGuest = "invitado"
)

// ReservationStatuses lists the allowed estado values, in the order they are
// reported back on validation errors.
var ReservationStatuses = []string{
	ReservationPending,
	ReservationConfirmed,
	ReservationCancelled,
}

func IsValidReservationStatus(status string) bool {
	for _, s := range ReservationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ReminderKind selects one of the two per-reservation reminder flags.
type ReminderKind string

const (
	FirstReminder ReminderKind = "first"
	FinalReminder ReminderKind = "final"
)

// GuestContact is the contact data embedded in a guest reservation.
type GuestContact struct {
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Phone string `json:"telefono,omitempty"`
}

type Reservation struct {
	ID            int           `json:"id"`
	Court         string        `json:"cancha"`
	Date          time.Time     `json:"fecha"`
	Slot          string        `json:"horario"`
	PaymentMethod string        `json:"metodoPago"`
	Type          string        `json:"tipo"`
	UserID        *int          `json:"usuario_id,omitempty"`
	Guest         *GuestContact `json:"datosInvitado,omitempty"`
	Status        string        `json:"estado"`

	FirstReminderSent bool `json:"firstReminderSent"`
	FinalReminderSent bool `json:"finalReminderSent"`

	LastActionAt *time.Time `json:"lastActionAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	// User carries the joined account details on admin listings.
	User *User `json:"usuario,omitempty"`
}

// ContactEmail resolves the notification address: the linked account's email
// wins, then the embedded guest contact. Empty when neither is present.
func (r *Reservation) ContactEmail() string {
	if r.User != nil && r.User.Email != "" {
		return r.User.Email
	}
	if r.Guest != nil {
		return r.Guest.Email
	}
	return ""
}
