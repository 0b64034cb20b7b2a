package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playnow/reservas-api/models"
	"github.com/playnow/reservas-api/repositories"
)

// ReservationAction is one of the public link actions.
type ReservationAction string

const (
	ActionConfirm ReservationAction = "confirm"
	ActionCancel  ReservationAction = "cancel"
)

// Типы событий, транслируемых на панель администратора.
const (
	EventReservationCreated = "RESERVATION_CREATED"
	EventReservationUpdated = "RESERVATION_UPDATED"
	EventReservationDeleted = "RESERVATION_DELETED"
)

// EventPublisher pushes reservation changes to connected admin dashboards.
// A nil publisher disables the feed.
type EventPublisher interface {
	PublishReservationEvent(eventType string, payload interface{})
}

type ReservationService interface {
	Create(ctx context.Context, input CreateReservationInput, userID int) (*models.Reservation, error)
	CreateGuest(ctx context.Context, input GuestReservationInput) (*models.Reservation, error)
	HandleAction(ctx context.Context, id int, action ReservationAction) (*models.Reservation, error)
	ListForUser(ctx context.Context, userID int) ([]models.Reservation, error)
	ListAllForAdmin(ctx context.Context) ([]models.Reservation, error)
	AdminUpdate(ctx context.Context, id int, input AdminUpdateInput) (*models.Reservation, error)
	AdminDelete(ctx context.Context, id int) error
}

type CreateReservationInput struct {
	Court         string `json:"cancha"`
	Date          string `json:"fecha"`
	Slot          string `json:"horario"`
	PaymentMethod string `json:"metodoPago"`
}

type GuestReservationInput struct {
	Court         string `json:"cancha"`
	Date          string `json:"fecha"`
	Slot          string `json:"horario"`
	PaymentMethod string `json:"metodoPago"`
	Name          string `json:"nombre"`
	Email         string `json:"email"`
	Phone         string `json:"telefono"`
}

// AdminUpdateInput is a partial patch: nil fields are left untouched.
type AdminUpdateInput struct {
	Court         *string     `json:"cancha"`
	Date          *string     `json:"fecha"`
	Slot          *string     `json:"horario"`
	Status        *string     `json:"estado"`
	PaymentMethod *string     `json:"metodoPago"`
	Guest         *GuestPatch `json:"datosInvitado"`
}

type GuestPatch struct {
	Name  *string `json:"nombre"`
	Email *string `json:"email"`
	Phone *string `json:"telefono"`
}

func (in AdminUpdateInput) empty() bool {
	return in.Court == nil && in.Date == nil && in.Slot == nil &&
		in.Status == nil && in.PaymentMethod == nil && in.Guest == nil
}

type reservationService struct {
	reservationRepo repositories.ReservationRepository
	userRepo        repositories.UserRepository
	mailer          ReservationMailer
	publisher       EventPublisher
	logger          *slog.Logger
	now             func() time.Time
}

func NewReservationService(
	reservationRepo repositories.ReservationRepository,
	userRepo repositories.UserRepository,
	mailer ReservationMailer,
	publisher EventPublisher,
	logger *slog.Logger,
) ReservationService {
	return &reservationService{
		reservationRepo: reservationRepo,
		userRepo:        userRepo,
		mailer:          mailer,
		publisher:       publisher,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *reservationService) Create(ctx context.Context, input CreateReservationInput, userID int) (*models.Reservation, error) {
	date, err := validateReservationFields(input.Court, input.Date, input.Slot)
	if err != nil {
		return nil, err
	}

	reservation := &models.Reservation{
		Court:         strings.TrimSpace(input.Court),
		Date:          date,
		Slot:          strings.TrimSpace(input.Slot),
		PaymentMethod: input.PaymentMethod,
		Type:          models.ReservationByUser,
		UserID:        &userID,
		Status:        models.ReservationPending,
	}

	if err := s.insert(ctx, reservation); err != nil {
		return nil, err
	}

	s.notify(ctx, reservation, EmailActionInitial)
	s.publish(EventReservationCreated, reservation)
	return reservation, nil
}

func (s *reservationService) CreateGuest(ctx context.Context, input GuestReservationInput) (*models.Reservation, error) {
	date, err := validateReservationFields(input.Court, input.Date, input.Slot)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Email) == "" {
		return nil, ErrGuestContactRequired
	}

	reservation := &models.Reservation{
		Court:         strings.TrimSpace(input.Court),
		Date:          date,
		Slot:          strings.TrimSpace(input.Slot),
		PaymentMethod: input.PaymentMethod,
		Type:          models.ReservationByGuest,
		Status:        models.ReservationPending,
		Guest: &models.GuestContact{
			Name:  strings.TrimSpace(input.Name),
			Email: strings.TrimSpace(input.Email),
			Phone: strings.TrimSpace(input.Phone),
		},
	}

	if err := s.insert(ctx, reservation); err != nil {
		return nil, err
	}

	s.notify(ctx, reservation, EmailActionInitial)
	s.publish(EventReservationCreated, reservation)
	return reservation, nil
}

// insert persists a new reservation. The friendly pre-check produces the
// slot-naming message in the common case; the partial unique index is the
// backstop that makes two concurrent bookings of one slot impossible.
func (s *reservationService) insert(ctx context.Context, reservation *models.Reservation) error {
	_, err := s.reservationRepo.FindActiveBySlot(ctx, reservation.Court, reservation.Date, reservation.Slot)
	if err == nil {
		return &SlotConflictError{Court: reservation.Court, Date: reservation.Date, Slot: reservation.Slot}
	}
	if !errors.Is(err, repositories.ErrReservationNotFound) {
		return fmt.Errorf("failed to check slot availability: %w", err)
	}

	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		if errors.Is(err, repositories.ErrReservationSlotTaken) {
			return &SlotConflictError{Court: reservation.Court, Date: reservation.Date, Slot: reservation.Slot}
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (s *reservationService) HandleAction(ctx context.Context, id int, action ReservationAction) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrReservationNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	// Линки живут в письмах неограниченно долго: день резервации должен
	// ещё не пройти.
	today := startOfDay(s.now().UTC())
	if reservation.Date.Before(today) {
		return nil, ErrReservationInPast
	}

	emailAction := EmailActionConfirmation
	if action == ActionCancel {
		reservation.Status = models.ReservationCancelled
		emailAction = EmailActionCancellation
	} else {
		reservation.Status = models.ReservationConfirmed
	}
	actionAt := s.now().UTC()
	reservation.LastActionAt = &actionAt

	if err := s.reservationRepo.Update(ctx, reservation); err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}

	s.notify(ctx, reservation, emailAction)
	s.publish(EventReservationUpdated, reservation)
	return reservation, nil
}

func (s *reservationService) ListForUser(ctx context.Context, userID int) ([]models.Reservation, error) {
	return s.reservationRepo.ListByUserID(ctx, userID)
}

func (s *reservationService) ListAllForAdmin(ctx context.Context) ([]models.Reservation, error) {
	return s.reservationRepo.ListAllWithUsers(ctx)
}

func (s *reservationService) AdminUpdate(ctx context.Context, id int, input AdminUpdateInput) (*models.Reservation, error) {
	if input.empty() {
		return nil, ErrEmptyUpdate
	}
	if input.Status != nil && !models.IsValidReservationStatus(*input.Status) {
		return nil, ErrInvalidReservationStatus
	}

	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrReservationNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	if input.Court != nil {
		reservation.Court = strings.TrimSpace(*input.Court)
	}
	if input.Date != nil {
		date, parseErr := parseReservationDate(*input.Date)
		if parseErr != nil {
			return nil, ErrInvalidDate
		}
		reservation.Date = date
	}
	if input.Slot != nil {
		reservation.Slot = strings.TrimSpace(*input.Slot)
	}
	if input.Status != nil {
		reservation.Status = *input.Status
	}
	if input.PaymentMethod != nil {
		reservation.PaymentMethod = *input.PaymentMethod
	}
	if input.Guest != nil {
		if reservation.Guest == nil {
			reservation.Guest = &models.GuestContact{}
		}
		if input.Guest.Name != nil {
			reservation.Guest.Name = *input.Guest.Name
		}
		if input.Guest.Email != nil {
			reservation.Guest.Email = *input.Guest.Email
		}
		if input.Guest.Phone != nil {
			reservation.Guest.Phone = *input.Guest.Phone
		}
	}

	if err := s.reservationRepo.Update(ctx, reservation); err != nil {
		if errors.Is(err, repositories.ErrReservationSlotTaken) {
			return nil, &SlotConflictError{Court: reservation.Court, Date: reservation.Date, Slot: reservation.Slot}
		}
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}

	s.publish(EventReservationUpdated, reservation)
	return reservation, nil
}

func (s *reservationService) AdminDelete(ctx context.Context, id int) error {
	if err := s.reservationRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrReservationNotFound) {
			return ErrReservationNotFound
		}
		return err
	}
	s.publish(EventReservationDeleted, map[string]int{"id": id})
	return nil
}

// notify delivers a reservation email best-effort: failures are logged and
// never propagated to the caller, the owning write already committed.
func (s *reservationService) notify(ctx context.Context, reservation *models.Reservation, action EmailAction) {
	if s.mailer == nil {
		return
	}

	to := reservation.ContactEmail()
	if to == "" && reservation.UserID != nil {
		user, err := s.userRepo.GetByID(ctx, *reservation.UserID)
		if err != nil {
			s.logger.Error("failed to resolve reservation contact",
				slog.Int("reservation_id", reservation.ID), slog.Any("error", err))
			return
		}
		to = user.Email
	}
	if to == "" {
		return
	}

	err := s.mailer.SendReservationEmail(ctx, ReservationEmail{
		To:            to,
		ReservationID: reservation.ID,
		Court:         reservation.Court,
		Date:          reservation.Date,
		Slot:          reservation.Slot,
		Action:        action,
	})
	if err != nil {
		s.logger.Error("failed to send reservation email",
			slog.Int("reservation_id", reservation.ID),
			slog.String("action", string(action)),
			slog.Any("error", err))
	}
}

func (s *reservationService) publish(eventType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.PublishReservationEvent(eventType, payload)
	}
}

func validateReservationFields(court, date, slot string) (time.Time, error) {
	if strings.TrimSpace(court) == "" || strings.TrimSpace(date) == "" || strings.TrimSpace(slot) == "" {
		return time.Time{}, ErrReservationFieldsRequired
	}
	parsed, err := parseReservationDate(date)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return parsed, nil
}

// parseReservationDate accepts the date formats the clients send and
// normalizes to midnight UTC of the slot day, the canonical form the
// unique index keys on.
func parseReservationDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return startOfDay(t.UTC()), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", value)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
