package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/playnow/reservas-api/models"
	"github.com/playnow/reservas-api/repositories"
	"github.com/playnow/reservas-api/services"
)

const (
	reminderJobName = "reservation_reminders"
	reminderCron    = "0 * * * *" // каждый час, в начале часа
	reminderTimeout = 2 * time.Minute
)

// ReminderJob emails holders of pending reservations before their slot.
// Two sweeps per run: an early heads-up a day ahead and a final nudge
// half a day ahead. The per-kind sent flag on the reservation is the only
// dedup, so a reservation gets each reminder at most once no matter how
// often the job fires.
type ReminderJob struct {
	reservations repositories.ReservationRepository
	mailer       services.ReservationMailer
	logger       *slog.Logger
	now          func() time.Time
}

func NewReminderJob(
	reservations repositories.ReservationRepository,
	mailer services.ReservationMailer,
	logger *slog.Logger,
) *ReminderJob {
	return &ReminderJob{
		reservations: reservations,
		mailer:       mailer,
		logger:       logger,
		now:          time.Now,
	}
}

// Register adds the hourly job to the scheduler. Without a mailer the job
// is not registered at all: reminders make no sense unsent.
func (j *ReminderJob) Register(s *Scheduler) error {
	if j.mailer == nil {
		j.logger.Info("reminder job disabled: email transport not configured")
		return nil
	}
	_, err := s.AddCronJob(reminderJobName, reminderCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reminderTimeout)
		defer cancel()
		j.Run(ctx)
	})
	return err
}

// Run executes both reminder sweeps once.
func (j *ReminderJob) Run(ctx context.Context) {
	now := j.now().UTC()

	// Ранний проход: резервации на ближайшие сутки-двое.
	j.sweep(ctx, now.Add(24*time.Hour), now.Add(48*time.Hour), models.FirstReminder)

	// Финальный проход: узкое часовое окно около 12 часов до слота.
	j.sweep(ctx, now.Add(12*time.Hour), now.Add(13*time.Hour), models.FinalReminder)
}

func (j *ReminderJob) sweep(ctx context.Context, from, to time.Time, kind models.ReminderKind) {
	reservations, err := j.reservations.ListPendingInWindow(ctx, from, to, kind)
	if err != nil {
		j.logger.Error("failed to load reservations for reminders",
			slog.String("kind", string(kind)), slog.Any("error", err))
		return
	}

	for i := range reservations {
		reservation := &reservations[i]

		recipient := reservation.ContactEmail()
		if recipient == "" {
			// Контакта нет: флаг не трогаем — если админ позже добавит
			// контакт гостя, напоминание ещё уйдёт.
			continue
		}

		err := j.mailer.SendReservationEmail(ctx, services.ReservationEmail{
			To:            recipient,
			ReservationID: reservation.ID,
			Court:         reservation.Court,
			Date:          reservation.Date,
			Slot:          reservation.Slot,
			Action:        services.EmailActionReminder,
		})
		if err != nil {
			// Флаг не ставим: следующий запуск попробует ещё раз.
			j.logger.Error("failed to send reminder",
				slog.Int("reservation_id", reservation.ID),
				slog.String("kind", string(kind)),
				slog.Any("error", err))
			continue
		}

		j.markSent(ctx, reservation.ID, kind)
		j.logger.Info("reminder sent",
			slog.Int("reservation_id", reservation.ID),
			slog.String("kind", string(kind)))
	}
}

func (j *ReminderJob) markSent(ctx context.Context, id int, kind models.ReminderKind) {
	if err := j.reservations.MarkReminderSent(ctx, id, kind); err != nil {
		j.logger.Error("failed to mark reminder as sent",
			slog.Int("reservation_id", id),
			slog.String("kind", string(kind)),
			slog.Any("error", err))
	}
}
