package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/playnow/reservas-api/models"
	"github.com/playnow/reservas-api/repositories"
	"github.com/playnow/reservas-api/storage"
)

// reportHeader is the column layout the admin spreadsheet expects.
// Dates are decomposed into day/month/year columns for pivoting;
// day and month are zero-padded to two digits.
var reportHeader = []string{
	"_id", "cancha", "fecha_dia", "fecha_mes", "fecha_anio", "hora",
	"metodoPago", "tipo", "estado",
	"usuario_nombre", "usuario_email", "usuario_telefono",
	"created_dia", "created_mes", "created_anio", "created_hora",
	"updatedAt",
}

type ReportService interface {
	BuildCSV(ctx context.Context) (filename string, data []byte, err error)
	ArchiveCSV(ctx context.Context) (*storage.UploadResult, error)
}

type reportService struct {
	reservationRepo repositories.ReservationRepository
	uploader        storage.FileUploader
	now             func() time.Time
}

// NewReportService builds the CSV exporter. uploader may be nil, in which
// case ArchiveCSV returns ErrStorageDisabled.
func NewReportService(reservationRepo repositories.ReservationRepository, uploader storage.FileUploader) ReportService {
	return &reportService{
		reservationRepo: reservationRepo,
		uploader:        uploader,
		now:             time.Now,
	}
}

func (s *reportService) BuildCSV(ctx context.Context) (string, []byte, error) {
	reservations, err := s.reservationRepo.ListAllWithUsers(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list reservations for report: %w", err)
	}
	if len(reservations) == 0 {
		return "", nil, ErrNoReservations
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(reportHeader); err != nil {
		return "", nil, fmt.Errorf("failed to write report header: %w", err)
	}
	for i := range reservations {
		if err := w.Write(reportRow(&reservations[i])); err != nil {
			return "", nil, fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, fmt.Errorf("failed to flush report: %w", err)
	}

	return reportFilename(s.now()), buf.Bytes(), nil
}

// ArchiveCSV builds the report and stores it in the archive bucket under
// reportes/<filename>, returning the public location.
func (s *reportService) ArchiveCSV(ctx context.Context) (*storage.UploadResult, error) {
	if s.uploader == nil {
		return nil, ErrStorageDisabled
	}

	filename, data, err := s.BuildCSV(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.uploader.Upload(ctx, "reportes/"+filename, "text/csv", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to archive report: %w", err)
	}
	return result, nil
}

func reportRow(r *models.Reservation) []string {
	name, email, phone := "", "", ""
	switch {
	case r.Guest != nil:
		name, email, phone = r.Guest.Name, r.Guest.Email, r.Guest.Phone
	case r.User != nil:
		name, email, phone = r.User.Username, r.User.Email, r.User.Phone
	}

	date := r.Date.UTC()
	created := r.CreatedAt.UTC()

	return []string{
		strconv.Itoa(r.ID),
		r.Court,
		fmt.Sprintf("%02d", date.Day()),
		fmt.Sprintf("%02d", int(date.Month())),
		strconv.Itoa(date.Year()),
		r.Slot,
		r.PaymentMethod,
		r.Type,
		r.Status,
		name,
		email,
		phone,
		fmt.Sprintf("%02d", created.Day()),
		fmt.Sprintf("%02d", int(created.Month())),
		strconv.Itoa(created.Year()),
		created.Format("15:04"),
		r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func reportFilename(t time.Time) string {
	return fmt.Sprintf("ReportePlayNow_%s.csv", t.UTC().Format("02_01_2006_15_04"))
}
