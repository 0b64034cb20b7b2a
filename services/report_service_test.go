package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/playnow/reservas-api/models"
	"github.com/playnow/reservas-api/storage"
)

type fakeUploader struct {
	lastKey         string
	lastContentType string
	lastBody        []byte
	err             error
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.lastKey = key
	f.lastContentType = contentType
	f.lastBody = body
	return &storage.UploadResult{Key: key, Location: "https://archive.example.com/" + key}, nil
}

func (f *fakeUploader) Delete(ctx context.Context, key string) error { return nil }

func (f *fakeUploader) GetPublicURL(key string) string {
	return "https://archive.example.com/" + key
}

func reportFixtures() []models.Reservation {
	userID := 7
	return []models.Reservation{
		{
			ID:            1,
			Court:         "Cancha 1",
			Date:          time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			Slot:          "18:00",
			PaymentMethod: "efectivo",
			Type:          models.ReservationByUser,
			UserID:        &userID,
			Status:        models.ReservationConfirmed,
			CreatedAt:     time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC),
			UpdatedAt:     time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
			User:          &models.User{ID: 7, Username: "ana", Email: "ana@example.com", Phone: "555-0001"},
		},
		{
			ID:            2,
			Court:         "Cancha 2",
			Date:          time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			Slot:          "10:00",
			PaymentMethod: "tarjeta",
			Type:          models.ReservationByGuest,
			Status:        models.ReservationPending,
			Guest:         &models.GuestContact{Name: "Luis", Email: "luis@example.com", Phone: "555-0002"},
			CreatedAt:     time.Date(2025, 6, 20, 8, 5, 0, 0, time.UTC),
			UpdatedAt:     time.Date(2025, 6, 20, 8, 5, 0, 0, time.UTC),
		},
	}
}

func newTestReportService(reservations []models.Reservation, uploader storage.FileUploader, now time.Time) *reportService {
	repo := &fakeReservationRepo{
		listAllFn: func(ctx context.Context) ([]models.Reservation, error) {
			return reservations, nil
		},
	}
	svc := NewReportService(repo, uploader).(*reportService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestBuildCSV(t *testing.T) {
	now := time.Date(2025, 7, 2, 16, 45, 0, 0, time.UTC)
	svc := newTestReportService(reportFixtures(), nil, now)

	filename, data, err := svc.BuildCSV(context.Background())
	if err != nil {
		t.Fatalf("BuildCSV returned error: %v", err)
	}

	if filename != "ReportePlayNow_02_07_2025_16_45.csv" {
		t.Errorf("filename = %q", filename)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse generated CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}

	wantHeader := strings.Join(reportHeader, ",")
	if got := strings.Join(records[0], ","); got != wantHeader {
		t.Errorf("header = %q, want %q", got, wantHeader)
	}

	userRow := records[1]
	if userRow[0] != "1" || userRow[1] != "Cancha 1" {
		t.Errorf("user row = %v", userRow)
	}
	if userRow[2] != "15" || userRow[3] != "06" || userRow[4] != "2025" {
		t.Errorf("fecha decomposition = %v", userRow[2:5])
	}
	if userRow[9] != "ana" || userRow[10] != "ana@example.com" || userRow[11] != "555-0001" {
		t.Errorf("user contact columns = %v", userRow[9:12])
	}
	if userRow[12] != "01" || userRow[13] != "06" || userRow[14] != "2025" {
		t.Errorf("created decomposition = %v", userRow[12:15])
	}
	if userRow[15] != "14:30" {
		t.Errorf("created_hora = %q, want 14:30", userRow[15])
	}

	guestRow := records[2]
	if guestRow[7] != models.ReservationByGuest || guestRow[9] != "Luis" {
		t.Errorf("guest row = %v", guestRow)
	}
	if guestRow[2] != "01" || guestRow[3] != "07" {
		t.Errorf("guest fecha columns = %v, want zero-padded day and month", guestRow[2:4])
	}
}

func TestBuildCSVEmpty(t *testing.T) {
	svc := newTestReportService([]models.Reservation{}, nil, time.Now())

	_, _, err := svc.BuildCSV(context.Background())
	if !errors.Is(err, ErrNoReservations) {
		t.Errorf("err = %v, want ErrNoReservations", err)
	}
}

func TestArchiveCSV(t *testing.T) {
	now := time.Date(2025, 7, 2, 16, 45, 0, 0, time.UTC)
	uploader := &fakeUploader{}
	svc := newTestReportService(reportFixtures(), uploader, now)

	result, err := svc.ArchiveCSV(context.Background())
	if err != nil {
		t.Fatalf("ArchiveCSV returned error: %v", err)
	}

	wantKey := "reportes/ReportePlayNow_02_07_2025_16_45.csv"
	if result.Key != wantKey {
		t.Errorf("key = %q, want %q", result.Key, wantKey)
	}
	if uploader.lastContentType != "text/csv" {
		t.Errorf("content type = %q, want text/csv", uploader.lastContentType)
	}
	if !bytes.Contains(uploader.lastBody, []byte("Cancha 1")) {
		t.Error("uploaded body missing reservation data")
	}
}

func TestArchiveCSVWithoutUploader(t *testing.T) {
	svc := newTestReportService(reportFixtures(), nil, time.Now())

	_, err := svc.ArchiveCSV(context.Background())
	if !errors.Is(err, ErrStorageDisabled) {
		t.Errorf("err = %v, want ErrStorageDisabled", err)
	}
}
