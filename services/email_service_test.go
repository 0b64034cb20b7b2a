package services

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/playnow/reservas-api/config"
)

func newTestEmailService(t *testing.T) *EmailService {
	t.Helper()
	svc, err := NewEmailService(&config.Config{
		PublicURL: "https://reservas.example.com",
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		SMTPFrom:  "noreply@example.com",
	})
	if err != nil {
		t.Fatalf("NewEmailService returned error: %v", err)
	}
	return svc
}

func TestBuildReservationEmailInitial(t *testing.T) {
	svc := newTestEmailService(t)

	subject, htmlBody, textBody, err := svc.BuildReservationEmail(ReservationEmail{
		To:            "luis@example.com",
		ReservationID: 42,
		Court:         "Cancha 1",
		Date:          time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Slot:          "18:00",
		Action:        EmailActionInitial,
	})
	if err != nil {
		t.Fatalf("BuildReservationEmail returned error: %v", err)
	}

	if subject != "Reserva Creada - Confirma tu asistencia - Cancha 1" {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{
		"Reserva CREADA",
		"domingo, 1 de junio de 2025",
		"18:00",
		"https://reservas.example.com/reservas/42/confirm",
		"https://reservas.example.com/reservas/42/cancel",
		"ID: 42",
	} {
		if !strings.Contains(htmlBody, want) {
			t.Errorf("html body missing %q", want)
		}
	}
	if !strings.Contains(textBody, "Cancha 1") {
		t.Errorf("text body = %q", textBody)
	}
}

func TestBuildReservationEmailConfirmationHasNoButtons(t *testing.T) {
	svc := newTestEmailService(t)

	subject, htmlBody, _, err := svc.BuildReservationEmail(ReservationEmail{
		ReservationID: 7,
		Court:         "Cancha 2",
		Date:          time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Slot:          "10:00",
		Action:        EmailActionConfirmation,
	})
	if err != nil {
		t.Fatalf("BuildReservationEmail returned error: %v", err)
	}

	if subject != "Confirmación de Reserva - Cancha 2" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(htmlBody, "Reserva CONFIRMADA") {
		t.Error("html body missing confirmed verb")
	}
	if strings.Contains(htmlBody, "/reservas/7/confirm") {
		t.Error("confirmation email must not carry action buttons")
	}
}

func TestBuildReservationEmailReminderHasButtons(t *testing.T) {
	svc := newTestEmailService(t)

	subject, htmlBody, _, err := svc.BuildReservationEmail(ReservationEmail{
		ReservationID: 9,
		Court:         "Cancha 3",
		Date:          time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		Slot:          "20:00",
		Action:        EmailActionReminder,
	})
	if err != nil {
		t.Fatalf("BuildReservationEmail returned error: %v", err)
	}

	if subject != "Recordatorio de Reserva - Cancha 3" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(htmlBody, "/reservas/9/confirm") || !strings.Contains(htmlBody, "/reservas/9/cancel") {
		t.Error("reminder email must carry confirm/cancel buttons")
	}
}

func TestComposeMessageCarriesBothParts(t *testing.T) {
	svc := newTestEmailService(t)

	raw, err := svc.composeMessage("luis@example.com", "Recordatorio de Reserva - Cancha 1",
		"<p>Reserva PENDIENTE</p>", "Reserva para Cancha 1 el lunes.")
	if err != nil {
		t.Fatalf("composeMessage returned error: %v", err)
	}

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to parse message: %v", err)
	}
	if got := parsed.Header.Get("To"); got != "luis@example.com" {
		t.Errorf("To = %q", got)
	}

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("failed to parse Content-Type: %v", err)
	}
	if mediaType != "multipart/alternative" {
		t.Fatalf("media type = %q, want multipart/alternative", mediaType)
	}

	var partTypes, bodies []string
	mr := multipart.NewReader(parsed.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read part: %v", err)
		}
		body, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("failed to read part body: %v", err)
		}
		partTypes = append(partTypes, part.Header.Get("Content-Type"))
		bodies = append(bodies, string(body))
	}

	if len(partTypes) != 2 {
		t.Fatalf("got %d parts, want text and html", len(partTypes))
	}
	if !strings.HasPrefix(partTypes[0], "text/plain") || !strings.Contains(bodies[0], "el lunes") {
		t.Errorf("first part = %q %q, want the plain-text body", partTypes[0], bodies[0])
	}
	if !strings.HasPrefix(partTypes[1], "text/html") || !strings.Contains(bodies[1], "PENDIENTE") {
		t.Errorf("second part = %q %q, want the html body", partTypes[1], bodies[1])
	}
}

func TestFormatSpanishDate(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "domingo, 1 de junio de 2025"},
		{time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), "jueves, 25 de diciembre de 2025"},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "jueves, 1 de enero de 2026"},
	}
	for _, tt := range tests {
		if got := FormatSpanishDate(tt.date); got != tt.want {
			t.Errorf("FormatSpanishDate(%v) = %q, want %q", tt.date, got, tt.want)
		}
	}
}
