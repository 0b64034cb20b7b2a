package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/playnow/reservas-api/config"
)

// EmailAction selects the template used for a reservation notification.
type EmailAction string

const (
	EmailActionInitial      EmailAction = "initial"
	EmailActionConfirmation EmailAction = "confirmation"
	EmailActionCancellation EmailAction = "cancellation"
	EmailActionReminder     EmailAction = "reminder"
)

// ReservationEmail holds everything needed to render and address one
// reservation notification.
type ReservationEmail struct {
	To            string
	ReservationID int
	Court         string
	Date          time.Time
	Slot          string
	Action        EmailAction
}

// ReservationMailer provides a testable abstraction over email delivery.
// Callers must treat delivery as best-effort: log failures, never propagate.
type ReservationMailer interface {
	SendReservationEmail(ctx context.Context, msg ReservationEmail) error
}

type emailTemplate struct {
	subject     string
	verb        string
	color       string
	showButtons bool
}

// Шаблоны писем по типу действия.
var reservationTemplates = map[EmailAction]emailTemplate{
	EmailActionInitial: {
		subject:     "Reserva Creada - Confirma tu asistencia",
		verb:        "creada",
		color:       "#FFA500",
		showButtons: true,
	},
	EmailActionConfirmation: {
		subject: "Confirmación de Reserva",
		verb:    "confirmada",
		color:   "#4CAF50",
	},
	EmailActionCancellation: {
		subject: "Cancelación de Reserva",
		verb:    "cancelada",
		color:   "#f44336",
	},
	EmailActionReminder: {
		subject:     "Recordatorio de Reserva",
		verb:        "pendiente",
		color:       "#2196F3",
		showButtons: true,
	},
}

//go:embed templates/reservation_email.html
var emailTemplatesFS embed.FS

type EmailService struct {
	cfg  *config.Config
	tmpl *template.Template
}

func NewEmailService(cfg *config.Config) (*EmailService, error) {
	tmpl, err := template.ParseFS(emailTemplatesFS, "templates/reservation_email.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse reservation email template: %w", err)
	}
	return &EmailService{cfg: cfg, tmpl: tmpl}, nil
}

// SendReservationEmail renders the template for msg.Action and delivers it.
func (s *EmailService) SendReservationEmail(ctx context.Context, msg ReservationEmail) error {
	subject, htmlBody, textBody, err := s.BuildReservationEmail(msg)
	if err != nil {
		return err
	}
	return s.send(ctx, []string{msg.To}, subject, htmlBody, textBody)
}

// BuildReservationEmail renders the subject, HTML body and plain-text body
// for a reservation notification. Split out from delivery for testing.
func (s *EmailService) BuildReservationEmail(msg ReservationEmail) (subject, htmlBody, textBody string, err error) {
	tpl, ok := reservationTemplates[msg.Action]
	if !ok {
		tpl = reservationTemplates[EmailActionInitial]
	}

	formattedDate := FormatSpanishDate(msg.Date)

	data := struct {
		Color         string
		Verb          string
		Court         string
		Date          string
		Slot          string
		ShowButtons   bool
		ConfirmLink   string
		CancelLink    string
		ReservationID int
	}{
		Color:         tpl.color,
		Verb:          strings.ToUpper(tpl.verb),
		Court:         msg.Court,
		Date:          formattedDate,
		Slot:          msg.Slot,
		ShowButtons:   tpl.showButtons,
		ConfirmLink:   fmt.Sprintf("%s/reservas/%d/confirm", s.cfg.PublicURL, msg.ReservationID),
		CancelLink:    fmt.Sprintf("%s/reservas/%d/cancel", s.cfg.PublicURL, msg.ReservationID),
		ReservationID: msg.ReservationID,
	}

	var body bytes.Buffer
	if err := s.tmpl.Execute(&body, data); err != nil {
		return "", "", "", fmt.Errorf("failed to execute email template: %w", err)
	}

	subject = fmt.Sprintf("%s - %s", tpl.subject, msg.Court)
	textBody = fmt.Sprintf("Reserva para %s el %s a las %s (%s).",
		msg.Court, formattedDate, msg.Slot, tpl.verb)
	return subject, body.String(), textBody, nil
}

// composeMessage assembles the multipart/alternative wire message: clients
// without HTML rendering fall back to the plain-text part.
func (s *EmailService) composeMessage(to, subject, htmlBody, textBody string) ([]byte, error) {
	var msg bytes.Buffer
	alt := multipart.NewWriter(&msg)

	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: PlayNow Reservas <%s>\r\n", s.cfg.SMTPFrom)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", alt.Boundary())

	textPart, err := alt.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/plain; charset="UTF-8"`},
	})
	if err != nil {
		return nil, fmt.Errorf("text part: %w", err)
	}
	if _, err := textPart.Write([]byte(textBody)); err != nil {
		return nil, fmt.Errorf("text part: %w", err)
	}

	htmlPart, err := alt.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/html; charset="UTF-8"`},
	})
	if err != nil {
		return nil, fmt.Errorf("html part: %w", err)
	}
	if _, err := htmlPart.Write([]byte(htmlBody)); err != nil {
		return nil, fmt.Errorf("html part: %w", err)
	}

	if err := alt.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}
	return msg.Bytes(), nil
}

func (s *EmailService) send(ctx context.Context, to []string, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg, err := s.composeMessage(to[0], subject, htmlBody, textBody)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение (обычно порт 465)
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		// STARTTLS (обычно порт 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("smtp rcpt to: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return nil
}

var spanishWeekdays = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatSpanishDate renders a date the way the clients display it,
// e.g. "domingo, 1 de junio de 2025".
func FormatSpanishDate(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s, %d de %s de %d",
		spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()-1], t.Year())
}
