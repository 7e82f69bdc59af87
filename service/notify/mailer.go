package notify

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/clinicdesk/clinic-server/cmd/models"
)

// Mailer sends booking confirmations over SMTP. A nil Mailer is valid and
// sends nothing, so callers can wire it unconditionally.
type Mailer struct {
	host   string
	port   int
	user   string
	pass   string
	logger *zap.Logger
}

// NewMailerFromEnv reads SMTP_HOST, SMTP_PORT, SMTP_USER and SMTP_PASS.
// Returns nil when SMTP_HOST is unset, which disables email entirely.
func NewMailerFromEnv(logger *zap.Logger) *Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		logger.Info("SMTP_HOST not set, booking emails disabled")
		return nil
	}

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		logger.Warn("invalid SMTP_PORT, booking emails disabled", zap.Error(err))
		return nil
	}

	return &Mailer{
		host:   host,
		port:   port,
		user:   os.Getenv("SMTP_USER"),
		pass:   os.Getenv("SMTP_PASS"),
		logger: logger,
	}
}

// BookingConfirmed emails the patient their appointment details. Failures
// are logged and swallowed; a booking never fails because of email.
func (m *Mailer) BookingConfirmed(patient *models.Patient, doctor *models.Doctor, when time.Time) {
	if m == nil {
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.user)
	msg.SetHeader("To", patient.Email)
	msg.SetHeader("Subject", "Appointment Confirmation")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Dear %s,\n\nYour appointment with Dr. %s on %s has been confirmed.\n\nClinic Desk",
		patient.Name, doctor.Name, when.Format("Monday, 02 Jan 2006 at 15:04"),
	))

	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	if err := d.DialAndSend(msg); err != nil {
		m.logger.Error("booking confirmation email failed",
			zap.String("to", patient.Email),
			zap.Error(err))
	}
}
