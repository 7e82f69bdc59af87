package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinicdesk/clinic-server/cmd/models"
)

var ErrDoctorNotFound = errors.New("doctor not found")

type DoctorSource interface {
	DoctorByID(ctx context.Context, id uint) (*models.Doctor, error)
}

type AppointmentSource interface {
	AppointmentsForDoctorBetween(ctx context.Context, doctorID uint, start, end time.Time) ([]models.Appointment, error)
}

// Engine computes a doctor's open slots for a day: the configured slot
// labels minus the labels already occupied by appointments on that day.
type Engine struct {
	doctors      DoctorSource
	appointments AppointmentSource
}

func NewEngine(doctors DoctorSource, appointments AppointmentSource) *Engine {
	return &Engine{doctors: doctors, appointments: appointments}
}

// OpenSlots returns the doctor's free slot labels for the given day, in the
// doctor's configured order. The day's bounds are [00:00, next day 00:00).
func (e *Engine) OpenSlots(ctx context.Context, doctorID uint, day time.Time) ([]string, error) {
	doctor, err := e.doctors.DoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	appts, err := e.appointments.AppointmentsForDoctorBetween(ctx, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	booked := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		booked[Label(a.AppointmentTime)] = struct{}{}
	}

	open := make([]string, 0, len(doctor.AvailableTimes))
	for _, slot := range doctor.AvailableTimes {
		if _, taken := booked[NormalizeLabel(slot)]; !taken {
			open = append(open, slot)
		}
	}
	return open, nil
}

// Label renders a time-of-day as the canonical zero-padded HH:MM form used
// by doctor slot configuration.
func Label(t time.Time) string {
	return t.Format("15:04")
}

// NormalizeLabel canonicalizes a configured slot label for comparison:
// whitespace trimmed and trailing seconds stripped ("09:00:00" -> "09:00").
// Booked-time labels and configured labels must be compared in this form or
// legitimately open slots get hidden.
func NormalizeLabel(slot string) string {
	s := strings.TrimSpace(slot)
	if len(s) == 8 && s[2] == ':' && s[5] == ':' {
		return s[:5]
	}
	return s
}

// MatchesHalf reports whether a slot label falls in the requested half of
// the day: AM iff hour < 12, PM otherwise. Labels that cannot be parsed as
// a time fall back to a case-insensitive substring check for the marker,
// which tolerates non-canonical labels like "9 AM".
func MatchesHalf(slot, amOrPm string) bool {
	half := strings.ToUpper(strings.TrimSpace(amOrPm))
	if half != "AM" && half != "PM" {
		return false
	}

	t, err := time.Parse("15:04", NormalizeLabel(slot))
	if err != nil {
		return strings.Contains(strings.ToUpper(slot), half)
	}
	if half == "AM" {
		return t.Hour() < 12
	}
	return t.Hour() >= 12
}

// FilterDoctorsByHalf keeps doctors with at least one configured slot in the
// requested half of the day. An empty half is no filter.
func FilterDoctorsByHalf(doctors []models.Doctor, amOrPm string) []models.Doctor {
	if strings.TrimSpace(amOrPm) == "" {
		return doctors
	}

	kept := make([]models.Doctor, 0, len(doctors))
	for _, d := range doctors {
		for _, slot := range d.AvailableTimes {
			if MatchesHalf(slot, amOrPm) {
				kept = append(kept, d)
				break
			}
		}
	}
	return kept
}
