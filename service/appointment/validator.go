package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/availability"
)

var (
	ErrInvalidDoctor   = errors.New("invalid doctor reference")
	ErrInvalidPatient  = errors.New("invalid patient reference")
	ErrMissingTime     = errors.New("appointment time is required")
	ErrSlotUnavailable = errors.New("requested slot is not available")
)

// validate runs the existence-only checks: doctor and patient must resolve
// and the timestamp must be present. Slot occupancy is checked separately
// because the update path deliberately skips it (a record re-saved at its
// own slot would always collide with itself).
func (s *Service) validate(ctx context.Context, appt *models.Appointment) (*models.Doctor, *models.Patient, error) {
	if appt.DoctorID == 0 {
		return nil, nil, ErrInvalidDoctor
	}
	doctor, err := s.doctors.DoctorByID(ctx, appt.DoctorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, ErrInvalidDoctor
		}
		return nil, nil, fmt.Errorf("load doctor: %w", err)
	}

	if appt.PatientID == 0 {
		return nil, nil, ErrInvalidPatient
	}
	patient, err := s.patients.PatientByID(ctx, appt.PatientID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, ErrInvalidPatient
		}
		return nil, nil, fmt.Errorf("load patient: %w", err)
	}

	if appt.AppointmentTime.IsZero() {
		return nil, nil, ErrMissingTime
	}

	return doctor, patient, nil
}

// checkSlot verifies the candidate time against the doctor's open slots for
// that day. The candidate's HH:MM label must prefix-match an open slot label,
// which tolerates configured labels carrying a trailing AM/PM marker.
func (s *Service) checkSlot(ctx context.Context, appt *models.Appointment) error {
	open, err := s.slots.OpenSlots(ctx, appt.DoctorID, appt.AppointmentTime)
	if err != nil {
		return err
	}

	requested := availability.Label(appt.AppointmentTime)
	for _, slot := range open {
		if strings.HasPrefix(strings.TrimSpace(slot), requested) {
			return nil
		}
	}
	return ErrSlotUnavailable
}
