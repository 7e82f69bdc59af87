package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/availability"
	"github.com/clinicdesk/clinic-server/service/token"
)

var (
	ErrNotFound     = errors.New("appointment not found")
	ErrUnauthorized = errors.New("caller does not own this appointment")
	ErrSlotTaken    = errors.New("slot already booked")
)

type Store interface {
	// AppointmentByID resolves an appointment with doctor and patient attached.
	AppointmentByID(ctx context.Context, id uint) (*models.Appointment, error)
	// SaveAppointment persists a new or updated appointment. A collision on
	// the (doctor_id, appointment_time) unique index surfaces as
	// models.ErrDuplicate.
	SaveAppointment(ctx context.Context, appt *models.Appointment) error
	DeleteAppointment(ctx context.Context, id uint) error
	// AppointmentsForDoctorOnDay lists a doctor's appointments in [start, end),
	// optionally narrowed by a case-insensitive partial patient-name match.
	AppointmentsForDoctorOnDay(ctx context.Context, doctorID uint, start, end time.Time, patientName string) ([]models.Appointment, error)
}

type DoctorStore interface {
	DoctorByID(ctx context.Context, id uint) (*models.Doctor, error)
	DoctorByEmail(ctx context.Context, email string) (*models.Doctor, error)
}

type PatientStore interface {
	PatientByID(ctx context.Context, id uint) (*models.Patient, error)
	PatientByEmail(ctx context.Context, email string) (*models.Patient, error)
}

// Notifier is told about successful bookings. Delivery is best effort and
// never blocks or fails the booking itself.
type Notifier interface {
	BookingConfirmed(patient *models.Patient, doctor *models.Doctor, when time.Time)
}

// Service orchestrates the appointment lifecycle: booking against open
// slots, updates, ownership-checked cancellation, and the doctor's day list.
type Service struct {
	appointments Store
	doctors      DoctorStore
	patients     PatientStore
	slots        *availability.Engine
	notifier     Notifier
	logger       *zap.Logger
}

func NewService(appointments Store, doctors DoctorStore, patients PatientStore, slots *availability.Engine, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		slots:        slots,
		notifier:     notifier,
		logger:       logger,
	}
}

// Book validates and persists a new appointment. The slot check is only a
// fast pre-check; the unique index on (doctor_id, appointment_time) is what
// decides a race between two requests for the same slot.
func (s *Service) Book(ctx context.Context, appt *models.Appointment) error {
	doctor, patient, err := s.validate(ctx, appt)
	if err != nil {
		return err
	}
	if err := s.checkSlot(ctx, appt); err != nil {
		return err
	}

	appt.Status = models.StatusScheduled
	if err := s.appointments.SaveAppointment(ctx, appt); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return ErrSlotTaken
		}
		return fmt.Errorf("save appointment: %w", err)
	}

	s.logger.Info("appointment booked",
		zap.Uint("appointment_id", appt.ID),
		zap.Uint("doctor_id", appt.DoctorID),
		zap.Uint("patient_id", appt.PatientID),
		zap.Time("appointment_time", appt.AppointmentTime))

	if s.notifier != nil {
		go s.notifier.BookingConfirmed(patient, doctor, appt.AppointmentTime)
	}
	return nil
}

// Update re-saves an existing appointment after existence-only validation.
// The slot-occupancy check is skipped: a record legitimately re-saved at its
// already-occupied time would collide with itself.
func (s *Service) Update(ctx context.Context, appt *models.Appointment) error {
	if _, err := s.appointments.AppointmentByID(ctx, appt.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load appointment: %w", err)
	}

	if _, _, err := s.validate(ctx, appt); err != nil {
		return err
	}

	if err := s.appointments.SaveAppointment(ctx, appt); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return ErrSlotTaken
		}
		return fmt.Errorf("save appointment: %w", err)
	}
	return nil
}

// Cancel deletes an appointment after confirming the caller is the patient
// who owns it.
func (s *Service) Cancel(ctx context.Context, id uint, claims *token.Claims) error {
	appt, err := s.appointments.AppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load appointment: %w", err)
	}

	if claims == nil || claims.Role != token.RolePatient {
		return ErrUnauthorized
	}
	patient, err := s.patients.PatientByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("resolve caller: %w", err)
	}
	if appt.PatientID != patient.ID {
		return ErrUnauthorized
	}

	if err := s.appointments.DeleteAppointment(ctx, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}

	s.logger.Info("appointment cancelled",
		zap.Uint("appointment_id", id),
		zap.Uint("patient_id", patient.ID))
	return nil
}

// ListForDoctor returns the calling doctor's appointments for a day,
// optionally filtered by partial patient name, projected to views that
// carry no credential fields.
func (s *Service) ListForDoctor(ctx context.Context, claims *token.Claims, day time.Time, patientName string) ([]models.AppointmentView, error) {
	if claims == nil || claims.Role != token.RoleDoctor {
		return nil, ErrUnauthorized
	}
	doctor, err := s.doctors.DoctorByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve caller: %w", err)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	appts, err := s.appointments.AppointmentsForDoctorOnDay(ctx, doctor.ID, start, end, patientName)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	views := make([]models.AppointmentView, 0, len(appts))
	for i := range appts {
		views = append(views, appts[i].View())
	}
	return views, nil
}
