package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/token"
)

var (
	ErrInvalidCondition = errors.New(`condition must be "past" or "future"`)
	ErrUnauthorized     = errors.New("caller does not match requested patient")
)

type Store interface {
	PatientByID(ctx context.Context, id uint) (*models.Patient, error)
	PatientByEmail(ctx context.Context, email string) (*models.Patient, error)
	PatientByEmailOrPhone(ctx context.Context, email, phone string) (*models.Patient, error)
	SavePatient(ctx context.Context, patient *models.Patient) error

	AppointmentsForPatient(ctx context.Context, patientID uint) ([]models.Appointment, error)
	AppointmentsForPatientByStatus(ctx context.Context, patientID uint, status int) ([]models.Appointment, error)
	// AppointmentsForPatientByDoctorName matches the doctor name partially,
	// case-insensitive.
	AppointmentsForPatientByDoctorName(ctx context.Context, patientID uint, doctorName string) ([]models.Appointment, error)
	AppointmentsForPatientByDoctorNameAndStatus(ctx context.Context, patientID uint, doctorName string, status int) ([]models.Appointment, error)
}

// Service owns the patient-scoped read paths. Every query requires the
// caller's token to resolve to the patient being queried.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ParseCondition maps the history condition to a stored status value:
// "past" selects completed appointments, "future" scheduled ones.
func ParseCondition(condition string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "past":
		return models.StatusCompleted, nil
	case "future":
		return models.StatusScheduled, nil
	}
	return 0, ErrInvalidCondition
}

// Resolve returns the patient the claims refer to.
func (s *Service) Resolve(ctx context.Context, claims *token.Claims) (*models.Patient, error) {
	if claims == nil || claims.Role != token.RolePatient {
		return nil, ErrUnauthorized
	}
	patient, err := s.store.PatientByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve caller: %w", err)
	}
	return patient, nil
}

// Appointments lists a patient's appointments, optionally narrowed by
// condition ("past"/"future") and/or a partial doctor name. The caller must
// be the patient being queried.
func (s *Service) Appointments(ctx context.Context, claims *token.Claims, patientID uint, condition, doctorName string) ([]models.AppointmentView, error) {
	caller, err := s.Resolve(ctx, claims)
	if err != nil {
		return nil, err
	}
	if caller.ID != patientID {
		return nil, ErrUnauthorized
	}

	hasCondition := strings.TrimSpace(condition) != ""
	doctorName = strings.TrimSpace(doctorName)

	var (
		appts  []models.Appointment
		status int
	)
	if hasCondition {
		if status, err = ParseCondition(condition); err != nil {
			return nil, err
		}
	}

	switch {
	case hasCondition && doctorName != "":
		appts, err = s.store.AppointmentsForPatientByDoctorNameAndStatus(ctx, patientID, doctorName, status)
	case hasCondition:
		appts, err = s.store.AppointmentsForPatientByStatus(ctx, patientID, status)
	case doctorName != "":
		appts, err = s.store.AppointmentsForPatientByDoctorName(ctx, patientID, doctorName)
	default:
		appts, err = s.store.AppointmentsForPatient(ctx, patientID)
	}
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	views := make([]models.AppointmentView, 0, len(appts))
	for i := range appts {
		views = append(views, appts[i].View())
	}
	return views, nil
}
