package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/token"
)

// Store is the single gorm-backed implementation behind every service
// package's store interface and the token subject directory.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// translate maps gorm errors to the sentinel errors services branch on.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "UNIQUE constraint") {
		return models.ErrDuplicate
	}
	return err
}

// SubjectExists resolves a token subject under its role: admins by username,
// doctors and patients by email.
func (s *Store) SubjectExists(ctx context.Context, role token.Role, subject string) (bool, error) {
	var (
		count int64
		query *gorm.DB
	)
	switch role {
	case token.RoleAdmin:
		query = s.db.WithContext(ctx).Model(&models.Admin{}).Where("username = ?", subject)
	case token.RoleDoctor:
		query = s.db.WithContext(ctx).Model(&models.Doctor{}).Where("email = ?", subject)
	case token.RolePatient:
		query = s.db.WithContext(ctx).Model(&models.Patient{}).Where("email = ?", subject)
	default:
		return false, nil
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) AdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (s *Store) AllDoctors(ctx context.Context) ([]models.Doctor, error) {
	var doctors []models.Doctor
	if err := s.db.WithContext(ctx).Order("name asc").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}

// SearchDoctors filters by partial name (case-insensitive) and exact
// specialty (case-insensitive). Empty arguments mean no constraint.
func (s *Store) SearchDoctors(ctx context.Context, name, specialty string) ([]models.Doctor, error) {
	query := s.db.WithContext(ctx).Model(&models.Doctor{})
	if name != "" {
		query = query.Where("name ILIKE ?", "%"+name+"%")
	}
	if specialty != "" {
		query = query.Where("LOWER(specialty) = LOWER(?)", specialty)
	}

	var doctors []models.Doctor
	if err := query.Order("name asc").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}

func (s *Store) DoctorByID(ctx context.Context, id uint) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.db.WithContext(ctx).First(&doctor, id).Error; err != nil {
		return nil, translate(err)
	}
	return &doctor, nil
}

func (s *Store) DoctorByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&doctor).Error; err != nil {
		return nil, translate(err)
	}
	return &doctor, nil
}

func (s *Store) SaveDoctor(ctx context.Context, doctor *models.Doctor) error {
	return translate(s.db.WithContext(ctx).Save(doctor).Error)
}

func (s *Store) DeleteDoctor(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Doctor{}, id).Error)
}

func (s *Store) PatientByID(ctx context.Context, id uint) (*models.Patient, error) {
	var patient models.Patient
	if err := s.db.WithContext(ctx).First(&patient, id).Error; err != nil {
		return nil, translate(err)
	}
	return &patient, nil
}

func (s *Store) PatientByEmail(ctx context.Context, email string) (*models.Patient, error) {
	var patient models.Patient
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&patient).Error; err != nil {
		return nil, translate(err)
	}
	return &patient, nil
}

func (s *Store) PatientByEmailOrPhone(ctx context.Context, email, phone string) (*models.Patient, error) {
	var patient models.Patient
	err := s.db.WithContext(ctx).
		Where("email = ? OR phone = ?", email, phone).
		First(&patient).Error
	if err != nil {
		return nil, translate(err)
	}
	return &patient, nil
}

func (s *Store) SavePatient(ctx context.Context, patient *models.Patient) error {
	return translate(s.db.WithContext(ctx).Save(patient).Error)
}

func (s *Store) AppointmentByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Doctor").
		Preload("Patient").
		First(&appt, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &appt, nil
}

func (s *Store) SaveAppointment(ctx context.Context, appt *models.Appointment) error {
	return translate(s.db.WithContext(ctx).Save(appt).Error)
}

func (s *Store) DeleteAppointment(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Appointment{}, id).Error)
}

func (s *Store) DeleteAppointmentsForDoctor(ctx context.Context, doctorID uint) error {
	return translate(s.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Delete(&models.Appointment{}).Error)
}

// AppointmentsForDoctorBetween feeds the availability engine: every
// appointment a doctor has in [start, end), status regardless.
func (s *Store) AppointmentsForDoctorBetween(ctx context.Context, doctorID uint, start, end time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND appointment_time >= ? AND appointment_time < ?", doctorID, start, end).
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (s *Store) AppointmentsForDoctorOnDay(ctx context.Context, doctorID uint, start, end time.Time, patientName string) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).
		Preload("Doctor").
		Preload("Patient").
		Where("doctor_id = ? AND appointment_time >= ? AND appointment_time < ?", doctorID, start, end)
	if patientName != "" {
		query = query.
			Joins("JOIN patients ON patients.id = appointments.patient_id").
			Where("patients.name ILIKE ?", "%"+patientName+"%")
	}

	var appts []models.Appointment
	if err := query.Order("appointment_time asc").Find(&appts).Error; err != nil {
		return nil, err
	}
	return appts, nil
}

func (s *Store) AppointmentsForPatient(ctx context.Context, patientID uint) ([]models.Appointment, error) {
	return s.patientAppointments(ctx, patientID, nil, "")
}

func (s *Store) AppointmentsForPatientByStatus(ctx context.Context, patientID uint, status int) ([]models.Appointment, error) {
	return s.patientAppointments(ctx, patientID, &status, "")
}

func (s *Store) AppointmentsForPatientByDoctorName(ctx context.Context, patientID uint, doctorName string) ([]models.Appointment, error) {
	return s.patientAppointments(ctx, patientID, nil, doctorName)
}

func (s *Store) AppointmentsForPatientByDoctorNameAndStatus(ctx context.Context, patientID uint, doctorName string, status int) ([]models.Appointment, error) {
	return s.patientAppointments(ctx, patientID, &status, doctorName)
}

func (s *Store) patientAppointments(ctx context.Context, patientID uint, status *int, doctorName string) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).
		Preload("Doctor").
		Preload("Patient").
		Where("appointments.patient_id = ?", patientID)
	if status != nil {
		query = query.Where("appointments.status = ?", *status)
	}
	if doctorName != "" {
		query = query.
			Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
			Where("doctors.name ILIKE ?", "%"+doctorName+"%")
	}

	var appts []models.Appointment
	if err := query.Order("appointment_time asc").Find(&appts).Error; err != nil {
		return nil, err
	}
	return appts, nil
}

func (s *Store) PrescriptionByAppointment(ctx context.Context, appointmentID uint) (*models.Prescription, error) {
	var prescription models.Prescription
	err := s.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		First(&prescription).Error
	if err != nil {
		return nil, translate(err)
	}
	return &prescription, nil
}

func (s *Store) SavePrescription(ctx context.Context, prescription *models.Prescription) error {
	return translate(s.db.WithContext(ctx).Save(prescription).Error)
}
