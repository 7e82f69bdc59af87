package models

import (
	"time"

	"gorm.io/gorm"
)

// Appointment status partitions a patient's history into future and past
// views. There is no richer state machine.
const (
	StatusScheduled = 0
	StatusCompleted = 1
)

// The composite unique index on (doctor_id, appointment_time) is what makes
// booking safe under concurrency: two requests that both saw a slot as open
// cannot both commit. The availability check stays as a fast pre-check only.
type Appointment struct {
	gorm.Model
	DoctorID        uint      `gorm:"column:doctor_id;not null;uniqueIndex:idx_doctor_slot" json:"doctor_id"`
	PatientID       uint      `gorm:"column:patient_id;not null" json:"patient_id"`
	AppointmentTime time.Time `gorm:"column:appointment_time;not null;uniqueIndex:idx_doctor_slot" json:"appointment_time"`
	Status          int       `gorm:"column:status;not null;default:0" json:"status"`

	Doctor  *Doctor  `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Patient *Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// AppointmentView is the read projection handed out on list endpoints.
// It flattens doctor and patient fields and carries no credentials.
type AppointmentView struct {
	ID              uint      `json:"id"`
	DoctorID        uint      `json:"doctor_id"`
	DoctorName      string    `json:"doctor_name"`
	PatientID       uint      `json:"patient_id"`
	PatientName     string    `json:"patient_name"`
	PatientEmail    string    `json:"patient_email"`
	PatientPhone    string    `json:"patient_phone"`
	PatientAddress  string    `json:"patient_address"`
	AppointmentTime time.Time `json:"appointment_time"`
	Status          int       `json:"status"`
}

func (a *Appointment) View() AppointmentView {
	v := AppointmentView{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		AppointmentTime: a.AppointmentTime,
		Status:          a.Status,
	}
	if a.Doctor != nil {
		v.DoctorName = a.Doctor.Name
	}
	if a.Patient != nil {
		v.PatientName = a.Patient.Name
		v.PatientEmail = a.Patient.Email
		v.PatientPhone = a.Patient.Phone
		v.PatientAddress = a.Patient.Address
	}
	return v
}
