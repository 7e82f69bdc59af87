package models

import "gorm.io/gorm"

// At most one prescription exists per appointment.
type Prescription struct {
	gorm.Model
	PatientName   string `gorm:"column:patient_name;size:100;not null" json:"patient_name"`
	AppointmentID uint   `gorm:"column:appointment_id;uniqueIndex;not null" json:"appointment_id"`
	Medication    string `gorm:"column:medication;size:100;not null" json:"medication"`
	Dosage        string `gorm:"column:dosage;size:200" json:"dosage"`
	DoctorNotes   string `gorm:"column:doctor_notes;size:200" json:"doctor_notes"`
}

func (Prescription) TableName() string {
	return "prescriptions"
}
