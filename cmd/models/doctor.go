package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Doctor carries the standing daily schedule as an ordered list of slot
// labels ("09:00", "09:30", ...). The same labels apply to every calendar
// day; booked slots are subtracted per day by the availability engine.
type Doctor struct {
	gorm.Model
	Name           string         `gorm:"column:name;size:255;not null" json:"name"`
	Email          string         `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash   string         `gorm:"column:password_hash;size:255;not null" json:"-"`
	Phone          string         `gorm:"column:phone;size:20" json:"phone"`
	Specialty      string         `gorm:"column:specialty;size:100;not null" json:"specialty"`
	AvailableTimes pq.StringArray `gorm:"column:available_times;type:text[]" json:"available_times"`
}

func (Doctor) TableName() string {
	return "doctors"
}
