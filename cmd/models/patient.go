package models

import "gorm.io/gorm"

type Patient struct {
	gorm.Model
	Name         string `gorm:"column:name;size:255;not null" json:"name"`
	Email        string `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Phone        string `gorm:"column:phone;size:20;not null" json:"phone"`
	Address      string `gorm:"column:address;size:255" json:"address"`
}

func (Patient) TableName() string {
	return "patients"
}
