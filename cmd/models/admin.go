package models

import "gorm.io/gorm"

type Admin struct {
	gorm.Model
	Username     string `gorm:"column:username;size:100;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
}

func (Admin) TableName() string {
	return "admins"
}
