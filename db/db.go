package db

import (
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/clinicdesk/clinic-server/cmd/models"
)

// NewPSQLStorage opens the postgres connection named by DB_URL. A .env file
// is loaded when present but is not required.
func NewPSQLStorage() (*gorm.DB, error) {
	_ = godotenv.Load()

	connString := os.Getenv("DB_URL")

	db, err := gorm.Open(postgres.Open(connString), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)

	return db, nil
}

// Migrate creates or updates the schema for every model, including the
// composite unique index that backs slot collision detection.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Admin{},
		&models.Doctor{},
		&models.Patient{},
		&models.Appointment{},
		&models.Prescription{},
	)
}
