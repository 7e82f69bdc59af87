package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/clinicdesk/clinic-server/cmd/api"
	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/db"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations(logger)
			return
		case "seed":
			runSeed(logger)
			return
		default:
			logger.Fatal("unknown command", zap.String("command", os.Args[1]))
		}
	}

	startServer(logger)
}

func openDatabase(logger *zap.Logger) *gorm.DB {
	database, err := db.NewPSQLStorage()
	if err != nil {
		logger.Fatal("database initialization error", zap.Error(err))
	}
	return database
}

func closeDatabase(database *gorm.DB, logger *zap.Logger) {
	sqlDB, err := database.DB()
	if err == nil {
		sqlDB.Close()
	}
	logger.Info("database connection closed")
}

func runMigrations(logger *zap.Logger) {
	database := openDatabase(logger)
	defer closeDatabase(database, logger)

	logger.Info("running migrations")
	if err := db.Migrate(database); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}
	logger.Info("migrations completed")
}

var seedSpecialties = []string{
	"Cardiology", "Dermatology", "Pediatrics", "Orthopedics", "Neurology",
}

var seedSlots = [][]string{
	{"09:00", "09:30", "10:00", "10:30", "11:00"},
	{"10:00", "11:00", "14:00", "15:00"},
	{"13:00", "13:30", "14:00", "16:00", "16:30"},
}

// runSeed fills an empty database with demo data: one admin, a handful of
// doctors with slot schedules, and a few patients. All seeded accounts use
// the password "password".
func runSeed(logger *zap.Logger) {
	database := openDatabase(logger)
	defer closeDatabase(database, logger)

	if err := db.Migrate(database); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal("password hash error", zap.Error(err))
	}

	admin := models.Admin{Username: "admin", PasswordHash: string(hash)}
	if err := database.FirstOrCreate(&admin, models.Admin{Username: "admin"}).Error; err != nil {
		logger.Fatal("admin seed error", zap.Error(err))
	}

	for i := 0; i < 10; i++ {
		doctor := models.Doctor{
			Name:           gofakeit.Name(),
			Email:          gofakeit.Email(),
			PasswordHash:   string(hash),
			Phone:          gofakeit.Phone(),
			Specialty:      seedSpecialties[i%len(seedSpecialties)],
			AvailableTimes: seedSlots[i%len(seedSlots)],
		}
		if err := database.Create(&doctor).Error; err != nil {
			logger.Warn("doctor seed skipped", zap.Error(err))
		}
	}

	for i := 0; i < 20; i++ {
		patient := models.Patient{
			Name:         gofakeit.Name(),
			Email:        gofakeit.Email(),
			PasswordHash: string(hash),
			Phone:        gofakeit.Phone(),
			Address:      gofakeit.Address().Address,
		}
		if err := database.Create(&patient).Error; err != nil {
			logger.Warn("patient seed skipped", zap.Error(err))
		}
	}

	logger.Info("seed completed")
}

func startServer(logger *zap.Logger) {
	database := openDatabase(logger)
	defer closeDatabase(database, logger)
	logger.Info("connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, database, logger)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")
}
