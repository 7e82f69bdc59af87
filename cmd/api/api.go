package api

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clinicdesk/clinic-server/cmd/utils"
	"github.com/clinicdesk/clinic-server/db"
	"github.com/clinicdesk/clinic-server/service/admin"
	"github.com/clinicdesk/clinic-server/service/appointment"
	"github.com/clinicdesk/clinic-server/service/availability"
	"github.com/clinicdesk/clinic-server/service/doctor"
	"github.com/clinicdesk/clinic-server/service/notify"
	"github.com/clinicdesk/clinic-server/service/patient"
	"github.com/clinicdesk/clinic-server/service/prescription"
	"github.com/clinicdesk/clinic-server/service/token"
)

type APIServer struct {
	address string
	db      *gorm.DB
	logger  *zap.Logger
}

func NewApiServer(address string, database *gorm.DB, logger *zap.Logger) *APIServer {
	return &APIServer{
		address: address,
		db:      database,
		logger:  logger,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	store := db.NewStore(s.db)
	authority := token.NewAuthority([]byte(os.Getenv("SECRET_KEY")), store)
	engine := availability.NewEngine(store, store)
	mailer := notify.NewMailerFromEnv(s.logger)

	appointmentService := appointment.NewService(store, store, store, engine, mailer, s.logger)
	appointmentHandler := appointment.NewHandler(appointmentService, authority, s.logger)
	appointmentHandler.RegisterRoutes(subrouter)

	doctorHandler := doctor.NewHandler(store, store, engine, authority, s.logger)
	doctorHandler.RegisterRoutes(subrouter)

	patientService := patient.NewService(store)
	patientHandler := patient.NewHandler(patientService, store, authority, s.logger)
	patientHandler.RegisterRoutes(subrouter)

	prescriptionHandler := prescription.NewHandler(store, store, authority, s.logger)
	prescriptionHandler.RegisterRoutes(subrouter)

	adminHandler := admin.NewHandler(store, authority, s.logger)
	adminHandler.RegisterRoutes(subrouter)

	router.Use(utils.RequestID)
	router.Use(utils.RequestLogger(s.logger))

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
	)
	chain := handlers.RecoveryHandler()(cors(router))

	s.logger.Info("server listening", zap.String("address", s.address))
	return http.ListenAndServe(s.address, chain)
}
