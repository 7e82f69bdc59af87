package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/cmd/utils"
	"github.com/clinicdesk/clinic-server/service/availability"
	"github.com/clinicdesk/clinic-server/service/token"
)

type Store interface {
	AllDoctors(ctx context.Context) ([]models.Doctor, error)
	// SearchDoctors filters by partial name (case-insensitive) and exact
	// specialty (case-insensitive). Empty arguments mean no constraint.
	SearchDoctors(ctx context.Context, name, specialty string) ([]models.Doctor, error)
	DoctorByID(ctx context.Context, id uint) (*models.Doctor, error)
	DoctorByEmail(ctx context.Context, email string) (*models.Doctor, error)
	SaveDoctor(ctx context.Context, doctor *models.Doctor) error
	DeleteDoctor(ctx context.Context, id uint) error
}

type AppointmentStore interface {
	DeleteAppointmentsForDoctor(ctx context.Context, doctorID uint) error
}

type Handler struct {
	store        Store
	appointments AppointmentStore
	slots        *availability.Engine
	authority    *token.Authority
	logger       *zap.Logger
}

func NewHandler(store Store, appointments AppointmentStore, slots *availability.Engine, authority *token.Authority, logger *zap.Logger) *Handler {
	return &Handler{
		store:        store,
		appointments: appointments,
		slots:        slots,
		authority:    authority,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	asAdmin := utils.RequireRole(h.authority, token.RoleAdmin)
	authed := utils.RequireAuth(h.authority)

	// The doctor directory is public; availability requires any valid token.
	router.HandleFunc("/doctors", h.FilterDoctors).Methods("GET")
	router.Handle("/doctors/{id}/availability", authed(http.HandlerFunc(h.GetAvailability))).Methods("GET")
	router.HandleFunc("/doctors/login", h.Login).Methods("POST")

	router.Handle("/doctors", asAdmin(http.HandlerFunc(h.CreateDoctor))).Methods("POST")
	router.Handle("/doctors/{id}", asAdmin(http.HandlerFunc(h.UpdateDoctor))).Methods("PUT")
	router.Handle("/doctors/{id}", asAdmin(http.HandlerFunc(h.DeleteDoctor))).Methods("DELETE")
}

// FilterDoctors resolves the combinatorial ?name=&specialty=&time= filter.
// Name and specialty are pushed down to the store; the AM/PM partition is
// applied in memory afterwards because it is not a simple predicate over a
// column. Zero filters returns the whole directory.
func (h *Handler) FilterDoctors(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	specialty := r.URL.Query().Get("specialty")
	half := r.URL.Query().Get("time")

	var (
		doctors []models.Doctor
		err     error
	)
	if name == "" && specialty == "" {
		doctors, err = h.store.AllDoctors(r.Context())
	} else {
		doctors, err = h.store.SearchDoctors(r.Context(), name, specialty)
	}
	if err != nil {
		h.logger.Error("doctor search failed", zap.Error(err))
		http.Error(w, "Error retrieving doctors", http.StatusInternalServerError)
		return
	}

	doctors = availability.FilterDoctorsByHalf(doctors, half)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"doctors": doctors,
	})
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	open, err := h.slots.OpenSlots(r.Context(), uint(doctorID), day)
	if err != nil {
		if errors.Is(err, availability.ErrDoctorNotFound) {
			http.Error(w, "Doctor not found", http.StatusNotFound)
			return
		}
		h.logger.Error("availability lookup failed", zap.Error(err))
		http.Error(w, "Error retrieving availability", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"availability": open,
	})
}

type doctorRequest struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	Phone          string   `json:"phone"`
	Specialty      string   `json:"specialty"`
	AvailableTimes []string `json:"available_times"`
}

func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var req doctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Specialty == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	if _, err := h.store.DoctorByEmail(r.Context(), req.Email); err == nil {
		http.Error(w, "Doctor already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		h.logger.Error("doctor lookup failed", zap.Error(err))
		http.Error(w, "Error creating doctor", http.StatusInternalServerError)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	doctor := models.Doctor{
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   string(passwordHash),
		Phone:          req.Phone,
		Specialty:      req.Specialty,
		AvailableTimes: req.AvailableTimes,
	}

	if err := h.store.SaveDoctor(r.Context(), &doctor); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			http.Error(w, "Doctor already exists", http.StatusConflict)
			return
		}
		h.logger.Error("doctor create failed", zap.Error(err))
		http.Error(w, "Error creating doctor", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Doctor created successfully",
		"doctor_id": doctor.ID,
	})
}

func (h *Handler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	var req doctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doctor, err := h.store.DoctorByID(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Doctor not found", http.StatusNotFound)
			return
		}
		h.logger.Error("doctor lookup failed", zap.Error(err))
		http.Error(w, "Error updating doctor", http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		doctor.Name = req.Name
	}
	if req.Phone != "" {
		doctor.Phone = req.Phone
	}
	if req.Specialty != "" {
		doctor.Specialty = req.Specialty
	}
	if req.AvailableTimes != nil {
		doctor.AvailableTimes = req.AvailableTimes
	}
	if req.Password != "" {
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Error hashing password", http.StatusInternalServerError)
			return
		}
		doctor.PasswordHash = string(passwordHash)
	}

	if err := h.store.SaveDoctor(r.Context(), doctor); err != nil {
		h.logger.Error("doctor update failed", zap.Error(err))
		http.Error(w, "Error updating doctor", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Doctor updated successfully",
	})
}

// DeleteDoctor removes a doctor and every appointment tied to them.
func (h *Handler) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	if _, err := h.store.DoctorByID(r.Context(), uint(id)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Doctor not found", http.StatusNotFound)
			return
		}
		h.logger.Error("doctor lookup failed", zap.Error(err))
		http.Error(w, "Error deleting doctor", http.StatusInternalServerError)
		return
	}

	if err := h.appointments.DeleteAppointmentsForDoctor(r.Context(), uint(id)); err != nil {
		h.logger.Error("appointment cleanup failed", zap.Error(err))
		http.Error(w, "Error deleting doctor", http.StatusInternalServerError)
		return
	}
	if err := h.store.DeleteDoctor(r.Context(), uint(id)); err != nil {
		h.logger.Error("doctor delete failed", zap.Error(err))
		http.Error(w, "Error deleting doctor", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Doctor deleted successfully",
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if loginRequest.Email == "" || loginRequest.Password == "" {
		http.Error(w, "Missing credentials", http.StatusBadRequest)
		return
	}

	doctor, err := h.store.DoctorByEmail(r.Context(), loginRequest.Email)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(doctor.PasswordHash), []byte(loginRequest.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authority.Issue(doctor.Email, token.RoleDoctor)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Login successful",
		"token":     accessToken,
		"doctor_id": doctor.ID,
	})
}
