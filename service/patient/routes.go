package patient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/cmd/utils"
	"github.com/clinicdesk/clinic-server/service/token"
)

type Handler struct {
	service   *Service
	store     Store
	authority *token.Authority
	logger    *zap.Logger
}

func NewHandler(service *Service, store Store, authority *token.Authority, logger *zap.Logger) *Handler {
	return &Handler{service: service, store: store, authority: authority, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	asPatient := utils.RequireRole(h.authority, token.RolePatient)

	router.HandleFunc("/patients", h.Signup).Methods("POST")
	router.HandleFunc("/patients/login", h.Login).Methods("POST")
	router.Handle("/patients/me", asPatient(http.HandlerFunc(h.GetDetails))).Methods("GET")
	router.Handle("/patients/{id}/appointments", asPatient(http.HandlerFunc(h.GetAppointments))).Methods("GET")
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Phone == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	// Uniqueness covers both email and phone.
	if _, err := h.store.PatientByEmailOrPhone(r.Context(), req.Email, req.Phone); err == nil {
		http.Error(w, "Patient with email id or phone no already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		h.logger.Error("patient lookup failed", zap.Error(err))
		http.Error(w, "Error creating patient", http.StatusInternalServerError)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	patient := models.Patient{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		Phone:        req.Phone,
		Address:      req.Address,
	}

	if err := h.store.SavePatient(r.Context(), &patient); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			http.Error(w, "Patient with email id or phone no already exists", http.StatusConflict)
			return
		}
		h.logger.Error("patient create failed", zap.Error(err))
		http.Error(w, "Error creating patient", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "Patient registered successfully",
		"patient_id": patient.ID,
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

	patient, err := h.store.PatientByEmail(r.Context(), loginRequest.Email)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(patient.PasswordHash), []byte(loginRequest.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authority.Issue(patient.Email, token.RolePatient)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "Login successful",
		"token":      accessToken,
		"patient_id": patient.ID,
	})
}

// GetDetails returns the profile of the patient the token belongs to.
func (h *Handler) GetDetails(w http.ResponseWriter, r *http.Request) {
	claims, err := utils.CallerFromContext(r)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	patient, err := h.service.Resolve(r.Context(), claims)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		h.logger.Error("patient lookup failed", zap.Error(err))
		http.Error(w, "Error retrieving patient", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"patient": patient,
	})
}

// GetAppointments lists the patient's own appointments, optionally filtered
// by ?condition=past|future and/or a partial ?doctor= name.
func (h *Handler) GetAppointments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}

	claims, err := utils.CallerFromContext(r)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	views, err := h.service.Appointments(r.Context(), claims, uint(patientID),
		r.URL.Query().Get("condition"), r.URL.Query().Get("doctor"))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		case errors.Is(err, ErrInvalidCondition):
			http.Error(w, "Invalid condition. Use past or future", http.StatusBadRequest)
		default:
			h.logger.Error("appointment query failed", zap.Error(err))
			http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"appointments": views,
	})
}
