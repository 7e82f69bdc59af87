package appointment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/cmd/utils"
	"github.com/clinicdesk/clinic-server/service/availability"
	"github.com/clinicdesk/clinic-server/service/token"
)

type Handler struct {
	service   *Service
	authority *token.Authority
	logger    *zap.Logger
}

func NewHandler(service *Service, authority *token.Authority, logger *zap.Logger) *Handler {
	return &Handler{service: service, authority: authority, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	asPatient := utils.RequireRole(h.authority, token.RolePatient)
	asDoctor := utils.RequireRole(h.authority, token.RoleDoctor)

	router.Handle("/appointments", asPatient(http.HandlerFunc(h.BookAppointment))).Methods("POST")
	router.Handle("/appointments/{id}", asPatient(http.HandlerFunc(h.UpdateAppointment))).Methods("PUT")
	router.Handle("/appointments/{id}", asPatient(http.HandlerFunc(h.CancelAppointment))).Methods("DELETE")
	router.Handle("/appointments", asDoctor(http.HandlerFunc(h.GetDoctorDay))).Methods("GET")
}

type appointmentRequest struct {
	DoctorID        uint      `json:"doctor_id"`
	PatientID       uint      `json:"patient_id"`
	AppointmentTime time.Time `json:"appointment_time"`
	Status          int       `json:"status"`
}

func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	appt := models.Appointment{
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		AppointmentTime: req.AppointmentTime,
	}

	if err := h.service.Book(r.Context(), &appt); err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":        "Appointment booked successfully",
		"appointment_id": appt.ID,
	})
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	appt := models.Appointment{
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		AppointmentTime: req.AppointmentTime,
		Status:          req.Status,
	}
	appt.ID = uint(id)

	if err := h.service.Update(r.Context(), &appt); err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Appointment updated successfully",
	})
}

func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	claims, err := utils.CallerFromContext(r)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	if err := h.service.Cancel(r.Context(), uint(id), claims); err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Appointment cancelled successfully",
	})
}

// GetDoctorDay lists the calling doctor's appointments for ?date=YYYY-MM-DD,
// optionally filtered by ?patient_name=.
func (h *Handler) GetDoctorDay(w http.ResponseWriter, r *http.Request) {
	claims, err := utils.CallerFromContext(r)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	dateStr := r.URL.Query().Get("date")
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	views, err := h.service.ListForDoctor(r.Context(), claims, day, r.URL.Query().Get("patient_name"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"appointments": views,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "Appointment not found", http.StatusNotFound)
	case errors.Is(err, availability.ErrDoctorNotFound):
		http.Error(w, "Doctor not found", http.StatusNotFound)
	case errors.Is(err, ErrUnauthorized):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrInvalidDoctor):
		http.Error(w, "Invalid doctor", http.StatusBadRequest)
	case errors.Is(err, ErrInvalidPatient):
		http.Error(w, "Invalid patient", http.StatusBadRequest)
	case errors.Is(err, ErrMissingTime):
		http.Error(w, "Appointment time is required", http.StatusBadRequest)
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrSlotTaken):
		http.Error(w, "Selected time slot is unavailable", http.StatusConflict)
	default:
		h.logger.Error("appointment request failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
