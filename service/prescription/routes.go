package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/cmd/utils"
	"github.com/clinicdesk/clinic-server/service/token"
)

type Store interface {
	PrescriptionByAppointment(ctx context.Context, appointmentID uint) (*models.Prescription, error)
	SavePrescription(ctx context.Context, prescription *models.Prescription) error
}

type AppointmentStore interface {
	AppointmentByID(ctx context.Context, id uint) (*models.Appointment, error)
}

type Handler struct {
	store        Store
	appointments AppointmentStore
	authority    *token.Authority
	logger       *zap.Logger
}

func NewHandler(store Store, appointments AppointmentStore, authority *token.Authority, logger *zap.Logger) *Handler {
	return &Handler{store: store, appointments: appointments, authority: authority, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	asDoctor := utils.RequireRole(h.authority, token.RoleDoctor)

	router.Handle("/prescriptions", asDoctor(http.HandlerFunc(h.CreatePrescription))).Methods("POST")
	router.Handle("/prescriptions/{appointmentId}", asDoctor(http.HandlerFunc(h.GetPrescription))).Methods("GET")
}

type prescriptionRequest struct {
	AppointmentID uint   `json:"appointment_id"`
	PatientName   string `json:"patient_name"`
	Medication    string `json:"medication"`
	Dosage        string `json:"dosage"`
	DoctorNotes   string `json:"doctor_notes"`
}

// CreatePrescription writes one prescription per appointment. A second
// write for the same appointment is rejected.
func (h *Handler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	var req prescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AppointmentID == 0 || req.Medication == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	appt, err := h.appointments.AppointmentByID(r.Context(), req.AppointmentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("appointment lookup failed", zap.Error(err))
		http.Error(w, "Error creating prescription", http.StatusInternalServerError)
		return
	}

	patientName := req.PatientName
	if patientName == "" && appt.Patient != nil {
		patientName = appt.Patient.Name
	}

	prescription := models.Prescription{
		PatientName:   patientName,
		AppointmentID: req.AppointmentID,
		Medication:    req.Medication,
		Dosage:        req.Dosage,
		DoctorNotes:   req.DoctorNotes,
	}

	if err := h.store.SavePrescription(r.Context(), &prescription); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			http.Error(w, "Prescription already exists for this appointment", http.StatusConflict)
			return
		}
		h.logger.Error("prescription create failed", zap.Error(err))
		http.Error(w, "Error creating prescription", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":         "Prescription created successfully",
		"prescription_id": prescription.ID,
	})
}

func (h *Handler) GetPrescription(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["appointmentId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	prescription, err := h.store.PrescriptionByAppointment(r.Context(), uint(appointmentID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Prescription not found", http.StatusNotFound)
			return
		}
		h.logger.Error("prescription lookup failed", zap.Error(err))
		http.Error(w, "Error retrieving prescription", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"prescription": prescription,
	})
}
