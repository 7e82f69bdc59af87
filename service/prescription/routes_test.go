package prescription

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-server/cmd/models"
)

type fakeStore struct {
	prescriptions map[uint]models.Prescription
}

func (f *fakeStore) PrescriptionByAppointment(_ context.Context, appointmentID uint) (*models.Prescription, error) {
	p, ok := f.prescriptions[appointmentID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) SavePrescription(_ context.Context, prescription *models.Prescription) error {
	if _, ok := f.prescriptions[prescription.AppointmentID]; ok {
		return models.ErrDuplicate
	}
	prescription.ID = uint(len(f.prescriptions) + 1)
	f.prescriptions[prescription.AppointmentID] = *prescription
	return nil
}

type fakeAppointments struct {
	appointments map[uint]models.Appointment
}

func (f *fakeAppointments) AppointmentByID(_ context.Context, id uint) (*models.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func testHandler() *Handler {
	jane := &models.Patient{Name: "Jane"}
	jane.ID = 7
	appt := models.Appointment{DoctorID: 1, PatientID: 7, Patient: jane}
	appt.ID = 42

	return NewHandler(
		&fakeStore{prescriptions: map[uint]models.Prescription{}},
		&fakeAppointments{appointments: map[uint]models.Appointment{42: appt}},
		nil,
		zap.NewNop(),
	)
}

func TestCreatePrescription(t *testing.T) {
	h := testHandler()

	body := []byte(`{"appointment_id":42,"medication":"Amoxicillin","dosage":"500mg twice daily"}`)
	req := httptest.NewRequest("POST", "/prescriptions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreatePrescription(rec, req)

	require.Equal(t, 201, rec.Code)

	saved, err := h.store.PrescriptionByAppointment(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin", saved.Medication)
	assert.Equal(t, "Jane", saved.PatientName)
}

func TestCreatePrescriptionDuplicate(t *testing.T) {
	h := testHandler()
	body := `{"appointment_id":42,"medication":"Amoxicillin"}`

	req := httptest.NewRequest("POST", "/prescriptions", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	h.CreatePrescription(rec, req)
	require.Equal(t, 201, rec.Code)

	req = httptest.NewRequest("POST", "/prescriptions", bytes.NewReader([]byte(body)))
	rec = httptest.NewRecorder()
	h.CreatePrescription(rec, req)
	assert.Equal(t, 409, rec.Code)
}

func TestCreatePrescriptionUnknownAppointment(t *testing.T) {
	h := testHandler()

	body := []byte(`{"appointment_id":999,"medication":"Amoxicillin"}`)
	req := httptest.NewRequest("POST", "/prescriptions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreatePrescription(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestCreatePrescriptionMissingFields(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest("POST", "/prescriptions", bytes.NewReader([]byte(`{"appointment_id":42}`)))
	rec := httptest.NewRecorder()
	h.CreatePrescription(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestGetPrescription(t *testing.T) {
	h := testHandler()

	body := []byte(`{"appointment_id":42,"medication":"Amoxicillin"}`)
	req := httptest.NewRequest("POST", "/prescriptions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreatePrescription(rec, req)
	require.Equal(t, 201, rec.Code)

	req = httptest.NewRequest("GET", "/prescriptions/42", nil)
	req = mux.SetURLVars(req, map[string]string{"appointmentId": "42"})
	rec = httptest.NewRecorder()
	h.GetPrescription(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Amoxicillin")
}

func TestGetPrescriptionNotFound(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest("GET", "/prescriptions/42", nil)
	req = mux.SetURLVars(req, map[string]string{"appointmentId": "42"})
	rec := httptest.NewRecorder()
	h.GetPrescription(rec, req)

	assert.Equal(t, 404, rec.Code)
}
