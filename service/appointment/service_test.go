package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/availability"
	"github.com/clinicdesk/clinic-server/service/token"
)

type fakeStore struct {
	nextID uint
	appts  map[uint]*models.Appointment
	// hidden appointments collide on save but are invisible to day queries,
	// imitating a concurrent commit the availability pre-check did not see.
	hidden map[uint]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, appts: map[uint]*models.Appointment{}, hidden: map[uint]bool{}}
}

func (f *fakeStore) AppointmentByID(_ context.Context, id uint) (*models.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) SaveAppointment(_ context.Context, appt *models.Appointment) error {
	for _, existing := range f.appts {
		if existing.ID != appt.ID && existing.DoctorID == appt.DoctorID && existing.AppointmentTime.Equal(appt.AppointmentTime) {
			return models.ErrDuplicate
		}
	}
	if appt.ID == 0 {
		appt.ID = f.nextID
		f.nextID++
	}
	cp := *appt
	f.appts[appt.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteAppointment(_ context.Context, id uint) error {
	delete(f.appts, id)
	return nil
}

func (f *fakeStore) AppointmentsForDoctorOnDay(_ context.Context, doctorID uint, start, end time.Time, patientName string) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appts {
		if f.hidden[a.ID] || a.DoctorID != doctorID || a.AppointmentTime.Before(start) || !a.AppointmentTime.Before(end) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

// AppointmentsForDoctorBetween lets the fake double as the availability
// engine's appointment source.
func (f *fakeStore) AppointmentsForDoctorBetween(ctx context.Context, doctorID uint, start, end time.Time) ([]models.Appointment, error) {
	return f.AppointmentsForDoctorOnDay(ctx, doctorID, start, end, "")
}

type fakeDoctors struct {
	doctors map[uint]*models.Doctor
}

func (f *fakeDoctors) DoctorByID(_ context.Context, id uint) (*models.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return d, nil
}

func (f *fakeDoctors) DoctorByEmail(_ context.Context, email string) (*models.Doctor, error) {
	for _, d := range f.doctors {
		if d.Email == email {
			return d, nil
		}
	}
	return nil, models.ErrNotFound
}

type fakePatients struct {
	patients map[uint]*models.Patient
}

func (f *fakePatients) PatientByID(_ context.Context, id uint) (*models.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (f *fakePatients) PatientByEmail(_ context.Context, email string) (*models.Patient, error) {
	for _, p := range f.patients {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, models.ErrNotFound
}

func testService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()

	doctor := &models.Doctor{
		Name:           "Dr. Adams",
		Email:          "adams@clinic.test",
		Specialty:      "Cardiology",
		AvailableTimes: []string{"09:00", "09:30", "10:00"},
	}
	doctor.ID = 1

	patient := &models.Patient{Name: "Jane Doe", Email: "jane@example.com", Phone: "555-0100"}
	patient.ID = 7
	other := &models.Patient{Name: "Bob Ray", Email: "bob@example.com", Phone: "555-0101"}
	other.ID = 8

	store := newFakeStore()
	doctors := &fakeDoctors{doctors: map[uint]*models.Doctor{1: doctor}}
	patients := &fakePatients{patients: map[uint]*models.Patient{7: patient, 8: other}}
	engine := availability.NewEngine(doctors, store)

	return NewService(store, doctors, patients, engine, nil, zap.NewNop()), store
}

func patientClaims(email string) *token.Claims {
	return &token.Claims{
		Role:             token.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{Subject: email},
	}
}

func doctorClaims(email string) *token.Claims {
	return &token.Claims{
		Role:             token.RoleDoctor,
		RegisteredClaims: jwt.RegisteredClaims{Subject: email},
	}
}

func slotTime(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestBookOpenSlot(t *testing.T) {
	svc, store := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	require.NoError(t, svc.Book(context.Background(), appt))
	assert.NotZero(t, appt.ID)
	assert.Equal(t, models.StatusScheduled, appt.Status)
	assert.Len(t, store.appts, 1)
}

func TestBookTakenSlot(t *testing.T) {
	svc, _ := testService(t)

	first := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 30)}
	require.NoError(t, svc.Book(context.Background(), first))

	second := &models.Appointment{DoctorID: 1, PatientID: 8, AppointmentTime: slotTime(9, 30)}
	err := svc.Book(context.Background(), second)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookUnconfiguredSlotIsConflictNotBadRequest(t *testing.T) {
	svc, _ := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(13, 0)}
	err := svc.Book(context.Background(), appt)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookUnknownDoctor(t *testing.T) {
	svc, _ := testService(t)

	appt := &models.Appointment{DoctorID: 99, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	err := svc.Book(context.Background(), appt)
	assert.ErrorIs(t, err, ErrInvalidDoctor)
}

func TestBookUnknownPatient(t *testing.T) {
	svc, _ := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 99, AppointmentTime: slotTime(9, 0)}
	err := svc.Book(context.Background(), appt)
	assert.ErrorIs(t, err, ErrInvalidPatient)
}

func TestBookMissingTime(t *testing.T) {
	svc, _ := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7}
	err := svc.Book(context.Background(), appt)
	assert.ErrorIs(t, err, ErrMissingTime)
}

func TestBookRaceLosesOnDuplicateKey(t *testing.T) {
	svc, store := testService(t)

	// A competing request committed between the availability pre-check and
	// the save. The pre-check does not see it; the unique index does.
	committed := &models.Appointment{DoctorID: 1, PatientID: 8, AppointmentTime: slotTime(10, 0)}
	committed.ID = 50
	require.NoError(t, store.SaveAppointment(context.Background(), committed))
	store.hidden[50] = true

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(10, 0)}
	err := svc.Book(context.Background(), appt)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Len(t, store.appts, 1)
}

func TestUpdateKeepsOwnSlot(t *testing.T) {
	svc, store := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	require.NoError(t, svc.Book(context.Background(), appt))

	// Re-save at the same, now fully booked, slot: no occupancy re-check.
	updated := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 0), Status: models.StatusCompleted}
	updated.ID = appt.ID
	require.NoError(t, svc.Update(context.Background(), updated))
	assert.Equal(t, models.StatusCompleted, store.appts[appt.ID].Status)
}

func TestUpdateUnknownAppointment(t *testing.T) {
	svc, _ := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	appt.ID = 1234
	err := svc.Update(context.Background(), appt)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRevalidatesReferences(t *testing.T) {
	svc, _ := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	require.NoError(t, svc.Book(context.Background(), appt))

	bad := &models.Appointment{DoctorID: 99, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	bad.ID = appt.ID
	err := svc.Update(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidDoctor)
}

func TestCancelByOwner(t *testing.T) {
	svc, store := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	require.NoError(t, svc.Book(context.Background(), appt))

	require.NoError(t, svc.Cancel(context.Background(), appt.ID, patientClaims("jane@example.com")))
	assert.Empty(t, store.appts)
}

func TestCancelByOtherPatient(t *testing.T) {
	svc, store := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	require.NoError(t, svc.Book(context.Background(), appt))

	err := svc.Cancel(context.Background(), appt.ID, patientClaims("bob@example.com"))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Len(t, store.appts, 1)
}

func TestCancelUnknownAppointment(t *testing.T) {
	svc, _ := testService(t)

	err := svc.Cancel(context.Background(), 999, patientClaims("jane@example.com"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelWrongRole(t *testing.T) {
	svc, _ := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	require.NoError(t, svc.Book(context.Background(), appt))

	err := svc.Cancel(context.Background(), appt.ID, doctorClaims("adams@clinic.test"))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFreedSlotReopens(t *testing.T) {
	svc, _ := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 30)}
	require.NoError(t, svc.Book(context.Background(), appt))
	require.NoError(t, svc.Cancel(context.Background(), appt.ID, patientClaims("jane@example.com")))

	again := &models.Appointment{DoctorID: 1, PatientID: 8, AppointmentTime: slotTime(9, 30)}
	assert.NoError(t, svc.Book(context.Background(), again))
}

func TestListForDoctor(t *testing.T) {
	svc, store := testService(t)

	appt := &models.Appointment{DoctorID: 1, PatientID: 7, AppointmentTime: slotTime(9, 0)}
	require.NoError(t, svc.Book(context.Background(), appt))
	stored := store.appts[appt.ID]
	stored.Doctor = &models.Doctor{Name: "Dr. Adams"}
	stored.Patient = &models.Patient{Name: "Jane Doe", Email: "jane@example.com", Phone: "555-0100", Address: "12 Elm St"}

	views, err := svc.ListForDoctor(context.Background(), doctorClaims("adams@clinic.test"), slotTime(0, 0), "")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Dr. Adams", views[0].DoctorName)
	assert.Equal(t, "Jane Doe", views[0].PatientName)
	assert.Equal(t, "jane@example.com", views[0].PatientEmail)
}

func TestListForDoctorRequiresDoctorRole(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.ListForDoctor(context.Background(), patientClaims("jane@example.com"), slotTime(0, 0), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
