package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-backend/pkg/constants"
	"telehealth-backend/pkg/prescription"
)

func TestConsultation_CreateAssignsIncreasingIDs(t *testing.T) {
	repo := NewConsultationRepository()

	var lastID int64
	for i := 0; i < 50; i++ {
		c := repo.Create("pat@example.com", "doc@example.com", nil)
		assert.Greater(t, c.ID, lastID)
		lastID = c.ID
	}

	assert.Equal(t, 50, repo.Len())
}

func TestConsultation_CreateDefaults(t *testing.T) {
	repo := NewConsultationRepository()

	c := repo.Create("pat@example.com", "doc@example.com", map[string]interface{}{"name": "Pat"})

	assert.Equal(t, constants.ConsultationPending, c.Status)
	assert.Equal(t, "pat@example.com", c.PatientEmail)
	assert.Equal(t, "doc@example.com", c.DoctorEmail)
	assert.False(t, c.RequestedDate.IsZero())
	assert.Nil(t, c.AcceptedDate)
	assert.Nil(t, c.RejectedDate)
}

func TestConsultation_ListForFiltersByRole(t *testing.T) {
	repo := NewConsultationRepository()

	a := repo.Create("pat1@example.com", "doc1@example.com", nil)
	b := repo.Create("pat2@example.com", "doc1@example.com", nil)
	c := repo.Create("pat1@example.com", "doc2@example.com", nil)

	doctor := repo.ListFor("doc1@example.com", constants.RoleDoctor)
	require.Len(t, doctor, 2)
	// Insertion order, oldest first
	assert.Equal(t, a.ID, doctor[0].ID)
	assert.Equal(t, b.ID, doctor[1].ID)

	patient := repo.ListFor("pat1@example.com", constants.RolePatient)
	require.Len(t, patient, 2)
	assert.Equal(t, a.ID, patient[0].ID)
	assert.Equal(t, c.ID, patient[1].ID)

	// Unknown role falls back to the unfiltered collection
	all := repo.ListFor("whoever", "Admin")
	assert.Len(t, all, 3)
}

func TestConsultation_UpdateStatusStampsOnce(t *testing.T) {
	repo := NewConsultationRepository()
	created := repo.Create("pat@example.com", "doc@example.com", nil)

	updated, err := repo.UpdateStatus(created.ID, constants.ConsultationAccepted)
	require.NoError(t, err)
	assert.Equal(t, constants.ConsultationAccepted, updated.Status)
	require.NotNil(t, updated.AcceptedDate)
	assert.Nil(t, updated.RejectedDate)

	firstStamp := *updated.AcceptedDate

	// Repeating the transition must not rewrite the timestamp
	again, err := repo.UpdateStatus(created.ID, constants.ConsultationAccepted)
	require.NoError(t, err)
	require.NotNil(t, again.AcceptedDate)
	assert.Equal(t, firstStamp, *again.AcceptedDate)
}

func TestConsultation_UpdateStatusRejected(t *testing.T) {
	repo := NewConsultationRepository()
	created := repo.Create("pat@example.com", "doc@example.com", nil)

	updated, err := repo.UpdateStatus(created.ID, constants.ConsultationRejected)
	require.NoError(t, err)
	assert.Equal(t, constants.ConsultationRejected, updated.Status)
	assert.NotNil(t, updated.RejectedDate)
	assert.Nil(t, updated.AcceptedDate)
}

func TestConsultation_UpdateStatusNotFound(t *testing.T) {
	repo := NewConsultationRepository()
	repo.Create("pat@example.com", "doc@example.com", nil)

	before := repo.ListFor("", "")

	_, err := repo.UpdateStatus(999, constants.ConsultationAccepted)
	assert.ErrorIs(t, err, ErrNotFound)

	// Store unmodified: same size, same contents
	after := repo.ListFor("", "")
	assert.Equal(t, before, after)
}

// TestConsultation_SnapshotsDoNotAliasStore checks callers cannot reach the
// stored record through the maps and slices they pass in or get back
func TestConsultation_SnapshotsDoNotAliasStore(t *testing.T) {
	repo := NewConsultationRepository()

	info := map[string]interface{}{"name": "Pat"}
	created := repo.Create("pat@example.com", "doc@example.com", info)

	// Mutating the input map after creation must not touch the store
	info["name"] = "tampered"
	stored, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pat", stored.PatientInfo["name"])

	// Mutating a returned snapshot must not touch the store either
	stored.PatientInfo["name"] = "also tampered"
	again, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pat", again.PatientInfo["name"])

	listed := repo.ListFor("pat@example.com", "Patient")
	require.Len(t, listed, 1)
	listed[0].PatientInfo["name"] = "listed tamper"
	final, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pat", final.PatientInfo["name"])
}

func TestConsultation_SetPrescription(t *testing.T) {
	repo := NewConsultationRepository()
	created := repo.Create("pat@example.com", "doc@example.com", nil)

	schedule := []prescription.Medication{{Name: "Cetirizine", Dosage: "10mg", Frequency: "once daily"}}
	updated, err := repo.SetPrescription(created.ID, "Cetirizine 10mg once daily", schedule)
	require.NoError(t, err)
	assert.Equal(t, "Cetirizine 10mg once daily", updated.Prescription)
	assert.NotNil(t, updated.PrescriptionUpdatedAt)
	assert.Equal(t, schedule, updated.MedicationSchedule)

	_, err = repo.SetPrescription(12345, "x", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
