package memory

import (
	"errors"
	"sync"
	"time"

	"telehealth-backend/internal/domain"
	"telehealth-backend/pkg/constants"
	"telehealth-backend/pkg/prescription"
)

// ErrNotFound is returned when a referenced record does not exist
var ErrNotFound = errors.New("record not found")

// ConsultationRepository stores consultation requests in insertion order.
// Identifiers are millisecond timestamps made strictly increasing, so they
// double as a creation-order sort key.
type ConsultationRepository struct {
	mu     sync.RWMutex
	items  []*domain.Consultation
	byID   map[int64]*domain.Consultation
	lastID int64
}

// NewConsultationRepository creates an empty consultation store
func NewConsultationRepository() *ConsultationRepository {
	return &ConsultationRepository{
		byID: make(map[int64]*domain.Consultation),
	}
}

// Create stores a new pending consultation and returns a snapshot of it
func (r *ConsultationRepository) Create(patientEmail, doctorEmail string, patientInfo map[string]interface{}) domain.Consultation {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := time.Now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id

	c := &domain.Consultation{
		ID:            id,
		PatientEmail:  patientEmail,
		DoctorEmail:   doctorEmail,
		Status:        constants.ConsultationPending,
		PatientInfo:   copyMap(patientInfo),
		RequestedDate: time.Now(),
	}

	r.items = append(r.items, c)
	r.byID[id] = c

	return snapshot(c)
}

// ListFor returns consultations visible to the given identity, oldest first.
// Doctors see consultations addressed to them, patients see their own
// requests; any other role falls back to the unfiltered collection.
func (r *ConsultationRepository) ListFor(email, role string) []domain.Consultation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Consultation, 0, len(r.items))
	for _, c := range r.items {
		switch role {
		case constants.RoleDoctor:
			if c.DoctorEmail != email {
				continue
			}
		case constants.RolePatient:
			if c.PatientEmail != email {
				continue
			}
		}
		out = append(out, snapshot(c))
	}
	return out
}

// Get returns a snapshot of a single consultation
func (r *ConsultationRepository) Get(id int64) (domain.Consultation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return domain.Consultation{}, ErrNotFound
	}
	return snapshot(c), nil
}

// UpdateStatus sets the consultation status and stamps the matching
// transition timestamp. Timestamps are written at most once: repeating a
// transition never rewrites an already-set date. The source status is not
// validated (an already-terminal consultation may be transitioned again;
// no downstream side effect depends on it).
func (r *ConsultationRepository) UpdateStatus(id int64, status string) (domain.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return domain.Consultation{}, ErrNotFound
	}

	c.Status = status
	now := time.Now()
	switch status {
	case constants.ConsultationAccepted:
		if c.AcceptedDate == nil {
			c.AcceptedDate = &now
		}
	case constants.ConsultationRejected:
		if c.RejectedDate == nil {
			c.RejectedDate = &now
		}
	}

	return snapshot(c), nil
}

// SetPrescription attaches prescription text and its derived medication
// schedule to the consultation
func (r *ConsultationRepository) SetPrescription(id int64, text string, schedule []prescription.Medication) (domain.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return domain.Consultation{}, ErrNotFound
	}

	now := time.Now()
	c.Prescription = text
	c.PrescriptionUpdatedAt = &now
	c.MedicationSchedule = append([]prescription.Medication(nil), schedule...)

	return snapshot(c), nil
}

// Len returns the number of stored consultations
func (r *ConsultationRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// snapshot copies the record including its map and slice fields, so callers
// never share storage with the store
func snapshot(c *domain.Consultation) domain.Consultation {
	out := *c
	out.PatientInfo = copyMap(c.PatientInfo)
	out.MedicationSchedule = append([]prescription.Medication(nil), c.MedicationSchedule...)
	return out
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
