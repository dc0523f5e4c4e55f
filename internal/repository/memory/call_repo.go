package memory

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"telehealth-backend/internal/domain"
)

// CallRepository tracks call sessions keyed by call identifier. Identifiers
// are derived from the consultation id and a millisecond timestamp made
// strictly increasing, so ending a call and starting the next one in the
// same millisecond still yields a fresh id.
type CallRepository struct {
	mu         sync.RWMutex
	calls      map[string]*domain.Call
	lastMillis int64
}

// NewCallRepository creates an empty call registry
func NewCallRepository() *CallRepository {
	return &CallRepository{
		calls: make(map[string]*domain.Call),
	}
}

// Start returns the active call for the consultation, creating one if none
// exists. An already-running call is reused rather than duplicated; created
// reports whether a new session was opened.
func (r *CallRepository) Start(consultationID int64) (call domain.Call, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.calls {
		if c.ConsultationID == consultationID && !c.Ended {
			return *c, false
		}
	}

	millis := time.Now().UnixMilli()
	if millis <= r.lastMillis {
		millis = r.lastMillis + 1
	}
	r.lastMillis = millis

	c := &domain.Call{
		CallID:         fmt.Sprintf("call_%d_%d", consultationID, millis),
		ConsultationID: consultationID,
		StartTime:      time.Now(),
		Ended:          false,
	}
	r.calls[c.CallID] = c

	return *c, true
}

// End marks the call ended and records the end time. Ending is idempotent:
// an already-ended call keeps its original end time, and an unknown id is a
// successful no-op (found=false). The id may also be a bare consultation id;
// the registry falls back to matching on it.
func (r *CallRepository) End(callID string) (call domain.Call, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.lookupLocked(callID)
	if c == nil {
		return domain.Call{}, false
	}

	if !c.Ended {
		now := time.Now()
		c.Ended = true
		c.EndTime = &now
	}

	return *c, true
}

// Get returns a status snapshot for the call. Absence maps to a default
// not-ended status, never an error.
func (r *CallRepository) Get(callID string) domain.Call {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c := r.lookupLocked(callID); c != nil {
		return *c
	}
	return domain.Call{Ended: false}
}

// SetPrescription attaches live prescription text to the call, if it exists
func (r *CallRepository) SetPrescription(callID, text string) (domain.Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.lookupLocked(callID)
	if c == nil {
		return domain.Call{}, false
	}

	now := time.Now()
	c.Prescription = text
	c.PrescriptionUpdatedAt = &now

	return *c, true
}

// ActiveForConsultation returns the non-ended call for a consultation, if any
func (r *CallRepository) ActiveForConsultation(consultationID int64) (domain.Call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, call := range r.calls {
		if call.ConsultationID == consultationID && !call.Ended {
			return *call, true
		}
	}
	return domain.Call{}, false
}

// lookupLocked resolves a call by exact id first, then by treating the id as
// a consultation reference (clients sometimes only know the consultation).
// Caller must hold at least the read lock.
func (r *CallRepository) lookupLocked(callID string) *domain.Call {
	if c, ok := r.calls[callID]; ok {
		return c
	}

	if consultationID, err := strconv.ParseInt(strings.TrimSpace(callID), 10, 64); err == nil {
		for _, c := range r.calls {
			if c.ConsultationID == consultationID {
				return c
			}
		}
	}

	return nil
}
