package domain

import (
	"time"
)

// Call represents an ephemeral real-time media session tied to an accepted
// consultation. Ended is terminal: once set, EndTime never changes.
type Call struct {
	CallID         string     `json:"callId,omitempty"`
	ConsultationID int64      `json:"consultationId"`
	StartTime      time.Time  `json:"startTime"`
	Ended          bool       `json:"ended"`
	EndTime        *time.Time `json:"endTime,omitempty"`

	Prescription          string     `json:"prescription,omitempty"`
	PrescriptionUpdatedAt *time.Time `json:"prescriptionUpdatedAt,omitempty"`
}
