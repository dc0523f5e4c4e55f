package domain

import (
	"time"

	"telehealth-backend/pkg/prescription"
)

// Consultation represents a patient's request for a doctor's attention.
// Identifiers are strictly increasing and double as a sort/tie-break key.
type Consultation struct {
	ID           int64                  `json:"id"`
	PatientEmail string                 `json:"patientEmail"`
	DoctorEmail  string                 `json:"doctorEmail"`
	Status       string                 `json:"status"` // pending, accepted, rejected
	PatientInfo  map[string]interface{} `json:"patientInfo,omitempty"`

	RequestedDate time.Time  `json:"requestedDate"`
	AcceptedDate  *time.Time `json:"acceptedDate,omitempty"`
	RejectedDate  *time.Time `json:"rejectedDate,omitempty"`

	Prescription          string                    `json:"prescription,omitempty"`
	PrescriptionUpdatedAt *time.Time                `json:"prescriptionUpdatedAt,omitempty"`
	MedicationSchedule    []prescription.Medication `json:"medicationSchedule,omitempty"`
}

// IsParty reports whether the given user participates in this consultation
func (c *Consultation) IsParty(email string) bool {
	return c.PatientEmail == email || c.DoctorEmail == email
}

// Counterparty returns the other participant of the consultation, or ""
// when the given email is not a party at all
func (c *Consultation) Counterparty(email string) string {
	switch email {
	case c.PatientEmail:
		return c.DoctorEmail
	case c.DoctorEmail:
		return c.PatientEmail
	default:
		return ""
	}
}
