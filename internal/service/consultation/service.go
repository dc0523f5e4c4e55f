package consultation

import (
	"errors"

	"go.uber.org/zap"

	"telehealth-backend/internal/domain"
	"telehealth-backend/internal/repository/memory"
	"telehealth-backend/pkg/constants"
	apperrors "telehealth-backend/pkg/errors"
	"telehealth-backend/pkg/logger"
	"telehealth-backend/pkg/metrics"
	"telehealth-backend/pkg/prescription"
)

// ConsultationRepository is the backing store for consultation requests
type ConsultationRepository interface {
	Create(patientEmail, doctorEmail string, patientInfo map[string]interface{}) domain.Consultation
	ListFor(email, role string) []domain.Consultation
	Get(id int64) (domain.Consultation, error)
	UpdateStatus(id int64, status string) (domain.Consultation, error)
	SetPrescription(id int64, text string, schedule []prescription.Medication) (domain.Consultation, error)
}

// CallRegistry is the subset of the call store needed when a consultation
// is accepted
type CallRegistry interface {
	Start(consultationID int64) (call domain.Call, created bool)
	SetPrescription(callID, text string) (domain.Call, bool)
}

// Notifier pushes events to connected clients. Sends to offline recipients
// are silently dropped (SendToUser reports delivery for logging only —
// missed notifications are never queued or retried).
type Notifier interface {
	SendToUser(email, event string, data interface{}) bool
	Broadcast(event string, data interface{})
}

// Service handles consultation lifecycle and the pushes it triggers
type Service struct {
	consultations ConsultationRepository
	calls         CallRegistry
	notifier      Notifier
	metrics       *metrics.Metrics
}

// NewService creates a new consultation service
func NewService(consultations ConsultationRepository, calls CallRegistry, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{
		consultations: consultations,
		calls:         calls,
		notifier:      notifier,
		metrics:       m,
	}
}

// CreateInput contains consultation creation data
type CreateInput struct {
	PatientEmail string
	DoctorEmail  string
	PatientInfo  map[string]interface{}
}

// Create stores a new pending consultation and notifies the target doctor
// if currently connected. An offline doctor receives nothing — they see the
// request on their next list query.
func (s *Service) Create(input *CreateInput) (*domain.Consultation, error) {
	if input.PatientEmail == "" {
		return nil, apperrors.MissingFieldError("patientEmail")
	}
	if input.DoctorEmail == "" {
		return nil, apperrors.MissingFieldError("doctorEmail")
	}

	c := s.consultations.Create(input.PatientEmail, input.DoctorEmail, input.PatientInfo)

	if s.metrics != nil {
		s.metrics.RecordConsultation(c.Status)
	}

	if !s.notifier.SendToUser(c.DoctorEmail, domain.EventNewConsultationRequest, c) {
		logger.Debug("Doctor offline, consultation request not pushed",
			zap.String("doctor", c.DoctorEmail),
			zap.Int64("consultation_id", c.ID))
	}

	return &c, nil
}

// List returns the consultations visible to the given identity
func (s *Service) List(email, role string) []domain.Consultation {
	return s.consultations.ListFor(email, role)
}

// UpdateStatus transitions a consultation to accepted or rejected and pushes
// the outcome to the patient if connected. Accepting also opens the call
// session immediately and pushes callStarted to both parties.
func (s *Service) UpdateStatus(id int64, status string) (*domain.Consultation, error) {
	if status != constants.ConsultationAccepted && status != constants.ConsultationRejected {
		return nil, apperrors.ValidationError("status must be accepted or rejected")
	}

	c, err := s.consultations.UpdateStatus(id, status)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return nil, apperrors.ConsultationNotFoundError()
		}
		return nil, apperrors.InternalError(err.Error())
	}

	if s.metrics != nil {
		s.metrics.RecordConsultation(status)
	}

	switch status {
	case constants.ConsultationAccepted:
		call, created := s.calls.Start(c.ID)
		if created && s.metrics != nil {
			s.metrics.CallStarted()
		}

		started := map[string]interface{}{
			"callId":         call.CallID,
			"consultationId": c.ID,
			"consultation":   c,
		}

		s.notifier.SendToUser(c.PatientEmail, domain.EventConsultationStatusUpdate, c)
		if !s.notifier.SendToUser(c.PatientEmail, domain.EventCallStarted, started) {
			logger.Warn("Patient offline for accepted consultation",
				zap.String("patient", c.PatientEmail),
				zap.Int64("consultation_id", c.ID))
		}
		s.notifier.SendToUser(c.DoctorEmail, domain.EventCallStarted, started)

	case constants.ConsultationRejected:
		s.notifier.SendToUser(c.PatientEmail, domain.EventConsultationStatusUpdate, c)
	}

	return &c, nil
}

// UpdatePrescription stores live prescription text on both the active call
// and the consultation, derives the medication schedule from it, and
// broadcasts the update so both parties' views converge.
func (s *Service) UpdatePrescription(callID string, consultationID int64, text string) error {
	if len(text) > constants.MaxPrescriptionLength {
		return apperrors.ValidationError("prescription text too long")
	}

	if callID != "" {
		s.calls.SetPrescription(callID, text)
	}

	schedule := prescription.Parse(text)
	c, err := s.consultations.SetPrescription(consultationID, text, schedule)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return apperrors.ConsultationNotFoundError()
		}
		return apperrors.InternalError(err.Error())
	}

	s.notifier.Broadcast(domain.EventPrescriptionUpdated, map[string]interface{}{
		"callId":         callID,
		"consultationId": c.ID,
		"prescription":   text,
	})

	return nil
}
