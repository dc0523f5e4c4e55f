package call

import (
	"go.uber.org/zap"

	"telehealth-backend/internal/domain"
	apperrors "telehealth-backend/pkg/errors"
	"telehealth-backend/pkg/logger"
	"telehealth-backend/pkg/metrics"
)

// CallRepository is the backing store for call sessions
type CallRepository interface {
	Start(consultationID int64) (call domain.Call, created bool)
	End(callID string) (call domain.Call, found bool)
	Get(callID string) domain.Call
}

// Notifier pushes events to connected clients
type Notifier interface {
	Broadcast(event string, data interface{})
}

// Service handles call session lifecycle
type Service struct {
	calls    CallRepository
	notifier Notifier
	metrics  *metrics.Metrics
}

// NewService creates a new call service
func NewService(calls CallRepository, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{
		calls:    calls,
		notifier: notifier,
		metrics:  m,
	}
}

// Start opens (or resumes) the call session for a consultation
func (s *Service) Start(consultationID int64) (*domain.Call, error) {
	if consultationID == 0 {
		return nil, apperrors.MissingFieldError("consultationId")
	}

	call, created := s.calls.Start(consultationID)
	if created && s.metrics != nil {
		s.metrics.CallStarted()
	}

	return &call, nil
}

// End terminates a call and broadcasts callEnded to every connected client.
// Clients match the carried callId against the call they are locally
// tracking and ignore the event otherwise. Ending is idempotent, and an
// unknown id is still acknowledged (the broadcast goes out regardless so a
// client tracking that id can tear down its session).
func (s *Service) End(callID string) {
	wasEnded := s.calls.Get(callID).Ended

	call, found := s.calls.End(callID)
	if !found {
		logger.Debug("Call end requested for unknown call", zap.String("call_id", callID))
		s.notifier.Broadcast(domain.EventCallEnded, map[string]interface{}{
			"callId": callID,
		})
		return
	}

	if !wasEnded && s.metrics != nil {
		s.metrics.CallEnded()
	}

	s.notifier.Broadcast(domain.EventCallEnded, map[string]interface{}{
		"callId":         call.CallID,
		"consultationId": call.ConsultationID,
	})
}

// Status returns a call status snapshot; absence maps to a default
// not-ended status
func (s *Service) Status(callID string) domain.Call {
	return s.calls.Get(callID)
}
