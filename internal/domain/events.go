package domain

// Event names exchanged over the WebSocket channel. The wire format is a
// JSON envelope {"event": <name>, "data": <payload>}.

// Client-originated events
const (
	EventUserOnline           = "userOnline"
	EventRefreshConsultations = "refreshConsultations"
	EventPrescriptionUpdate   = "prescriptionUpdate"
	EventWebRTCOffer          = "webrtcOffer"
	EventWebRTCAnswer         = "webrtcAnswer"
	EventICECandidate         = "iceCandidate"
)

// Server-originated events
const (
	EventDoctorOnline             = "doctorOnline"
	EventDoctorOffline            = "doctorOffline"
	EventNewConsultationRequest   = "newConsultationRequest"
	EventConsultationStatusUpdate = "consultationStatusUpdate"
	EventConsultationsUpdated     = "consultationsUpdated"
	EventCallStarted              = "callStarted"
	EventCallEnded                = "callEnded"
	EventPrescriptionUpdated      = "prescriptionUpdated"
)
