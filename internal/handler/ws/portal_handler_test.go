package ws

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-backend/internal/domain"
	"telehealth-backend/internal/repository/memory"
	userService "telehealth-backend/internal/service/user"
	"telehealth-backend/pkg/constants"
	"telehealth-backend/pkg/jwt"
	"telehealth-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	os.Exit(m.Run())
}

type hubFixture struct {
	hub           *PortalHub
	presence      *memory.PresenceRepository
	consultations *memory.ConsultationRepository
}

func newHubFixture() *hubFixture {
	presence := memory.NewPresenceRepository()
	users := memory.NewUserRepository()
	consultations := memory.NewConsultationRepository()
	directory := userService.NewService(users, presence, jwt.NewManager("test-secret-key-for-unit-tests", time.Hour))

	return &hubFixture{
		hub:           NewPortalHub(presence, directory, consultations, nil),
		presence:      presence,
		consultations: consultations,
	}
}

// connect registers a client without a real socket; dispatch and the push
// paths only touch the send channel
func (f *hubFixture) connect() *PortalClient {
	client := &PortalClient{
		hub:    f.hub,
		send:   make(chan []byte, 16),
		connID: uuid.New(),
		state:  stateUnannounced,
	}
	f.hub.register <- client
	return client
}

func (f *hubFixture) announce(client *PortalClient, email, role string) {
	data, _ := json.Marshal(map[string]interface{}{
		"email":    email,
		"userType": role,
	})
	f.hub.dispatch(client, &Envelope{Event: domain.EventUserOnline, Data: data})
}

func receive(t *testing.T, client *PortalClient) Envelope {
	t.Helper()
	select {
	case raw := <-client.send:
		var envelope Envelope
		require.NoError(t, json.Unmarshal(raw, &envelope))
		return envelope
	case <-time.After(time.Second):
		t.Fatal("expected an event, got none")
		return Envelope{}
	}
}

func assertNoEvent(t *testing.T, client *PortalClient) {
	t.Helper()
	select {
	case raw := <-client.send:
		t.Fatalf("unexpected event: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUserOnline_AnnouncesDoctorToEveryone(t *testing.T) {
	f := newHubFixture()

	patient := f.connect()
	f.announce(patient, "pat@example.com", "patient")

	doctor := f.connect()
	f.announce(doctor, "doc@example.com", "doctor")

	assert.True(t, f.presence.IsOnline("doc@example.com"))

	envelope := receive(t, patient)
	assert.Equal(t, domain.EventDoctorOnline, envelope.Event)

	var data map[string]string
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "doc@example.com", data["doctorEmail"])
}

func TestUserOnline_PatientAnnouncementIsSilent(t *testing.T) {
	f := newHubFixture()

	doctor := f.connect()
	f.announce(doctor, "doc@example.com", "doctor")
	receive(t, doctor) // own doctorOnline broadcast

	patient := f.connect()
	f.announce(patient, "pat@example.com", "patient")

	assert.True(t, f.presence.IsOnline("pat@example.com"))
	assertNoEvent(t, doctor)
}

func TestDispatch_DropsEventsFromUnannouncedConnection(t *testing.T) {
	f := newHubFixture()

	client := f.connect()
	f.hub.dispatch(client, &Envelope{Event: domain.EventRefreshConsultations})

	assertNoEvent(t, client)
}

func TestRefreshConsultations_RepliesWithSendersList(t *testing.T) {
	f := newHubFixture()

	f.consultations.Create("pat@example.com", "doc@example.com", nil)
	f.consultations.Create("other@example.com", "doc@example.com", nil)

	patient := f.connect()
	f.announce(patient, "pat@example.com", "patient")

	f.hub.dispatch(patient, &Envelope{Event: domain.EventRefreshConsultations})

	envelope := receive(t, patient)
	assert.Equal(t, domain.EventConsultationsUpdated, envelope.Event)

	var list []domain.Consultation
	require.NoError(t, json.Unmarshal(envelope.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "pat@example.com", list[0].PatientEmail)
}

// TestRefreshConsultations_RepliesOnRequestingConnection checks the reply
// lands on the connection that asked, even when a newer connection for the
// same identity has taken over the presence entry
func TestRefreshConsultations_RepliesOnRequestingConnection(t *testing.T) {
	f := newHubFixture()

	f.consultations.Create("pat@example.com", "doc@example.com", nil)

	old := f.connect()
	f.announce(old, "pat@example.com", "patient")
	newer := f.connect()
	f.announce(newer, "pat@example.com", "patient")

	f.hub.dispatch(old, &Envelope{Event: domain.EventRefreshConsultations})

	envelope := receive(t, old)
	assert.Equal(t, domain.EventConsultationsUpdated, envelope.Event)
	assertNoEvent(t, newer)
}

func TestRelay_TargetsCounterparty(t *testing.T) {
	f := newHubFixture()

	c := f.consultations.Create("pat@example.com", "doc@example.com", nil)

	patient := f.connect()
	f.announce(patient, "pat@example.com", "patient")
	doctor := f.connect()
	f.announce(doctor, "doc@example.com", "doctor")
	receive(t, patient) // doctorOnline from the doctor's announcement
	receive(t, doctor)  // own doctorOnline broadcast

	bystander := f.connect()
	f.announce(bystander, "other@example.com", "patient")

	signal, _ := json.Marshal(map[string]interface{}{
		"consultationId": c.ID,
		"sdp":            "offer-sdp",
	})
	f.hub.dispatch(doctor, &Envelope{Event: domain.EventWebRTCOffer, Data: signal})

	envelope := receive(t, patient)
	assert.Equal(t, domain.EventWebRTCOffer, envelope.Event)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "doc@example.com", data["from"])
	assert.Equal(t, "offer-sdp", data["sdp"])

	// Targeted relay must not leak to third parties
	assertNoEvent(t, bystander)
	assertNoEvent(t, doctor)
}

func TestRelay_FallsBackToBroadcastWithoutConsultation(t *testing.T) {
	f := newHubFixture()

	doctor := f.connect()
	f.announce(doctor, "doc@example.com", "doctor")
	receive(t, doctor) // own doctorOnline broadcast
	patient := f.connect()
	f.announce(patient, "pat@example.com", "patient")

	signal, _ := json.Marshal(map[string]interface{}{"candidate": "c1"})
	f.hub.dispatch(doctor, &Envelope{Event: domain.EventICECandidate, Data: signal})

	envelope := receive(t, patient)
	assert.Equal(t, domain.EventICECandidate, envelope.Event)

	// Sender is excluded from the fallback broadcast
	assertNoEvent(t, doctor)
}

func TestDisconnect_BroadcastsDoctorOffline(t *testing.T) {
	f := newHubFixture()

	patient := f.connect()
	f.announce(patient, "pat@example.com", "patient")
	doctor := f.connect()
	f.announce(doctor, "doc@example.com", "doctor")
	receive(t, patient) // doctorOnline

	f.hub.unregister <- doctor

	envelope := receive(t, patient)
	assert.Equal(t, domain.EventDoctorOffline, envelope.Event)
	assert.False(t, f.presence.IsOnline("doc@example.com"))
}

func TestDisconnect_SupersededConnectionStaysSilent(t *testing.T) {
	f := newHubFixture()

	patient := f.connect()
	f.announce(patient, "pat@example.com", "patient")

	first := f.connect()
	f.announce(first, "doc@example.com", "doctor")
	receive(t, patient) // doctorOnline

	second := f.connect()
	f.announce(second, "doc@example.com", "doctor")
	receive(t, patient) // doctorOnline again from the new connection

	// The superseded connection going away must not mark the doctor offline
	f.hub.unregister <- first

	assertNoEvent(t, patient)
	assert.True(t, f.presence.IsOnline("doc@example.com"))
}

func TestSendToUser_OfflineIsDropped(t *testing.T) {
	f := newHubFixture()

	delivered := f.hub.SendToUser("ghost@example.com", domain.EventCallStarted, map[string]string{"callId": "x"})
	assert.False(t, delivered)
}

func TestSendToUser_DeliversWireEnvelope(t *testing.T) {
	f := newHubFixture()

	patient := f.connect()
	f.announce(patient, "pat@example.com", "patient")

	delivered := f.hub.SendToUser("pat@example.com", domain.EventCallStarted, map[string]interface{}{
		"callId": "call_1_100",
	})
	require.True(t, delivered)

	envelope := receive(t, patient)
	assert.Equal(t, domain.EventCallStarted, envelope.Event)

	var data map[string]string
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "call_1_100", data["callId"])
}

func TestRoleNormalizationOnAnnounce(t *testing.T) {
	f := newHubFixture()

	doctor := f.connect()
	f.announce(doctor, "doc@example.com", "DOCTOR")

	f.hub.mu.RLock()
	role := doctor.role
	f.hub.mu.RUnlock()
	assert.Equal(t, constants.RoleDoctor, role)
}
