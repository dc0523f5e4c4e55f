package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"telehealth-backend/internal/domain"
	"telehealth-backend/pkg/constants"
	"telehealth-backend/pkg/env"
	"telehealth-backend/pkg/logger"
	"telehealth-backend/pkg/metrics"
)

// PresenceRegistry tracks which users hold a live connection
type PresenceRegistry interface {
	SetOnline(email, role string, connID uuid.UUID)
	SetOffline(connID uuid.UUID) (email, role string, ok bool)
	Lookup(email string) (uuid.UUID, bool)
}

// Directory resolves and upserts user records for announcing connections
type Directory interface {
	EnsureKnown(email, role string, profile map[string]interface{}) domain.User
}

// ConsultationSource is the read-side of the consultation store used for
// list refreshes and counterparty resolution
type ConsultationSource interface {
	ListFor(email, role string) []domain.Consultation
	Get(id int64) (domain.Consultation, error)
}

// PrescriptionWriter applies live prescription edits; bound after
// construction because the consultation service itself pushes through
// this hub
type PrescriptionWriter interface {
	UpdatePrescription(callID string, consultationID int64, text string) error
}

// Envelope is the wire format for every frame in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// client connection states
const (
	stateUnannounced = iota
	stateOnline
	stateClosed
)

// PortalHub routes portal events between connected clients. A connection is
// anonymous until its userOnline announcement and is dropped from routing
// the moment it disconnects.
type PortalHub struct {
	// Registered clients by connection id
	clients map[uuid.UUID]*PortalClient

	presence      PresenceRegistry
	directory     Directory
	consultations ConsultationSource
	prescriptions PrescriptionWriter
	metrics       *metrics.Metrics

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Channels
	register   chan *PortalClient
	unregister chan *PortalClient

	// Concurrency limit: maxConnections is the maximum number of concurrent WebSocket connections
	maxConnections int
	// Semaphore for limiting concurrent connections
	semaphore chan struct{}
}

// PortalClient represents one WebSocket connection to the portal
type PortalClient struct {
	hub    *PortalHub
	conn   *websocket.Conn
	send   chan []byte
	connID uuid.UUID

	// Set on the userOnline announcement, immutable afterwards
	email string
	role  string
	state int
}

var portalUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		allowed := env.GetString("ALLOWED_ORIGINS", "")
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, candidate := range strings.Split(allowed, ",") {
			if origin == strings.TrimSpace(candidate) {
				return true
			}
		}
		return false
	},
}

// NewPortalHub creates a new portal hub
func NewPortalHub(presence PresenceRegistry, directory Directory, consultations ConsultationSource, m *metrics.Metrics) *PortalHub {
	maxConns := env.GetInt("WS_MAX_CONNECTIONS", 1000)
	if maxConns <= 0 {
		maxConns = 1000
	}

	hub := &PortalHub{
		clients:        make(map[uuid.UUID]*PortalClient),
		presence:       presence,
		directory:      directory,
		consultations:  consultations,
		metrics:        m,
		register:       make(chan *PortalClient),
		unregister:     make(chan *PortalClient),
		maxConnections: maxConns,
		semaphore:      make(chan struct{}, maxConns),
	}

	go hub.run()

	return hub
}

// BindPrescriptionWriter wires in the prescription path once the consultation
// service exists
func (h *PortalHub) BindPrescriptionWriter(w PrescriptionWriter) {
	h.prescriptions = w
}

// run handles hub registration bookkeeping
func (h *PortalHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.connID] = client
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.IncWebSocketConnections()
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.connID]; ok {
				delete(h.clients, client.connID)
				client.state = stateClosed
				close(client.send)
			}
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.DecWebSocketConnections()
			}

			h.handleDisconnect(client)
		}
	}
}

// handleDisconnect drops the presence entry for the connection and announces
// a doctor going dark. A connection that was superseded by a newer one for
// the same user yields no presence change and no broadcast.
func (h *PortalHub) handleDisconnect(client *PortalClient) {
	email, role, ok := h.presence.SetOffline(client.connID)
	if !ok {
		return
	}

	logger.Info("User disconnected",
		zap.String("email", email),
		zap.String("conn_id", client.connID.String()))

	if role == constants.RoleDoctor {
		h.Broadcast(domain.EventDoctorOffline, map[string]interface{}{
			"doctorEmail": email,
		})
	}
}

// SendToUser pushes one event to the live connection of email, if any.
// Returns false when the user is offline or their send buffer is full; the
// event is dropped either way, never queued.
func (h *PortalHub) SendToUser(email, event string, data interface{}) bool {
	connID, ok := h.presence.Lookup(email)
	if !ok {
		return false
	}

	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	return h.sendToClient(client, event, data)
}

// sendToClient queues one event on a specific connection, dropping it if the
// connection's send buffer is full
func (h *PortalHub) sendToClient(client *PortalClient, event string, data interface{}) bool {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		logger.Error("Failed to marshal outbound event",
			zap.String("event", event), zap.Error(err))
		return false
	}

	select {
	case client.send <- payload:
		if h.metrics != nil {
			h.metrics.RecordEvent(event, "out")
		}
		return true
	default:
		logger.Warn("Send buffer full, dropping event",
			zap.String("conn_id", client.connID.String()),
			zap.String("event", event))
		return false
	}
}

// Broadcast pushes one event to every announced connection
func (h *PortalHub) Broadcast(event string, data interface{}) {
	h.broadcastExcept(uuid.Nil, event, data)
}

func (h *PortalHub) broadcastExcept(sender uuid.UUID, event string, data interface{}) {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		logger.Error("Failed to marshal broadcast event",
			zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID, client := range h.clients {
		if connID == sender || client.state != stateOnline {
			continue
		}
		select {
		case client.send <- payload:
			if h.metrics != nil {
				h.metrics.RecordEvent(event, "out")
			}
		default:
			// Slow consumer, skip
		}
	}
}

func marshalEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// ServeWS handles WebSocket requests from portal clients
func (h *PortalHub) ServeWS(c *gin.Context) {
	// Acquire semaphore to limit concurrent connections
	select {
	case h.semaphore <- struct{}{}:
	default:
		logger.Warn("WebSocket connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}

	conn, err := portalUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		<-h.semaphore
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &PortalClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		connID: uuid.New(),
		state:  stateUnannounced,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump reads messages from WebSocket
func (c *PortalClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		<-c.hub.semaphore
	}()

	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket connection closed",
					zap.String("conn_id", c.connID.String()),
					zap.Error(err))
			}
			break
		}

		var envelope Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			logger.Warn("Invalid message format from WebSocket",
				zap.String("conn_id", c.connID.String()),
				zap.Error(err))
			continue
		}

		if c.hub.metrics != nil {
			c.hub.metrics.RecordEvent(envelope.Event, "in")
		}

		c.hub.dispatch(c, &envelope)
	}
}

// writePump writes messages to WebSocket
func (c *PortalClient) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound event. Only userOnline is accepted from a
// connection that has not announced itself yet.
func (h *PortalHub) dispatch(client *PortalClient, envelope *Envelope) {
	if envelope.Event == domain.EventUserOnline {
		h.handleUserOnline(client, envelope.Data)
		return
	}

	if client.state != stateOnline {
		logger.Warn("Event from unannounced connection dropped",
			zap.String("event", envelope.Event),
			zap.String("conn_id", client.connID.String()))
		return
	}

	switch envelope.Event {
	case domain.EventRefreshConsultations:
		h.handleRefreshConsultations(client)
	case domain.EventPrescriptionUpdate:
		h.handlePrescriptionUpdate(client, envelope.Data)
	case domain.EventWebRTCOffer, domain.EventWebRTCAnswer, domain.EventICECandidate:
		h.relaySignal(client, envelope.Event, envelope.Data)
	default:
		logger.Debug("Unknown event ignored",
			zap.String("event", envelope.Event),
			zap.String("email", client.email))
	}
}

// handleUserOnline binds the connection to an identity. Re-announcing on a
// live connection just refreshes the presence entry; announcing an email
// already online elsewhere supersedes the older connection.
func (h *PortalHub) handleUserOnline(client *PortalClient, data json.RawMessage) {
	var announcement struct {
		Email    string                 `json:"email"`
		UserType string                 `json:"userType"`
		UserData map[string]interface{} `json:"userData"`
	}
	if err := json.Unmarshal(data, &announcement); err != nil || announcement.Email == "" {
		logger.Warn("Malformed userOnline announcement",
			zap.String("conn_id", client.connID.String()))
		return
	}

	user := h.directory.EnsureKnown(announcement.Email, announcement.UserType, announcement.UserData)

	h.mu.Lock()
	client.email = user.Email
	client.role = user.Role
	client.state = stateOnline
	h.mu.Unlock()

	h.presence.SetOnline(user.Email, user.Role, client.connID)

	logger.Info("User online",
		zap.String("email", user.Email),
		zap.String("role", user.Role),
		zap.String("conn_id", client.connID.String()))

	if user.Role == constants.RoleDoctor {
		h.Broadcast(domain.EventDoctorOnline, map[string]interface{}{
			"doctorEmail": user.Email,
		})
	}
}

// handleRefreshConsultations answers on the requesting connection with that
// connection's consultation list. The identity announced at userOnline is
// authoritative; identity fields in the request payload are ignored, so a
// client cannot refresh someone else's list.
func (h *PortalHub) handleRefreshConsultations(client *PortalClient) {
	list := h.consultations.ListFor(client.email, client.role)
	h.sendToClient(client, domain.EventConsultationsUpdated, list)
}

func (h *PortalHub) handlePrescriptionUpdate(client *PortalClient, data json.RawMessage) {
	if h.prescriptions == nil {
		return
	}

	var update struct {
		CallID         string      `json:"callId"`
		ConsultationID json.Number `json:"consultationId"`
		Prescription   string      `json:"prescription"`
	}
	if err := json.Unmarshal(data, &update); err != nil {
		logger.Warn("Malformed prescriptionUpdate",
			zap.String("email", client.email))
		return
	}

	consultationID, _ := update.ConsultationID.Int64()
	if err := h.prescriptions.UpdatePrescription(update.CallID, consultationID, update.Prescription); err != nil {
		logger.Warn("Prescription update rejected",
			zap.String("email", client.email),
			zap.Int64("consultation_id", consultationID),
			zap.Error(err))
	}
}

// relaySignal forwards a WebRTC signaling frame to the counterparty of the
// consultation it names, tagged with the sender. When the counterparty
// cannot be resolved or is offline the frame falls back to a broadcast so a
// client tracking the call can still pick it up.
func (h *PortalHub) relaySignal(client *PortalClient, event string, data json.RawMessage) {
	var signal map[string]interface{}
	if err := json.Unmarshal(data, &signal); err != nil {
		logger.Warn("Malformed signaling frame",
			zap.String("event", event),
			zap.String("email", client.email))
		return
	}
	signal["from"] = client.email

	if id, ok := consultationIDFrom(signal); ok {
		if consultation, err := h.consultations.Get(id); err == nil && consultation.IsParty(client.email) {
			target := consultation.Counterparty(client.email)
			if h.SendToUser(target, event, signal) {
				return
			}
		}
	}

	h.broadcastExcept(client.connID, event, signal)
}

func consultationIDFrom(signal map[string]interface{}) (int64, bool) {
	switch v := signal["consultationId"].(type) {
	case float64:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}
