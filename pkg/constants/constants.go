// Package constants defines application-wide constants for timeouts, limits, and statuses.
package constants

import "time"

// Time-related constants
const (
	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketWriteTimeout is the deadline for a single WebSocket write
	WebSocketWriteTimeout = 10 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 24 * time.Hour
)

// User role constants
const (
	// RoleDoctor identifies users who accept consultations
	RoleDoctor = "Doctor"

	// RolePatient identifies users who request consultations
	RolePatient = "Patient"
)

// Consultation status constants
const (
	// ConsultationPending indicates a consultation awaiting a doctor's decision
	ConsultationPending = "pending"

	// ConsultationAccepted indicates the doctor accepted the consultation
	ConsultationAccepted = "accepted"

	// ConsultationRejected indicates the doctor rejected the consultation
	ConsultationRejected = "rejected"
)

// Validation constants
const (
	// MinPasswordLength is the minimum allowed password length
	MinPasswordLength = 8

	// MaxEmailLength is the maximum allowed email length
	MaxEmailLength = 255

	// MaxPrescriptionLength is the maximum allowed prescription text length
	MaxPrescriptionLength = 10000
)
