package consultation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-backend/internal/service/consultation"
	apperrors "telehealth-backend/pkg/errors"
	"telehealth-backend/pkg/logger"
	"telehealth-backend/pkg/response"
)

// Handler handles consultation HTTP requests
type Handler struct {
	service *consultation.Service
}

// NewHandler creates a new consultation handler
func NewHandler(service *consultation.Service) *Handler {
	return &Handler{service: service}
}

// CreateRequest is the consultation request payload
type CreateRequest struct {
	PatientEmail string                 `json:"patientEmail"`
	DoctorEmail  string                 `json:"doctorEmail"`
	PatientInfo  map[string]interface{} `json:"patientInfo"`
}

// Create handles POST /api/consultations
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}

	created, err := h.service.Create(&consultation.CreateInput{
		PatientEmail: req.PatientEmail,
		DoctorEmail:  req.DoctorEmail,
		PatientInfo:  req.PatientInfo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Consultation requested",
		zap.Int64("consultation_id", created.ID),
		zap.String("patient", created.PatientEmail),
		zap.String("doctor", created.DoctorEmail))
	response.Success(c, http.StatusCreated, created)
}

// List handles GET /api/consultations. The userEmail and userType query
// parameters scope the listing to one side of the relationship; absent
// parameters default to the authenticated identity from the bearer token,
// and with neither the full collection is returned.
func (h *Handler) List(c *gin.Context) {
	email := c.Query("userEmail")
	role := c.Query("userType")
	if email == "" {
		email = c.GetString("email")
	}
	if role == "" {
		role = c.GetString("role")
	}
	response.Success(c, http.StatusOK, h.service.List(email, role))
}

// UpdateStatusRequest carries the requested status transition
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /api/consultations/:id
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "Invalid consultation id")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}

	updated, svcErr := h.service.UpdateStatus(id, req.Status)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}

	logger.Info("Consultation status updated",
		zap.Int64("consultation_id", id),
		zap.String("status", updated.Status))
	response.Success(c, http.StatusOK, updated)
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
}
