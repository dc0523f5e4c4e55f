package call

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-backend/internal/service/call"
	apperrors "telehealth-backend/pkg/errors"
	"telehealth-backend/pkg/logger"
	"telehealth-backend/pkg/response"
)

// Handler handles call session HTTP requests
type Handler struct {
	service *call.Service
}

// NewHandler creates a new call handler
func NewHandler(service *call.Service) *Handler {
	return &Handler{service: service}
}

// StartRequest names the consultation to open a call for
type StartRequest struct {
	ConsultationID int64 `json:"consultationId"`
}

// Start handles POST /api/calls/start
func (h *Handler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}

	started, err := h.service.Start(req.ConsultationID)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Call started",
		zap.String("call_id", started.CallID),
		zap.Int64("consultation_id", started.ConsultationID))
	response.Success(c, http.StatusOK, started)
}

// EndRequest names the call to terminate
type EndRequest struct {
	CallID string `json:"callId"`
}

// End handles POST /api/calls/end. Ending is idempotent and unknown ids are
// acknowledged, so the response is always a success envelope.
func (h *Handler) End(c *gin.Context) {
	var req EndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}
	if req.CallID == "" {
		response.ValidationError(c, "Missing required field: callId")
		return
	}

	h.service.End(req.CallID)

	logger.Info("Call ended", zap.String("call_id", req.CallID))
	response.Success(c, http.StatusOK, gin.H{"callId": req.CallID, "ended": true})
}

// Status handles GET /api/calls/:callId
func (h *Handler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.Status(c.Param("callId")))
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
}
