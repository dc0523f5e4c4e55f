package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-backend/internal/service/user"
	apperrors "telehealth-backend/pkg/errors"
	"telehealth-backend/pkg/logger"
	"telehealth-backend/pkg/response"
)

// Handler handles user HTTP requests
type Handler struct {
	service *user.Service
}

// NewHandler creates a new user handler
func NewHandler(service *user.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Email    string                 `json:"email"`
	UserType string                 `json:"userType"`
	UserData map[string]interface{} `json:"userData"`
	Password string                 `json:"password"`
}

// Register handles POST /api/users/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}

	resp, err := h.service.Register(&user.RegisterInput{
		Email:    req.Email,
		Role:     req.UserType,
		Profile:  req.UserData,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("User registered", zap.String("email", resp.Email), zap.String("role", resp.Role))
	response.Success(c, http.StatusCreated, resp)
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/users/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}

	resp, token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":  resp,
		"token": token,
	})
}

// List handles GET /api/users
func (h *Handler) List(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.List())
}

// OnlineDoctors handles GET /api/doctors/online
func (h *Handler) OnlineDoctors(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"doctors": h.service.OnlineDoctors(),
	})
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
}
