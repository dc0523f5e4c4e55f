package consultation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-backend/internal/domain"
	"telehealth-backend/internal/middleware"
	"telehealth-backend/internal/repository/memory"
	consultationService "telehealth-backend/internal/service/consultation"
	"telehealth-backend/pkg/constants"
	"telehealth-backend/pkg/jwt"
	"telehealth-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitDefault()
	os.Exit(m.Run())
}

type nopNotifier struct{}

func (nopNotifier) SendToUser(email, event string, data interface{}) bool { return false }
func (nopNotifier) Broadcast(event string, data interface{})              {}

func newTestRouter() (*gin.Engine, *memory.ConsultationRepository, *jwt.Manager) {
	consultations := memory.NewConsultationRepository()
	calls := memory.NewCallRepository()
	service := consultationService.NewService(consultations, calls, nopNotifier{}, nil)
	handler := NewHandler(service)
	jwtManager := jwt.NewManager("test-secret-key-for-unit-tests", time.Hour)

	router := gin.New()
	api := router.Group("/api")
	api.Use(middleware.Identity(jwtManager))
	api.GET("/consultations", handler.List)
	return router, consultations, jwtManager
}

type listResponse struct {
	Success bool                  `json:"success"`
	Data    []domain.Consultation `json:"data"`
}

// TestList_DefaultsToTokenIdentity checks a request with no query parameters
// is scoped by the bearer token's email and role
func TestList_DefaultsToTokenIdentity(t *testing.T) {
	router, consultations, jwtManager := newTestRouter()

	consultations.Create("pat@example.com", "doc@example.com", nil)
	consultations.Create("other@example.com", "elsewhere@example.com", nil)

	token, err := jwtManager.GenerateAccessToken("doc@example.com", constants.RoleDoctor)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/consultations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "doc@example.com", resp.Data[0].DoctorEmail)
}

// TestList_QueryParamsOverrideToken checks explicit parameters still win
func TestList_QueryParamsOverrideToken(t *testing.T) {
	router, consultations, jwtManager := newTestRouter()

	consultations.Create("pat@example.com", "doc@example.com", nil)

	token, err := jwtManager.GenerateAccessToken("doc@example.com", constants.RoleDoctor)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/consultations?userEmail=pat%40example.com&userType=Patient", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "pat@example.com", resp.Data[0].PatientEmail)
}

// TestList_AnonymousIsUnfiltered checks the no-token, no-params request
// returns the whole collection
func TestList_AnonymousIsUnfiltered(t *testing.T) {
	router, consultations, _ := newTestRouter()

	consultations.Create("pat@example.com", "doc@example.com", nil)
	consultations.Create("other@example.com", "elsewhere@example.com", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/consultations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}
