package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	callHandler "telehealth-backend/internal/handler/http/call"
	consultationHandler "telehealth-backend/internal/handler/http/consultation"
	userHandler "telehealth-backend/internal/handler/http/user"
	wsHandler "telehealth-backend/internal/handler/ws"
	"telehealth-backend/internal/middleware"
	"telehealth-backend/internal/repository/memory"
	callService "telehealth-backend/internal/service/call"
	consultationService "telehealth-backend/internal/service/consultation"
	userService "telehealth-backend/internal/service/user"
	"telehealth-backend/pkg/constants"
	"telehealth-backend/pkg/env"
	"telehealth-backend/pkg/jwt"
	"telehealth-backend/pkg/logger"
	"telehealth-backend/pkg/metrics"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger.InitDefault()
	defer logger.Sync()

	jwtSecret := env.GetString("JWT_SECRET", "")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET environment variable is required")
	}
	jwtManager := jwt.NewManager(jwtSecret, constants.AccessTokenExpiry)

	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Stores: everything lives in process memory and is lost on restart
	userRepo := memory.NewUserRepository()
	presenceRepo := memory.NewPresenceRepository()
	consultationRepo := memory.NewConsultationRepository()
	callRepo := memory.NewCallRepository()

	appMetrics := metrics.New("portal-server")
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	userSvc := userService.NewService(userRepo, presenceRepo, jwtManager)

	// The hub is the Notifier for both services; the prescription path is
	// bound after the consultation service exists
	portalHub := wsHandler.NewPortalHub(presenceRepo, userSvc, consultationRepo, appMetrics)
	consultationSvc := consultationService.NewService(consultationRepo, callRepo, portalHub, appMetrics)
	portalHub.BindPrescriptionWriter(consultationSvc)
	callSvc := callService.NewService(callRepo, portalHub, appMetrics)

	userHdlr := userHandler.NewHandler(userSvc)
	consultationHdlr := consultationHandler.NewHandler(consultationSvc)
	callHdlr := callHandler.NewHandler(callSvc)

	router := gin.New()
	router.SetTrustedProxies(nil)

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "portal-server",
			"time":    time.Now().UTC(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.Identity(jwtManager))
	{
		api.GET("/users", userHdlr.List)
		api.POST("/users/register", userHdlr.Register)
		api.POST("/users/login", userHdlr.Login)
		api.GET("/doctors/online", userHdlr.OnlineDoctors)

		api.GET("/consultations", consultationHdlr.List)
		api.POST("/consultations", consultationHdlr.Create)
		api.PUT("/consultations/:id", consultationHdlr.UpdateStatus)

		api.POST("/calls/start", callHdlr.Start)
		api.POST("/calls/end", callHdlr.End)
		api.GET("/calls/:callId", callHdlr.Status)
	}

	// Persistent push channel for portal events
	router.GET("/ws", portalHub.ServeWS)

	port := env.GetString("PORT", "3000")
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: router,
	}

	go func() {
		logger.Info("Portal server starting",
			zap.String("port", port),
			zap.String("ws_endpoint", "/ws"))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down portal server")
	ctx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
	logger.Info("Portal server stopped")
}
