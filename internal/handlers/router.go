package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"storefront.chapter42.de/mailer/internal/auth"
)

type Deps struct {
	Notifier   Notifier
	Queue      QueueStatus
	AttemptLog AttemptLog
	Tiers      TierReport
	Admin      *auth.AdminVerifier
}

// NewRouter registers every route. CORS is only installed when origins are
// configured.
func NewRouter(d Deps, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	if len(allowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", HealthHandler)

	intake := router.Group("", d.Admin.Middleware(auth.ServiceRole, auth.AdminRole))
	intake.POST("/notifications/:kind", NewNotificationHandler(d.Notifier))
	intake.POST("/alerts", NewAlertHandler(d.Notifier))

	admin := router.Group("/admin/email", d.Admin.Middleware())
	admin.GET("/status", NewAdminStatusHandler(d.Queue, d.AttemptLog, d.Tiers))
	admin.GET("/logs", NewAdminLogsHandler(d.AttemptLog))

	return router
}
