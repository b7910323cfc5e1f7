package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/auth"
	"storefront.chapter42.de/mailer/internal/data"
	"storefront.chapter42.de/mailer/internal/logger"
	"storefront.chapter42.de/mailer/internal/notify"
	"storefront.chapter42.de/mailer/internal/processor"
)

// Notifier is the part of notify.Notifier the HTTP layer needs.
type Notifier interface {
	SendOrder(kind data.Kind, order data.Order) (*processor.Handle, error)
	SendAlert(subject, details string) (*processor.Handle, error)
}

type alertRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Details string `json:"details"`
}

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func NewNotificationHandler(n Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind := data.Kind(c.Param("kind"))
		if !kind.Valid() || kind == data.KindAlert {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unbekannte Benachrichtigungsart", "kind": kind})
			return
		}

		var order data.Order
		if err := c.ShouldBindJSON(&order); err != nil {
			logger.Log.Warn("Fehler beim Parsen der Bestellung:", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Ungültiges JSON-Format", "details": err.Error()})
			return
		}

		h, err := n.SendOrder(kind, order)
		if err != nil {
			respondSubmitError(c, err)
			return
		}

		logger.Log.Info("Neuer E-Mail-Job empfangen:",
			zap.String("type", string(kind)),
			zap.String("order_id", order.ID),
			zap.String("job_id", h.JobID()),
			caller(c))
		c.JSON(http.StatusAccepted, gin.H{"message": "Job akzeptiert", "job_id": h.JobID()})
	}
}

func NewAlertHandler(n Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req alertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Log.Warn("Fehler beim Parsen des Alarms:", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Ungültiges JSON-Format", "details": err.Error()})
			return
		}

		h, err := n.SendAlert(req.Subject, req.Details)
		if err != nil {
			respondSubmitError(c, err)
			return
		}

		logger.Log.Info("Neuer Alarm empfangen:", zap.String("subject", req.Subject), zap.String("job_id", h.JobID()), caller(c))
		c.JSON(http.StatusAccepted, gin.H{"message": "Job akzeptiert", "job_id": h.JobID()})
	}
}

// caller names the token holder that passed the auth middleware.
func caller(c *gin.Context) zap.Field {
	claims, ok := auth.AdminFromContext(c)
	if !ok {
		return zap.Skip()
	}
	if claims.Email != "" {
		return zap.String("caller", claims.Email)
	}
	return zap.String("caller", claims.Subject)
}

func respondSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notify.ErrUnknownKind):
		c.JSON(http.StatusNotFound, gin.H{"error": "Unbekannte Benachrichtigungsart"})
	case errors.Is(err, notify.ErrNoRecipient):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Kein Empfänger angegeben"})
	case errors.Is(err, notify.ErrNoAdminAddress):
		logger.Log.Error("Keine Admin-Adresse konfiguriert")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin-Adresse nicht konfiguriert"})
	default:
		logger.Log.Error("Fehler beim Einreihen der E-Mail:", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Versuche es später nochmal"})
	}
}
