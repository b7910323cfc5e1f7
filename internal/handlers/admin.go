package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/attemptlog"
	"storefront.chapter42.de/mailer/internal/delivery"
	"storefront.chapter42.de/mailer/internal/logger"
	"storefront.chapter42.de/mailer/internal/processor"
)

const (
	DefaultLogLimit = 20
	MaxLogLimit     = 100
)

type QueueStatus interface {
	Status() processor.Status
}

type AttemptLog interface {
	Recent(limit int) []attemptlog.Entry
	Stats() attemptlog.Stats
}

type TierReport interface {
	Tiers() []delivery.TierStats
	Selector() delivery.Selector
}

type statusResponse struct {
	Queue    processor.Status     `json:"queue"`
	Attempts attemptlog.Stats     `json:"attempts"`
	Tiers    []delivery.TierStats `json:"tiers"`
	Selector delivery.Selector    `json:"selector"`
}

func NewAdminStatusHandler(q QueueStatus, log AttemptLog, tiers TierReport) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.Log.Debug("Admin-Abfrage Status:", caller(c))
		c.JSON(http.StatusOK, statusResponse{
			Queue:    q.Status(),
			Attempts: log.Stats(),
			Tiers:    tiers.Tiers(),
			Selector: tiers.Selector(),
		})
	}
}

// NewAdminLogsHandler serves the newest attempts, ?limit=N (default 20, max 100).
func NewAdminLogsHandler(log AttemptLog) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := DefaultLogLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit muss eine positive Zahl sein"})
				return
			}
			limit = min(n, MaxLogLimit)
		}

		logger.Log.Debug("Admin-Abfrage Protokoll:", zap.Int("limit", limit), caller(c))
		entries := log.Recent(limit)
		c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
	}
}
