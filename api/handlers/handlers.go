package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/interfaces"
	"github.com/dmarcstack/dmarcstack/internal/repository"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports process identity and uptime for operators.
func Status(startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "dmarcstack",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
		})
	}
}

// ProcessReports triggers one ingestion cycle outside the cron schedule.
func ProcessReports(orchestrator interfaces.BatchOrchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		results, err := orchestrator.RunCycle(ctx)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		response := dto.ProcessCycleResponse{
			EmailsProcessed: len(results),
		}
		for _, result := range results {
			if result.StorageKey != "" {
				response.StorageKeys = append(response.StorageKeys, result.StorageKey)
			}
		}

		c.JSON(http.StatusOK, response)
	}
}

// GetBatch returns the audit row stored under a storage key.
func GetBatch(repos *repository.Repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.Param("key")

		batch, err := repos.ProcessedBatchRepository.GetByStorageKey(ctx, key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if batch == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}

		c.JSON(http.StatusOK, batch)
	}
}

// ListMonitoring returns per-domain aggregate rows for trend dashboards.
func ListMonitoring(repos *repository.Repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		domain := c.Param("domain")

		rows, err := repos.DMARCMonitoringRepository.ListByDomain(ctx, domain, 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"domain": domain, "reports": rows})
	}
}
