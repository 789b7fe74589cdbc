package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ruleforge/ruleforge/internal/metrics"
	"github.com/ruleforge/ruleforge/internal/trigger"
)

// ingestHandler accepts one file-arrival event and runs the pipeline
// synchronously. Partial failure yields 207 so the invoking scheduler can
// decide on retry; the body is always a structured run summary.
func ingestHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var event trigger.Event
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger event"})
			return
		}

		res := deps.Trigger.Handle(c.Request.Context(), event)
		metrics.ObserveIngest(res)
		deps.Notifier.RunSummary("Rule ingestion run", res)

		status := http.StatusOK
		if res.Errors > 0 {
			status = http.StatusMultiStatus
		}
		c.JSON(status, res)
	}
}

// enrichHandler runs one enrichment pass immediately, outside the schedule.
func enrichHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := deps.Fetcher.Run(c.Request.Context())
		metrics.ObserveEnrichment(res.Enriched, res.MappingsCreated, res.Errors)
		deps.Notifier.RunSummary("Vulnerability enrichment run", res)

		status := http.StatusOK
		if res.Errors > 0 {
			status = http.StatusMultiStatus
		}
		c.JSON(status, res)
	}
}
