package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/deepscout/internal/telemetry"
)

// OpsHandler exposes operational endpoints (aggregate stats snapshots).
type OpsHandler struct {
	tel *telemetry.Telemetry
}

func NewOpsHandler(tel *telemetry.Telemetry) *OpsHandler { return &OpsHandler{tel: tel} }

func (h *OpsHandler) Register(g *echo.Group) {
	g.GET("/stats", h.stats)
}

// stats returns the aggregate activity snapshot since startup.
func (h *OpsHandler) stats(c echo.Context) error {
	s := h.tel.GetStats()
	return c.JSON(http.StatusOK, StatsResponse{
		TotalRequests:      s.TotalRequests,
		SuccessfulRequests: s.SuccessfulRequests,
		FailedRequests:     s.FailedRequests,
		AverageProcessing:  s.AverageProcessingTime.String(),
		SourcesCollected:   s.SourcesCollected,
		CollectorFailures:  s.CollectorFailures,
		LLMRequests:        s.LLMRequests,
		LLMFailures:        s.LLMFailures,
	})
}
