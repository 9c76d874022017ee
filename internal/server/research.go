package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/deepscout/config"
	"github.com/mohammad-safakhou/deepscout/internal/research"
)

// ResearchHandler serves the research endpoint and the service descriptor.
type ResearchHandler struct {
	Engine *research.Engine
	Cfg    *config.Config
}

func (h *ResearchHandler) Register(e *echo.Echo) {
	e.POST("/research", h.research)
	e.GET("/health", h.health)
}

// research runs one question through the engine. The budget is clamped into
// [1,10]; a missing mode means deep_search.
func (h *ResearchHandler) research(c echo.Context) error {
	var req ResearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No question provided")
	}

	maxSources := req.MaxSources
	if maxSources == 0 {
		maxSources = h.Cfg.Research.DefaultMaxSources
	}
	if maxSources < 1 {
		maxSources = 1
	} else if maxSources > 10 {
		maxSources = 10
	}

	mode := research.Mode(req.Mode)
	if mode == "" {
		mode = research.ModeDeepSearch
	}
	switch mode {
	case research.ModeDeepSearch, research.ModeDeepResearch:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown mode %q", req.Mode))
	}

	question := research.Question{
		Text:       strings.TrimSpace(req.Question),
		DateFrom:   strings.TrimSpace(req.DateFrom),
		DateTo:     strings.TrimSpace(req.DateTo),
		WebpageURL: strings.TrimSpace(req.WebpageURL),
		MaxSources: maxSources,
		Mode:       mode,
	}

	report, err := h.Engine.Research(c.Request().Context(), question)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ResearchResponse{Result: report.Body})
}

// health reports what this instance is configured to do.
func (h *ResearchHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		Version:    version,
		Modes:      []string{string(research.ModeDeepSearch), string(research.ModeDeepResearch)},
		Model:      h.Cfg.LLM.Model,
		Collectors: []string{"arxiv", "youtube", "webpage"},
	})
}
