package server

// version reported by the health endpoint.
const version = "2.0"

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// ResearchRequest is the POST /research payload. Form tags keep the endpoint
// usable from plain HTML forms as well as JSON clients.
type ResearchRequest struct {
	Question   string `json:"question" form:"question"`
	DateFrom   string `json:"dateFrom" form:"dateFrom"`
	DateTo     string `json:"dateTo" form:"dateTo"`
	MaxSources int    `json:"maxSources" form:"maxSources"`
	WebpageURL string `json:"webpageUrl" form:"webpageUrl"`
	Mode       string `json:"mode" form:"mode"`
}

// ResearchResponse carries the finished report body.
type ResearchResponse struct {
	Result string `json:"result"`
}

// HealthResponse describes the running service.
type HealthResponse struct {
	Status     string   `json:"status"`
	Version    string   `json:"version"`
	Modes      []string `json:"modes"`
	Model      string   `json:"model"`
	Collectors []string `json:"collectors"`
}

// StatsResponse is the operational snapshot served by the ops endpoint.
type StatsResponse struct {
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	AverageProcessing  string           `json:"average_processing"`
	SourcesCollected   map[string]int64 `json:"sources_collected"`
	CollectorFailures  map[string]int64 `json:"collector_failures"`
	LLMRequests        int64            `json:"llm_requests"`
	LLMFailures        int64            `json:"llm_failures"`
}
