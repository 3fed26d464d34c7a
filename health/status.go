// Package health turns component health reports into a status tree for the
// /health endpoint.
//
// A status is one of three levels:
//   - healthy: running without recent errors
//   - degraded: running, but the last operation recorded an error
//   - unhealthy: not running, or unable to do its work
//
// Aggregate rolls a set of statuses up into one, taking the worst level.
package health

import (
	"regexp"
	"time"

	"github.com/c360/filestreams/component"
)

// Status levels
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

var (
	urlRegex        = regexp.MustCompile(`(?i)\b(?:https?|nats|tls|wss?)://[^\s]+`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status represents the health state of a component or system
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"` // true only for "healthy"
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains health-related metrics
type Metrics struct {
	Uptime            time.Duration `json:"uptime"`
	ErrorCount        int           `json:"error_count"`
	MessagesPerSecond float64       `json:"messages_per_second"`
	LastActivity      time.Time     `json:"last_activity,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool { return s.Status == StatusHealthy }

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool { return s.Status == StatusDegraded }

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool { return s.Status == StatusUnhealthy }

// FromComponent builds the status of one managed component. Only started
// components can be healthy. Error messages are scrubbed of URLs and
// credentials before they are exposed.
func FromComponent(name string, state component.State, ch component.HealthStatus, flow component.FlowMetrics) Status {
	status := Status{
		Component: name,
		Timestamp: time.Now(),
		Metrics: &Metrics{
			Uptime:            ch.Uptime,
			ErrorCount:        ch.ErrorCount,
			MessagesPerSecond: flow.MessagesPerSecond,
			LastActivity:      flow.LastActivity,
		},
	}

	switch {
	case state != component.StateStarted:
		status.Status = StatusUnhealthy
		status.Message = "Component " + state.String()
	case !ch.Healthy:
		status.Status = StatusUnhealthy
		status.Message = "Component reports unhealthy"
	case ch.LastError != "":
		status.Status = StatusDegraded
		status.Message = "Component running"
	default:
		status.Status = StatusHealthy
		status.Message = "Component healthy"
	}
	if ch.LastError != "" {
		status.Message += ": " + sanitizeErrorMessage(ch.LastError)
	}

	status.Healthy = status.IsHealthy()
	return status
}

func sanitizeErrorMessage(err string) string {
	sanitized := urlRegex.ReplaceAllString(err, "[URL]")
	return credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
}
