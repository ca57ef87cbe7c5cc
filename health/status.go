package health

import (
	"regexp"
	"time"

	"github.com/BrewBlox/brewblox-service/feature"
)

// Status levels
const (
	levelHealthy   = "healthy"
	levelDegraded  = "degraded"
	levelUnhealthy = "unhealthy"
)

// Status represents the health state of a feature or of the service
type Status struct {
	Feature     string    `json:"feature"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == levelHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == levelDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == levelUnhealthy
}

// WithSubStatus returns a copy of the status with subStatus appended.
// The receiver's sub-status slice is never shared with the copy.
func (s Status) WithSubStatus(subStatus Status) Status {
	subs := make([]Status, 0, len(s.SubStatuses)+1)
	subs = append(subs, s.SubStatuses...)
	s.SubStatuses = append(subs, subStatus)
	return s
}

// redaction is one ordered sanitization rule. Order matters: URLs must go
// before bare paths, since a URL contains a path.
type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

var redactions = []redaction{
	{regexp.MustCompile(`https?://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`mqtts?://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`nats://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`), "[PATH]"},
	{regexp.MustCompile(`[A-Z]:\\[^:\s]+`), "[PATH]"},
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`), "[IP]"},
	{regexp.MustCompile(`:\d{2,5}\b`), "[PORT]"},
	{regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`), "[REDACTED]"},
}

// sanitizeErrorMessage strips broker URLs, file paths, addresses, and
// credentials from an error message before it is exposed on health endpoints
// or published to the event bus.
func sanitizeErrorMessage(message string) string {
	for _, r := range redactions {
		message = r.pattern.ReplaceAllString(message, r.replacement)
	}
	return message
}

// FromFeatureState converts a feature's lifecycle state into a health status.
// Error messages are sanitized before exposure.
func FromFeatureState(name string, state feature.State, lastErr error) Status {
	switch state {
	case feature.StateStarted:
		return NewHealthy(name, "Feature running")
	case feature.StateStarting, feature.StateStopping:
		return NewDegraded(name, "Feature "+state.String())
	case feature.StateFailed:
		message := "Feature failed"
		if lastErr != nil {
			message = sanitizeErrorMessage(lastErr.Error())
		}
		return NewUnhealthy(name, message)
	default:
		return NewUnhealthy(name, "Feature "+state.String())
	}
}
