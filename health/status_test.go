package health

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BrewBlox/brewblox-service/feature"
)

func TestStatusPredicates(t *testing.T) {
	assert.True(t, NewHealthy("eventbus", "ok").IsHealthy())
	assert.True(t, NewDegraded("eventbus", "reconnecting").IsDegraded())
	assert.True(t, NewUnhealthy("eventbus", "broker unreachable").IsUnhealthy())

	assert.False(t, NewDegraded("eventbus", "reconnecting").IsHealthy())
	assert.False(t, NewDegraded("eventbus", "reconnecting").IsUnhealthy())
}

func TestWithSubStatusIsolation(t *testing.T) {
	base := NewHealthy("service", "ok")
	withSub := base.WithSubStatus(NewHealthy("eventbus", "connected"))

	assert.Empty(t, base.SubStatuses, "original must not be mutated")
	assert.Len(t, withSub.SubStatuses, 1)

	second := withSub.WithSubStatus(NewDegraded("scheduler", "busy"))
	assert.Len(t, withSub.SubStatuses, 1)
	assert.Len(t, second.SubStatuses, 2)
}

func TestFromFeatureState(t *testing.T) {
	tests := []struct {
		name     string
		state    feature.State
		lastErr  error
		expected string
	}{
		{"started is healthy", feature.StateStarted, nil, "healthy"},
		{"starting is degraded", feature.StateStarting, nil, "degraded"},
		{"stopping is degraded", feature.StateStopping, nil, "degraded"},
		{"failed is unhealthy", feature.StateFailed, stderrors.New("boom"), "unhealthy"},
		{"unstarted is unhealthy", feature.StateUnstarted, nil, "unhealthy"},
		{"stopped is unhealthy", feature.StateStopped, nil, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := FromFeatureState("eventbus", tt.state, tt.lastErr)
			assert.Equal(t, tt.expected, status.Status)
			assert.Equal(t, "eventbus", status.Feature)
			assert.NotZero(t, status.Timestamp)
		})
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
		excludes string
	}{
		{"http url", "connect to https://broker.example.com failed", "[URL]", "example.com"},
		{"mqtt url", "dial mqtt://eventbus:1883 refused", "[URL]", "eventbus:1883"},
		{"nats url", "dial nats://10.0.0.5:4222 refused", "[URL]", "4222"},
		{"unix path", "read /etc/brewblox/secrets.json failed", "[PATH]", "/etc"},
		{"ip address", "peer 192.168.1.100 unreachable", "[IP]", "192.168.1.100"},
		{"port", "listen :8080 in use", "[PORT]", "8080"},
		{"credential", "auth failed password=hunter2", "[REDACTED]", "hunter2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeErrorMessage(tt.input)
			assert.Contains(t, got, tt.contains)
			assert.NotContains(t, got, tt.excludes)
		})
	}
}

func TestSanitizeEmptyMessage(t *testing.T) {
	assert.Equal(t, "", sanitizeErrorMessage(""))
}

func TestFromFeatureStateSanitizesError(t *testing.T) {
	err := stderrors.New("dial mqtt://broker.local:1883 with password=secret failed")
	status := FromFeatureState("eventbus", feature.StateFailed, err)

	assert.NotContains(t, status.Message, "secret")
	assert.NotContains(t, status.Message, "broker.local")
}
