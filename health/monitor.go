package health

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// Monitor tracks the health of every feature in a service.
// All methods are safe for concurrent use.
type Monitor struct {
	mu      sync.RWMutex
	entries map[string]Status
}

// NewMonitor creates an empty health monitor
func NewMonitor() *Monitor {
	return &Monitor{entries: make(map[string]Status)}
}

// Update records the health status for a named feature.
// The status is normalized: its Feature field is forced to name, and a zero
// timestamp is replaced with the current time.
func (m *Monitor) Update(name string, status Status) {
	status.Feature = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = status
}

// UpdateHealthy records the named feature as healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateDegraded records the named feature as degraded
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// UpdateUnhealthy records the named feature as unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// Get returns the recorded status for a named feature
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, exists := m.entries[name]
	return status, exists
}

// GetAll returns a copy of every recorded status keyed by feature name
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.entries)
}

// AggregateHealth returns the worst-case status across all features,
// attributed to the service
func (m *Monitor) AggregateHealth(serviceName string) Status {
	m.mu.RLock()
	subStatuses := slices.Collect(maps.Values(m.entries))
	m.mu.RUnlock()

	return Aggregate(serviceName, subStatuses)
}

// ListFeatures returns the monitored feature names, sorted
func (m *Monitor) ListFeatures() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.entries))
}

// Count returns the number of monitored features
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Remove stops monitoring the named feature
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
}

// Clear removes every monitored feature
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
}
