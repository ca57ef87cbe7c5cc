package health

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorUpdateAndGet(t *testing.T) {
	m := NewMonitor()

	m.UpdateHealthy("eventbus", "connected")
	m.UpdateDegraded("scheduler", "slow tasks")
	m.UpdateUnhealthy("web", "bind failed")

	status, ok := m.Get("eventbus")
	require.True(t, ok)
	assert.True(t, status.IsHealthy())
	assert.Equal(t, "eventbus", status.Feature)

	_, ok = m.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, 3, m.Count())
	assert.ElementsMatch(t, []string{"eventbus", "scheduler", "web"}, m.ListFeatures())
}

func TestMonitorUpdateSetsNameAndTimestamp(t *testing.T) {
	m := NewMonitor()

	// Status with mismatched name and zero timestamp gets corrected
	m.Update("eventbus", Status{Status: "healthy", Healthy: true})

	status, ok := m.Get("eventbus")
	require.True(t, ok)
	assert.Equal(t, "eventbus", status.Feature)
	assert.False(t, status.Timestamp.IsZero())
}

func TestMonitorGetAllIsCopy(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("eventbus", "connected")

	all := m.GetAll()
	delete(all, "eventbus")

	_, ok := m.Get("eventbus")
	assert.True(t, ok, "mutating the returned map must not affect the monitor")
}

func TestMonitorRemoveAndClear(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("a", "ok")
	m.UpdateHealthy("b", "ok")

	m.Remove("a")
	assert.Equal(t, 1, m.Count())

	m.Clear()
	assert.Equal(t, 0, m.Count())
}

func TestMonitorAggregateHealth(t *testing.T) {
	m := NewMonitor()

	m.UpdateHealthy("eventbus", "connected")
	m.UpdateHealthy("scheduler", "running")
	assert.True(t, m.AggregateHealth("service").IsHealthy())

	m.UpdateDegraded("eventbus", "reconnecting")
	assert.True(t, m.AggregateHealth("service").IsDegraded())

	m.UpdateUnhealthy("scheduler", "dead")
	aggregate := m.AggregateHealth("service")
	assert.True(t, aggregate.IsUnhealthy())
	assert.Len(t, aggregate.SubStatuses, 2)
}

func TestMonitorConcurrentAccess(t *testing.T) {
	m := NewMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			m.UpdateHealthy(fmt.Sprintf("feature-%d", n), "ok")
		}(i)
		go func() {
			defer wg.Done()
			m.AggregateHealth("service")
			m.GetAll()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, m.Count())
}

func TestAggregateEmpty(t *testing.T) {
	status := Aggregate("service", nil)
	assert.True(t, status.IsHealthy())
}
