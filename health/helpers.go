package health

import "time"

func newStatus(feature, level, message string) Status {
	return Status{
		Feature:   feature,
		Healthy:   level == levelHealthy,
		Status:    level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a new healthy status
func NewHealthy(feature, message string) Status {
	return newStatus(feature, levelHealthy, message)
}

// NewDegraded creates a new degraded status
func NewDegraded(feature, message string) Status {
	return newStatus(feature, levelDegraded, message)
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(feature, message string) Status {
	return newStatus(feature, levelUnhealthy, message)
}

// severity ranks status levels for aggregation, worst last
func severity(s Status) int {
	switch {
	case s.IsUnhealthy():
		return 2
	case s.IsDegraded():
		return 1
	default:
		return 0
	}
}

// Aggregate combines sub-statuses into a single worst-case status:
// any unhealthy sub-status makes the aggregate unhealthy, otherwise any
// degraded one makes it degraded, otherwise it is healthy.
func Aggregate(feature string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(feature, "No features to aggregate")
	}

	worst := 0
	for _, sub := range subStatuses {
		if rank := severity(sub); rank > worst {
			worst = rank
		}
	}

	var status Status
	switch worst {
	case 2:
		status = NewUnhealthy(feature, "One or more features are unhealthy")
	case 1:
		status = NewDegraded(feature, "One or more features are degraded")
	default:
		status = NewHealthy(feature, "All features are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)
	return status
}
