package health

import "time"

// New creates a status at the given level
func New(component, level, message string) Status {
	return Status{
		Component: component,
		Healthy:   level == StatusHealthy,
		Status:    level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate creates a status by aggregating sub-statuses:
// - If any sub-status is unhealthy, the aggregate is unhealthy
// - Otherwise, if any is degraded, the aggregate is degraded
// - An empty set is healthy
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return New(component, StatusHealthy, "No components configured")
	}

	hasUnhealthy := false
	hasDegraded := false
	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			hasUnhealthy = true
		} else if sub.IsDegraded() {
			hasDegraded = true
		}
	}

	var status Status
	switch {
	case hasUnhealthy:
		status = New(component, StatusUnhealthy, "One or more components are unhealthy")
	case hasDegraded:
		status = New(component, StatusDegraded, "One or more components are degraded")
	default:
		status = New(component, StatusHealthy, "All components are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)
	return status
}
