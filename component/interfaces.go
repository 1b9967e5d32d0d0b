package component

import "context"

// HealthStatus is the coarse health of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	// StatusDegraded means the component works but reports a problem, such
	// as a tracker holding leaked resources.
	StatusDegraded HealthStatus = "degraded"
)

// Health is a component's answer to a health probe.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Healthy reports a working component.
func Healthy(name, msg string) Health {
	return Health{Name: name, Status: StatusHealthy, Message: msg}
}

// Degraded reports a working component with a problem worth surfacing.
func Degraded(name, msg string) Health {
	return Health{Name: name, Status: StatusDegraded, Message: msg}
}

// Unhealthy reports a component that cannot serve, with err as the reason.
func Unhealthy(name string, err error) Health {
	h := Health{Name: name, Status: StatusUnhealthy}
	if err != nil {
		h.Message = err.Error()
	}
	return h
}

// Component is a part of the runtime with a create/dispose lifecycle.
type Component interface {
	// Name is the unique registry key.
	Name() string
	// Start creates the component.
	Start(ctx context.Context) error
	// Stop disposes the component.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a component's line in the startup summary.
type Description struct {
	// Name defaults to the component's Name().
	Name string
	// Type groups components, e.g. "tracker" or "domain".
	Type string
	// Details is a one-liner such as "3 units, 12 registrations".
	Details string
}

// Describable components describe themselves in the startup summary.
type Describable interface {
	Describe() Description
}
