package models

import "time"

const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthDisabled  = "disabled"
)

// HealthCheck aggregates per-backend statuses. Disabled backends do not
// count against the overall status.
type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func NewHealthCheck(services map[string]string) HealthCheck {
	status := HealthHealthy
	for _, s := range services {
		if s != HealthHealthy && s != HealthDisabled {
			status = HealthUnhealthy
			break
		}
	}
	return HealthCheck{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
	}
}

func (h HealthCheck) Healthy() bool { return h.Status == HealthHealthy }
