package stage

import (
	"strings"

	"trueedits/internal/deps"
)

// Health summarizes the readiness of a workflow stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// ToolsHealth reports name as ready when every tool resolves on PATH.
func ToolsHealth(name string, tools ...string) Health {
	reqs := make([]deps.Requirement, 0, len(tools))
	for _, tool := range tools {
		reqs = append(reqs, deps.Requirement{Name: tool, Command: tool})
	}
	var missing []string
	for _, status := range deps.CheckBinaries(reqs) {
		if !status.Available {
			missing = append(missing, status.Detail)
		}
	}
	if len(missing) > 0 {
		return Unhealthy(name, strings.Join(missing, "; "))
	}
	return Healthy(name)
}
