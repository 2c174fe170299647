// Package deps checks that the external programs a build shells out to
// are installed and usable.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an executable and whether a build can run without it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the outcome of checking one Requirement. Detail is empty
// when the command is available.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves each requirement's command on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = lookup(req)
	}
	return results
}

func lookup(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	switch _, err := exec.LookPath(status.Command); {
	case status.Command == "":
		status.Detail = "command not configured"
	case err != nil:
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
	default:
		status.Available = true
	}
	return status
}

// Summarize splits unavailable dependencies into required and optional
// names, preserving input order.
func Summarize(statuses []Status) (missing, optional []string) {
	for _, s := range statuses {
		switch {
		case s.Available:
		case s.Optional:
			optional = append(optional, s.Name)
		default:
			missing = append(missing, s.Name)
		}
	}
	return missing, optional
}
