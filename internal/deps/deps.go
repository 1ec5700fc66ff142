// Package deps declares the external tools tract drives and reports their
// availability. Stage actions assume the binaries exist; the doctor command
// and preflight checks use this package to say so before anything runs.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"tract/internal/config"
)

// Requirement defines an external dependency tract relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConfig lists the stage tool requirements with the configured binaries.
// The sampling tool is optional because runs launched with the flag off never
// invoke it.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "eddy_correct",
			Command:     cfg.Tools.EddyCorrect,
			Description: "eddy-current correction",
		},
		{
			Name:        "bet",
			Command:     cfg.Tools.Bet,
			Description: "brain extraction",
		},
		{
			Name:        "dtifit",
			Command:     cfg.Tools.Dtifit,
			Description: "diffusion tensor fitting",
		},
		{
			Name:        "bedpostx",
			Command:     cfg.Tools.Bedpostx,
			Description: "fiber orientation sampling",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Available entries carry the resolved path in Detail.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Detail = resolved
		results = append(results, status)
	}
	return results
}
