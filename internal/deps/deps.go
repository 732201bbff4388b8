// Package deps verifies the external tools photoscan shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/config"
)

// Requirement defines an external binary the tool relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of one requirement.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// ForConfig lists the binaries the given configuration will invoke.
func ForConfig(cfg *config.Config) []Requirement {
	binary := "scanimage"
	if cfg != nil && strings.TrimSpace(cfg.Scanner.ScanimageBinary) != "" {
		binary = strings.TrimSpace(cfg.Scanner.ScanimageBinary)
	}
	return []Requirement{
		{
			Name:        "SANE frontend",
			Command:     binary,
			Description: "performs all scanner captures; install sane-utils",
		},
	}
}

// Check looks every requirement up on PATH.
func Check(requirements []Requirement) []Status {
	statuses := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{Requirement: req}
		command := strings.TrimSpace(req.Command)
		switch {
		case command == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(command); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found on PATH", command)
			} else {
				status.Available = true
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// FirstMissing returns the first unavailable required binary, if any.
func FirstMissing(statuses []Status) (Status, bool) {
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			return status, true
		}
	}
	return Status{}, false
}
