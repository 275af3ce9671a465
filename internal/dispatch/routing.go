package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/planflow/planflow/internal/contract"
)

// DefaultRoleRuntimes maps each executor role to the runtime its jobs run
// on when the workspace has no routing override.
var DefaultRoleRuntimes = map[contract.Role]string{
	contract.RoleOrchestrator: "cursor",
	contract.RolePlanCoder:    "opencode",
	contract.RolePlanReviewer: "cursor",
	contract.RolePlanFixer:    "opencode",
}

type routingConfig struct {
	Roles map[string]string `json:"roles"`
}

// ExecutorRoleForCommand picks the role responsible for a workflow command.
// finish-code belongs to whoever produced the code under review: the fixer
// when the plan is fixing, the coder otherwise.
func ExecutorRoleForCommand(phase string, command contract.Command) contract.Role {
	switch command {
	case contract.CommandCode:
		return contract.RolePlanCoder
	case contract.CommandFix:
		return contract.RolePlanFixer
	case contract.CommandReview, contract.CommandDone, contract.CommandVerify:
		return contract.RolePlanReviewer
	case contract.CommandFinishCode:
		if phase == string(contract.PhaseFixing) {
			return contract.RolePlanFixer
		}
		return contract.RolePlanCoder
	}
	return contract.RoleOrchestrator
}

// ResolveExecutorRuntime returns the runtime for a role, honoring the
// workspace override file .wf/routing.runtimes.json when present.
func ResolveExecutorRuntime(cwd string, role contract.Role) (string, error) {
	path := filepath.Join(cwd, ".wf", "routing.runtimes.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultRoleRuntimes[role], nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read routing config: %w", err)
	}

	var cfg routingConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("failed to parse routing config: %w", err)
	}
	if configured := cfg.Roles[string(role)]; configured != "" {
		return configured, nil
	}
	return DefaultRoleRuntimes[role], nil
}
