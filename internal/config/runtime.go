package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RuntimeConfig is the per-workspace toggle file at .wf/runtime.json. It
// gates whether workflow commands publish follow-up jobs to the queue.
type RuntimeConfig struct {
	Version          int  `json:"version"`
	Distributed      bool `json:"distributed"`
	AutoStartWorkers bool `json:"auto_start_workers"`
}

// RuntimePatch carries the fields WriteRuntimeConfig may change.
type RuntimePatch struct {
	Distributed      *bool
	AutoStartWorkers *bool
}

// EnvDistributed is the environment variable that overrides the runtime
// config file; "1" forces distributed mode on, any other value forces it
// off.
const EnvDistributed = "WF_DISTRIBUTED"

func runtimeConfigPath(cwd string) string {
	return filepath.Join(cwd, ".wf", "runtime.json")
}

// ReadRuntimeConfig loads .wf/runtime.json, falling back to the disabled
// defaults when the file is absent. Unknown or missing fields read as
// false.
func ReadRuntimeConfig(cwd string) (RuntimeConfig, error) {
	defaults := RuntimeConfig{Version: 1}

	data, err := os.ReadFile(runtimeConfigPath(cwd))
	if os.IsNotExist(err) {
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("failed to read runtime config: %w", err)
	}

	var parsed RuntimeConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return defaults, fmt.Errorf("failed to parse runtime config: %w", err)
	}
	parsed.Version = 1
	return parsed, nil
}

// WriteRuntimeConfig applies the patch on top of the current config and
// persists the result, creating .wf/ if needed.
func WriteRuntimeConfig(cwd string, patch RuntimePatch) (RuntimeConfig, error) {
	current, err := ReadRuntimeConfig(cwd)
	if err != nil {
		return current, err
	}

	if patch.Distributed != nil {
		current.Distributed = *patch.Distributed
	}
	if patch.AutoStartWorkers != nil {
		current.AutoStartWorkers = *patch.AutoStartWorkers
	}

	path := runtimeConfigPath(cwd)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return current, fmt.Errorf("failed to create .wf directory: %w", err)
	}
	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return current, fmt.Errorf("failed to marshal runtime config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return current, fmt.Errorf("failed to write runtime config: %w", err)
	}
	return current, nil
}

// IsDistributedEnabled reports whether workflow commands should publish
// jobs. The environment variable wins over the config file when set.
func IsDistributedEnabled(cwd string) (bool, error) {
	if value, ok := os.LookupEnv(EnvDistributed); ok {
		return value == "1", nil
	}
	cfg, err := ReadRuntimeConfig(cwd)
	if err != nil {
		return false, err
	}
	return cfg.Distributed, nil
}

// ShouldAutoStartWorkers resolves the auto-start flag, preferring an
// explicit caller choice over the config file.
func ShouldAutoStartWorkers(cwd string, explicit *bool) (bool, error) {
	if explicit != nil {
		return *explicit, nil
	}
	cfg, err := ReadRuntimeConfig(cwd)
	if err != nil {
		return false, err
	}
	return cfg.AutoStartWorkers, nil
}
