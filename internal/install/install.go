// Package install registers the gate as a Claude Code Stop hook in the
// repository's .claude/settings.json.
//
// The settings file is owned by Claude Code and may carry fields this tool
// knows nothing about, so edits go through a raw JSON map and only the
// hooks entry for our command is touched.
package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const hookEvent = "Stop"

// SettingsPath returns the per-repository Claude Code settings location.
func SettingsPath(root string) string {
	return filepath.Join(root, ".claude", "settings.json")
}

// Plan describes a pending hook registration.
type Plan struct {
	SettingsPath     string
	Command          string
	AlreadyInstalled bool
}

// Status reports the current registration state.
type Status struct {
	SettingsPath  string
	SettingsFound bool
	Installed     bool
	Command       string
}

// BuildPlan inspects settings.json and plans the registration of command as
// a Stop hook.
func BuildPlan(root, command string) (Plan, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Plan{}, errors.New("hook command cannot be empty")
	}

	path := SettingsPath(root)
	settings, _, err := readSettings(path)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		SettingsPath:     path,
		Command:          command,
		AlreadyInstalled: hasHook(settings, command),
	}, nil
}

// Apply writes the planned hook entry. Unknown settings fields round-trip
// untouched. Applying an already-installed plan is a no-op.
func Apply(plan Plan) error {
	settings, _, err := readSettings(plan.SettingsPath)
	if err != nil {
		return err
	}
	if hasHook(settings, plan.Command) {
		return nil
	}

	appendHook(settings, plan.Command)
	return writeSettings(plan.SettingsPath, settings)
}

// Remove deletes the hook entry for command. It reports whether anything
// was removed.
func Remove(root, command string) (bool, error) {
	path := SettingsPath(root)
	settings, found, err := readSettings(path)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if !removeHook(settings, command) {
		return false, nil
	}
	if err := writeSettings(path, settings); err != nil {
		return false, err
	}
	return true, nil
}

// BuildStatus reports whether command is registered in settings.json.
func BuildStatus(root, command string) (Status, error) {
	path := SettingsPath(root)
	settings, found, err := readSettings(path)
	if err != nil {
		return Status{}, err
	}

	return Status{
		SettingsPath:  path,
		SettingsFound: found,
		Installed:     hasHook(settings, command),
		Command:       command,
	}, nil
}

func readSettings(path string) (map[string]any, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, false, nil
		}
		return nil, false, fmt.Errorf("read settings: %w", err)
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, false, fmt.Errorf("parse settings: %w", err)
	}
	if settings == nil {
		settings = map[string]any{}
	}
	return settings, true, nil
}

func hookEntries(settings map[string]any) []any {
	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		return nil
	}
	entries, ok := hooks[hookEvent].([]any)
	if !ok {
		return nil
	}
	return entries
}

func hasHook(settings map[string]any, command string) bool {
	for _, raw := range hookEntries(settings) {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if entry["type"] == "command" && entry["command"] == command {
			return true
		}
	}
	return false
}

func appendHook(settings map[string]any, command string) {
	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		hooks = map[string]any{}
		settings["hooks"] = hooks
	}
	entries, _ := hooks[hookEvent].([]any)
	hooks[hookEvent] = append(entries, map[string]any{
		"type":    "command",
		"command": command,
	})
}

func removeHook(settings map[string]any, command string) bool {
	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		return false
	}
	entries, ok := hooks[hookEvent].([]any)
	if !ok {
		return false
	}

	kept := make([]any, 0, len(entries))
	removed := false
	for _, raw := range entries {
		if entry, ok := raw.(map[string]any); ok && entry["type"] == "command" && entry["command"] == command {
			removed = true
			continue
		}
		kept = append(kept, raw)
	}
	if !removed {
		return false
	}

	if len(kept) == 0 {
		delete(hooks, hookEvent)
	} else {
		hooks[hookEvent] = kept
	}
	if len(hooks) == 0 {
		delete(settings, "hooks")
	}
	return true
}

func writeSettings(path string, settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	payload, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(append(payload, '\n')); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
