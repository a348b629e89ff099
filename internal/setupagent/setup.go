package setupagent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/melihmucuk/leash/internal/hook"
)

// ClaudeCodeMatcher selects the tools the PreToolUse hook guards.
const ClaudeCodeMatcher = "Bash|Write|Edit|MultiEdit|NotebookEdit"

// Run installs the leash hook for runtime and reports what it changed.
func Run(runtime hook.Runtime, out io.Writer) error {
	executable, err := Executable()
	if err != nil {
		return err
	}

	switch runtime {
	case hook.ClaudeCode:
		settingsPath, err := ClaudeCodeSettingsPath()
		if err != nil {
			return err
		}
		changed, err := InstallClaudeCode(settingsPath, executable)
		if err != nil {
			return err
		}
		report(out, changed, "Claude Code PreToolUse hook", settingsPath)
	case hook.OpenCode:
		pluginPath, err := OpenCodePluginPath()
		if err != nil {
			return err
		}
		changed, err := InstallOpenCode(pluginPath, executable)
		if err != nil {
			return err
		}
		report(out, changed, "OpenCode plugin", pluginPath)
	default:
		return fmt.Errorf("unknown runtime %q", runtime)
	}
	return nil
}

func report(out io.Writer, changed bool, what string, path string) {
	if changed {
		fmt.Fprintf(out, "Installed %s: %s\n", what, path)
	} else {
		fmt.Fprintf(out, "%s already installed: %s\n", what, path)
	}
	fmt.Fprintln(out, "Restart the agent session to activate leash.")
}

// Executable returns the resolved path of the running leash binary.
func Executable() (string, error) {
	executablePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve leash executable failed: %w", err)
	}
	if resolved, resolveErr := filepath.EvalSymlinks(executablePath); resolveErr == nil {
		executablePath = resolved
	}
	return executablePath, nil
}

func ClaudeCodeSettingsPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv("CLAUDE_CONFIG_DIR")); override != "" {
		return filepath.Join(override, "settings.json"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory failed: %w", err)
	}
	return filepath.Join(homeDir, ".claude", "settings.json"), nil
}

func OpenCodePluginPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory failed: %w", err)
	}
	return filepath.Join(homeDir, ".config", "opencode", "plugin", "leash.js"), nil
}

// HookCommand is the shell command an agent runs to consult leash.
func HookCommand(executable string, runtime hook.Runtime) string {
	quoted := executable
	if strings.ContainsAny(executable, " \t'\"$") {
		quoted = "'" + strings.ReplaceAll(executable, "'", `'\''`) + "'"
	}
	return quoted + " hook " + string(runtime)
}

// InstallClaudeCode adds the leash PreToolUse hook to the Claude Code settings
// at settingsPath, keeping every other setting. An existing leash hook is
// updated in place. It reports whether the file changed.
func InstallClaudeCode(settingsPath string, executable string) (bool, error) {
	settings := map[string]any{}
	original, err := os.ReadFile(settingsPath)
	switch {
	case err == nil:
		if len(bytes.TrimSpace(original)) > 0 {
			if decodeErr := json.Unmarshal(original, &settings); decodeErr != nil {
				return false, fmt.Errorf("parse %s failed: %w", settingsPath, decodeErr)
			}
		}
	case os.IsNotExist(err):
	default:
		return false, fmt.Errorf("read %s failed: %w", settingsPath, err)
	}

	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = map[string]any{}
	}
	preToolUse, _ := hooks["PreToolUse"].([]any)

	command := HookCommand(executable, hook.ClaudeCode)
	leashHook := map[string]any{"type": "command", "command": command}
	found := false
	for _, rawGroup := range preToolUse {
		group, ok := rawGroup.(map[string]any)
		if !ok {
			continue
		}
		groupHooks, _ := group["hooks"].([]any)
		for index, rawHook := range groupHooks {
			entry, ok := rawHook.(map[string]any)
			if !ok {
				continue
			}
			if existing, _ := entry["command"].(string); isLeashHook(existing, hook.ClaudeCode) {
				groupHooks[index] = leashHook
				group["matcher"] = ClaudeCodeMatcher
				found = true
			}
		}
	}
	if !found {
		preToolUse = append(preToolUse, map[string]any{
			"matcher": ClaudeCodeMatcher,
			"hooks":   []any{leashHook},
		})
	}
	hooks["PreToolUse"] = preToolUse
	settings["hooks"] = hooks

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return false, err
	}
	data = append(data, '\n')
	if bytes.Equal(data, original) {
		return false, nil
	}
	if err := writeFile(settingsPath, data); err != nil {
		return false, err
	}
	return true, nil
}

func isLeashHook(command string, runtime hook.Runtime) bool {
	fields := strings.Fields(command)
	if len(fields) < 3 || fields[len(fields)-2] != "hook" || fields[len(fields)-1] != string(runtime) {
		return false
	}
	binary := strings.Trim(strings.Join(fields[:len(fields)-2], " "), "'\"")
	return filepath.Base(binary) == "leash"
}

const openCodePluginTemplate = `import { spawnSync } from "node:child_process";

const LEASH = %s;

export const Leash = async ({ directory, client }) => ({
  event: async ({ event }) => {
    if (event.type === "session.created") {
      await client.tui.showToast({
        body: { message: "🔒 Leash active", variant: "info" },
      });
    }
  },
  "tool.execute.before": async (input, output) => {
    const payload = JSON.stringify({ tool: input.tool, args: output.args ?? {}, directory });
    const result = spawnSync(LEASH, ["hook", "opencode"], { input: payload, encoding: "utf-8" });
    if (result.status === 2) {
      throw new Error(result.stderr.trim());
    }
  },
});

export default Leash;
`

// InstallOpenCode writes the OpenCode plugin that forwards tool calls to
// leash. It reports whether the file changed.
func InstallOpenCode(pluginPath string, executable string) (bool, error) {
	quotedExecutable, err := json.Marshal(executable)
	if err != nil {
		return false, err
	}
	content := []byte(fmt.Sprintf(openCodePluginTemplate, quotedExecutable))
	if existing, readErr := os.ReadFile(pluginPath); readErr == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err := writeFile(pluginPath, content); err != nil {
		return false, err
	}
	return true, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s failed: %w", path, err)
	}
	return nil
}
