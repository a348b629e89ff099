package hook

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Runtime string

const (
	ClaudeCode Runtime = "claude-code"
	OpenCode   Runtime = "opencode"
)

func Runtimes() []Runtime {
	return []Runtime{ClaudeCode, OpenCode}
}

func ParseRuntime(name string) (Runtime, error) {
	normalizedName := Runtime(strings.ToLower(strings.TrimSpace(name)))
	for _, runtime := range Runtimes() {
		if runtime == normalizedName {
			return runtime, nil
		}
	}
	return "", fmt.Errorf("unknown runtime %q (valid: claude-code, opencode)", name)
}

type RequestKind int

const (
	// KindIgnored marks tools leash does not guard.
	KindIgnored RequestKind = iota
	KindCommand
	KindFile
)

// Request is a tool invocation reduced to what the analyzer needs.
type Request struct {
	Runtime          Runtime
	Tool             string
	Kind             RequestKind
	Target           string
	WorkingDirectory string
}

type claudeCodePayload struct {
	ToolName  string `json:"tool_name"`
	ToolInput struct {
		Command      string `json:"command"`
		FilePath     string `json:"file_path"`
		NotebookPath string `json:"notebook_path"`
	} `json:"tool_input"`
	Cwd string `json:"cwd"`
}

var claudeCodeFileTools = map[string]bool{
	"Write":        true,
	"Edit":         true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// ParseClaudeCode decodes a Claude Code PreToolUse hook payload.
func ParseClaudeCode(raw []byte) (Request, error) {
	payload := claudeCodePayload{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Request{}, fmt.Errorf("decode claude-code payload: %w", err)
	}
	request := Request{Runtime: ClaudeCode, Tool: payload.ToolName, WorkingDirectory: payload.Cwd}
	switch {
	case payload.ToolName == "Bash":
		request.Kind = KindCommand
		request.Target = payload.ToolInput.Command
	case claudeCodeFileTools[payload.ToolName]:
		request.Kind = KindFile
		request.Target = firstNonEmpty(payload.ToolInput.FilePath, payload.ToolInput.NotebookPath)
	}
	return request, nil
}

type openCodePayload struct {
	Tool string `json:"tool"`
	Args struct {
		Command  string `json:"command"`
		Script   string `json:"script"`
		Path     string `json:"path"`
		FilePath string `json:"filePath"`
	} `json:"args"`
	Directory string `json:"directory"`
}

var (
	openCodeShellTools = map[string]bool{"execute": true, "bash": true, "shell": true}
	openCodeFileTools  = map[string]bool{"write": true, "edit": true, "patch": true}
)

// ParseOpenCode decodes the tool.execute.before payload forwarded by the
// OpenCode plugin shim.
func ParseOpenCode(raw []byte) (Request, error) {
	payload := openCodePayload{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Request{}, fmt.Errorf("decode opencode payload: %w", err)
	}
	request := Request{Runtime: OpenCode, Tool: payload.Tool, WorkingDirectory: payload.Directory}
	switch {
	case openCodeShellTools[payload.Tool]:
		request.Kind = KindCommand
		request.Target = firstNonEmpty(payload.Args.Command, payload.Args.Script)
	case openCodeFileTools[payload.Tool]:
		request.Kind = KindFile
		request.Target = firstNonEmpty(payload.Args.Path, payload.Args.FilePath)
	}
	return request, nil
}

func Parse(runtime Runtime, raw []byte) (Request, error) {
	switch runtime {
	case ClaudeCode:
		return ParseClaudeCode(raw)
	case OpenCode:
		return ParseOpenCode(raw)
	default:
		return Request{}, fmt.Errorf("unknown runtime %q", runtime)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
