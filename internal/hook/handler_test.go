package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/melihmucuk/leash/internal/analyzer"
	"github.com/melihmucuk/leash/internal/audit"
)

type recordingStore struct {
	entries []audit.Entry
	err     error
}

func (store *recordingStore) Record(entry audit.Entry) (audit.Entry, error) {
	if store.err != nil {
		return audit.Entry{}, store.err
	}
	store.entries = append(store.entries, entry)
	return entry, nil
}

func newTestHandler(recorder Recorder) (*Handler, *bytes.Buffer, *[]string) {
	stderr := &bytes.Buffer{}
	roots := make([]string, 0)
	handler := &Handler{
		NewGuard: func(workingDirectory string) Guard {
			roots = append(roots, workingDirectory)
			return analyzer.New(workingDirectory)
		},
		Recorder: recorder,
		Stderr:   stderr,
	}
	return handler, stderr, &roots
}

func claudeCodePayloadJSON(t *testing.T, tool string, input map[string]string, cwd string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"tool_name": tool, "tool_input": input, "cwd": cwd})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(raw)
}

func TestRunClaudeCode(t *testing.T) {
	t.Parallel()

	workingDirectory := t.TempDir()
	tests := []struct {
		name     string
		tool     string
		input    map[string]string
		exitCode int
		message  string
	}{
		{"bash allowed", "Bash", map[string]string{"command": "rm -rf ./build"}, ExitAllow, ""},
		{"bash blocked", "Bash", map[string]string{"command": "rm -rf /etc/leash-test"}, ExitBlocked, "🚫 Command blocked: rm -rf /etc/leash-test\nReason: Command \"rm\" targets path outside working directory: /etc/leash-test\nWorking directory: " + workingDirectory + "\nAction: Guide the user to run the command manually.\n"},
		{"write allowed", "Write", map[string]string{"file_path": workingDirectory + "/main.go"}, ExitAllow, ""},
		{"write blocked", "Write", map[string]string{"file_path": "/etc/passwd"}, ExitBlocked, "🚫 File operation blocked: /etc/passwd\nReason: Path outside working directory: /etc/passwd\nWorking directory: " + workingDirectory + "\nAction: Guide the user to perform this operation manually.\n"},
		{"edit blocked", "Edit", map[string]string{"file_path": "/etc/hosts"}, ExitBlocked, "File operation blocked"},
		{"multi edit blocked", "MultiEdit", map[string]string{"file_path": "/etc/hosts"}, ExitBlocked, "File operation blocked"},
		{"notebook blocked", "NotebookEdit", map[string]string{"notebook_path": "/etc/book.ipynb"}, ExitBlocked, "File operation blocked"},
		{"empty file path", "Write", map[string]string{}, ExitAllow, ""},
		{"other tool", "Read", map[string]string{"file_path": "/etc/passwd"}, ExitAllow, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, stderr, _ := newTestHandler(nil)
			payload := claudeCodePayloadJSON(t, tt.tool, tt.input, workingDirectory)
			exitCode := handler.Run(ClaudeCode, strings.NewReader(payload))
			if exitCode != tt.exitCode {
				t.Fatalf("expected exit %d, got %d (stderr %q)", tt.exitCode, exitCode, stderr.String())
			}
			if tt.message == "" {
				if stderr.Len() != 0 {
					t.Fatalf("expected no output, got %q", stderr.String())
				}
				return
			}
			if strings.HasSuffix(tt.message, "\n") {
				if stderr.String() != tt.message {
					t.Fatalf("unexpected message:\n%s\nwant:\n%s", stderr.String(), tt.message)
				}
				return
			}
			if !strings.Contains(stderr.String(), tt.message) {
				t.Fatalf("expected %q in %q", tt.message, stderr.String())
			}
		})
	}
}

func TestRunOpenCode(t *testing.T) {
	t.Parallel()

	workingDirectory := t.TempDir()
	tests := []struct {
		name     string
		payload  string
		exitCode int
	}{
		{"bash command", `{"tool":"bash","args":{"command":"rm -rf /etc/x"},"directory":"` + workingDirectory + `"}`, ExitBlocked},
		{"shell script", `{"tool":"shell","args":{"script":"mv ./a /etc/a"},"directory":"` + workingDirectory + `"}`, ExitBlocked},
		{"execute allowed", `{"tool":"execute","args":{"command":"ls -la"},"directory":"` + workingDirectory + `"}`, ExitAllow},
		{"write path", `{"tool":"write","args":{"path":"/etc/hosts"},"directory":"` + workingDirectory + `"}`, ExitBlocked},
		{"edit file path", `{"tool":"edit","args":{"filePath":"/etc/hosts"},"directory":"` + workingDirectory + `"}`, ExitBlocked},
		{"patch inside", `{"tool":"patch","args":{"path":"./src/a.go"},"directory":"` + workingDirectory + `"}`, ExitAllow},
		{"read ignored", `{"tool":"read","args":{"path":"/etc/hosts"},"directory":"` + workingDirectory + `"}`, ExitAllow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, stderr, _ := newTestHandler(nil)
			if exitCode := handler.Run(OpenCode, strings.NewReader(tt.payload)); exitCode != tt.exitCode {
				t.Fatalf("expected exit %d, got %d (stderr %q)", tt.exitCode, exitCode, stderr.String())
			}
			if tt.exitCode == ExitBlocked && strings.HasPrefix(stderr.String(), "🚫") {
				t.Fatalf("opencode messages carry no marker: %q", stderr.String())
			}
		})
	}
}

func TestRunMalformedPayload(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{"", "not json", `{"tool_name": 5}`} {
		handler, stderr, roots := newTestHandler(nil)
		if exitCode := handler.Run(ClaudeCode, strings.NewReader(payload)); exitCode != ExitMalformed {
			t.Fatalf("expected exit %d for %q, got %d", ExitMalformed, payload, exitCode)
		}
		if stderr.String() != "Failed to parse input JSON\n" {
			t.Fatalf("unexpected stderr %q", stderr.String())
		}
		if len(*roots) != 0 {
			t.Fatalf("expected no analysis for malformed payload")
		}
	}
}

func TestRunRecordsBlockedDecisions(t *testing.T) {
	t.Parallel()

	workingDirectory := t.TempDir()
	store := &recordingStore{}
	handler, _, _ := newTestHandler(store)

	handler.Run(ClaudeCode, strings.NewReader(claudeCodePayloadJSON(t, "Bash", map[string]string{"command": "ls"}, workingDirectory)))
	handler.Run(ClaudeCode, strings.NewReader(claudeCodePayloadJSON(t, "Bash", map[string]string{"command": "rm /etc/x"}, workingDirectory)))

	if len(store.entries) != 1 {
		t.Fatalf("expected one recorded entry, got %+v", store.entries)
	}
	entry := store.entries[0]
	if entry.Runtime != "claude-code" || entry.Tool != "Bash" || entry.Target != "rm /etc/x" || entry.WorkingDirectory != workingDirectory {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Reason == "" {
		t.Fatalf("expected reason to be recorded")
	}
}

func TestRunAuditFailureKeepsVerdict(t *testing.T) {
	t.Parallel()

	handler, stderr, _ := newTestHandler(&recordingStore{err: errors.New("disk full")})
	payload := claudeCodePayloadJSON(t, "Bash", map[string]string{"command": "rm /etc/x"}, t.TempDir())
	if exitCode := handler.Run(ClaudeCode, strings.NewReader(payload)); exitCode != ExitBlocked {
		t.Fatalf("expected block despite audit failure, got %d", exitCode)
	}
	if !strings.Contains(stderr.String(), "Command blocked") {
		t.Fatalf("expected block message, got %q", stderr.String())
	}
}

func TestRunUsesPayloadWorkingDirectory(t *testing.T) {
	t.Parallel()

	workingDirectory := t.TempDir()
	handler, _, roots := newTestHandler(nil)
	handler.Run(ClaudeCode, strings.NewReader(claudeCodePayloadJSON(t, "Bash", map[string]string{"command": "rm ./a"}, workingDirectory)))
	if len(*roots) != 1 || (*roots)[0] != workingDirectory {
		t.Fatalf("expected analyzer rooted at %q, got %q", workingDirectory, *roots)
	}
}

func TestParseRuntime(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Runtime{"claude-code": ClaudeCode, " OpenCode ": OpenCode} {
		got, err := ParseRuntime(input)
		if err != nil || got != want {
			t.Fatalf("ParseRuntime(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseRuntime("cursor"); err == nil {
		t.Fatalf("expected error for unknown runtime")
	}
}
