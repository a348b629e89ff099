package hook

import (
	"fmt"
	"io"
	"os"

	"github.com/melihmucuk/leash/internal/analyzer"
	"github.com/melihmucuk/leash/internal/audit"
	"github.com/melihmucuk/leash/internal/logger"
)

var log = logger.New("hook")

const (
	ExitAllow     = 0
	ExitMalformed = 1
	ExitBlocked   = 2
)

// Guard is the part of the command analyzer a hook needs.
type Guard interface {
	Analyze(command string) analyzer.Result
	ValidatePath(path string) analyzer.Result
}

// Recorder stores blocked decisions.
type Recorder interface {
	Record(entry audit.Entry) (audit.Entry, error)
}

type Handler struct {
	// NewGuard builds a guard rooted at a working directory.
	NewGuard func(workingDirectory string) Guard
	Recorder Recorder
	Stderr   io.Writer
}

func NewHandler(newGuard func(workingDirectory string) Guard, recorder Recorder) *Handler {
	return &Handler{NewGuard: newGuard, Recorder: recorder, Stderr: os.Stderr}
}

// Run reads one payload from stdin, decides on it and returns the process
// exit code. The block message goes to stderr.
func (handler *Handler) Run(runtime Runtime, stdin io.Reader) int {
	raw, err := io.ReadAll(stdin)
	if err != nil {
		log.Debug("read payload: %v", err)
		fmt.Fprintln(handler.stderr(), "Failed to parse input JSON")
		return ExitMalformed
	}
	request, err := Parse(runtime, raw)
	if err != nil {
		log.Debug("%v", err)
		fmt.Fprintln(handler.stderr(), "Failed to parse input JSON")
		return ExitMalformed
	}

	request = withWorkingDirectory(request)
	result := handler.Decide(request)
	if !result.Blocked {
		return ExitAllow
	}
	handler.record(request, result)
	fmt.Fprintln(handler.stderr(), BlockMessage(request, result))
	return ExitBlocked
}

// Decide analyzes request. Ignored tools are always allowed.
func (handler *Handler) Decide(request Request) analyzer.Result {
	if request.Kind == KindIgnored {
		return analyzer.Result{}
	}
	request = withWorkingDirectory(request)
	guard := handler.NewGuard(request.WorkingDirectory)
	if request.Kind == KindCommand {
		return guard.Analyze(request.Target)
	}
	return guard.ValidatePath(request.Target)
}

// withWorkingDirectory falls back to the process directory when the payload
// carries none.
func withWorkingDirectory(request Request) Request {
	if request.WorkingDirectory != "" {
		return request
	}
	currentDirectory, err := os.Getwd()
	if err != nil {
		log.Warn("no working directory in payload: %v", err)
		return request
	}
	request.WorkingDirectory = currentDirectory
	return request
}

// BlockMessage renders the message shown to the agent for a blocked request.
func BlockMessage(request Request, result analyzer.Result) string {
	marker := ""
	if request.Runtime == ClaudeCode {
		marker = "🚫 "
	}
	if request.Kind == KindFile {
		return fmt.Sprintf(
			"%sFile operation blocked: %s\nReason: %s\nWorking directory: %s\nAction: Guide the user to perform this operation manually.",
			marker, request.Target, result.Reason, request.WorkingDirectory,
		)
	}
	return fmt.Sprintf(
		"%sCommand blocked: %s\nReason: %s\nWorking directory: %s\nAction: Guide the user to run the command manually.",
		marker, request.Target, result.Reason, request.WorkingDirectory,
	)
}

func (handler *Handler) record(request Request, result analyzer.Result) {
	if handler.Recorder == nil {
		return
	}
	_, err := handler.Recorder.Record(audit.Entry{
		Runtime:          string(request.Runtime),
		Tool:             request.Tool,
		Target:           request.Target,
		WorkingDirectory: request.WorkingDirectory,
		Reason:           result.Reason,
	})
	if err != nil {
		log.Warn("audit: %v", err)
	}
}

func (handler *Handler) stderr() io.Writer {
	if handler.Stderr == nil {
		return os.Stderr
	}
	return handler.Stderr
}
