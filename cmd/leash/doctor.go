package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/melihmucuk/leash/internal/audit"
	"github.com/melihmucuk/leash/internal/hook"
	"github.com/melihmucuk/leash/internal/setupagent"
	"github.com/spf13/cobra"
)

type doctorCheck struct {
	name    string
	ok      bool
	details string
}

func newDoctorCommand(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the leash installation",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			return runDoctor(application, command.OutOrStdout(), command.ErrOrStderr())
		},
	}
}

func runDoctor(application *app, output io.Writer, errorOutput io.Writer) error {
	checks := []doctorCheck{checkConfig(application)}
	if checks[0].ok {
		checks = append(checks, checkAuditStore(application))
	}
	checks = append(checks, checkAnalyzer(application), checkClaudeCodeHook())

	hasFailure := false
	for _, check := range checks {
		status := "PASS"
		if !check.ok {
			status = "FAIL"
			hasFailure = true
		}
		fmt.Fprintf(output, "[%s] %s: %s\n", status, check.name, check.details)
	}
	if hasFailure {
		fmt.Fprintln(errorOutput, "")
		fmt.Fprintln(errorOutput, "leash doctor found issues.")
		fmt.Fprintln(errorOutput, "Fix the failing checks and rerun: leash doctor")
		return errors.New("one or more doctor checks failed")
	}
	fmt.Fprintln(output, "")
	fmt.Fprintln(output, "leash doctor passed.")
	return nil
}

func checkConfig(application *app) doctorCheck {
	if err := application.loadConfig(); err != nil {
		return doctorCheck{name: "config", ok: false, details: err.Error()}
	}
	if _, err := os.Stat(application.config.Path); err != nil {
		return doctorCheck{name: "config", ok: true, details: fmt.Sprintf("no config at %s, using defaults", application.config.Path)}
	}
	return doctorCheck{
		name:    "config",
		ok:      true,
		details: fmt.Sprintf("%s (%d allow paths, %d extra commands)", application.config.Path, len(application.config.AllowPaths), len(application.config.ExtraCommands)),
	}
}

func checkAuditStore(application *app) doctorCheck {
	if !application.config.AuditEnabled() {
		return doctorCheck{name: "audit log", ok: true, details: "disabled"}
	}
	path := application.config.AuditPath()
	if path == "" {
		path = audit.DefaultPath()
	}
	store, err := audit.Open(path)
	if err != nil {
		return doctorCheck{name: "audit log", ok: false, details: err.Error()}
	}
	defer store.Close()
	return doctorCheck{name: "audit log", ok: true, details: path}
}

// checkAnalyzer runs one known-bad and one known-good command through the
// configured analyzer.
func checkAnalyzer(application *app) doctorCheck {
	workingDirectory, err := os.MkdirTemp("", "leash-doctor-")
	if err != nil {
		return doctorCheck{name: "analyzer", ok: false, details: err.Error()}
	}
	defer os.RemoveAll(workingDirectory)

	commandAnalyzer := application.newAnalyzer(workingDirectory)
	if result := commandAnalyzer.Analyze("rm -rf ./build"); result.Blocked {
		return doctorCheck{name: "analyzer", ok: false, details: "command inside the working directory was blocked: " + result.Reason}
	}
	if result := commandAnalyzer.ValidatePath("/etc/leash-doctor"); !result.Blocked {
		return doctorCheck{name: "analyzer", ok: false, details: "/etc is allowed, check allow_paths"}
	}
	return doctorCheck{name: "analyzer", ok: true, details: "blocks writes outside the working directory"}
}

func checkClaudeCodeHook() doctorCheck {
	settingsPath, err := setupagent.ClaudeCodeSettingsPath()
	if err != nil {
		return doctorCheck{name: "claude-code hook", ok: false, details: err.Error()}
	}
	raw, err := os.ReadFile(settingsPath)
	if err != nil {
		return doctorCheck{name: "claude-code hook", ok: true, details: "not installed (run leash setup claude-code to enable)"}
	}
	if !strings.Contains(string(raw), " hook "+string(hook.ClaudeCode)) {
		return doctorCheck{name: "claude-code hook", ok: true, details: "not installed (run leash setup claude-code to enable)"}
	}
	return doctorCheck{name: "claude-code hook", ok: true, details: "installed in " + settingsPath}
}
