package main

import (
	"github.com/melihmucuk/leash/internal/audit"
	"github.com/melihmucuk/leash/internal/config"
	"github.com/melihmucuk/leash/internal/hook"
	"github.com/spf13/cobra"
)

func newHookCommand(application *app) *cobra.Command {
	return &cobra.Command{
		Use:       "hook <claude-code|opencode>",
		Short:     "Decide on one agent tool call read from stdin",
		Long:      "Reads a tool call payload from stdin. Exits 0 to allow, 2 to block with the reason on stderr, 1 on a malformed payload.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(hook.ClaudeCode), string(hook.OpenCode)},
		RunE: func(command *cobra.Command, args []string) error {
			runtime, err := hook.ParseRuntime(args[0])
			if err != nil {
				return err
			}
			if err := application.loadConfig(); err != nil {
				log.Warn("using default config: %v", err)
				application.config = config.Config{}
			}

			handler := &hook.Handler{
				NewGuard: func(workingDirectory string) hook.Guard {
					return application.newAnalyzer(workingDirectory)
				},
				Stderr: command.ErrOrStderr(),
			}
			if application.config.AuditEnabled() {
				handler.Recorder = audit.FileRecorder{Path: application.config.AuditPath()}
			}

			if exitCode := handler.Run(runtime, command.InOrStdin()); exitCode != hook.ExitAllow {
				return exitError{code: exitCode}
			}
			return nil
		},
	}
}
