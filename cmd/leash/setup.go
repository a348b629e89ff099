package main

import (
	"fmt"

	"github.com/melihmucuk/leash/internal/hook"
	"github.com/melihmucuk/leash/internal/setupagent"
	"github.com/spf13/cobra"
)

func newSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "setup <claude-code|opencode>",
		Short:     "Install the leash hook for a coding agent",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(hook.ClaudeCode), string(hook.OpenCode)},
		RunE: func(command *cobra.Command, args []string) error {
			runtime, err := hook.ParseRuntime(args[0])
			if err != nil {
				return err
			}
			if err := setupagent.Run(runtime, command.OutOrStdout()); err != nil {
				return fmt.Errorf("setup failed: %w", err)
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the leash version",
		Args:  cobra.NoArgs,
		Run: func(command *cobra.Command, args []string) {
			fmt.Fprintf(command.OutOrStdout(), "leash %s\n", version)
		},
	}
}
