package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/melihmucuk/leash/internal/audit"
	"github.com/spf13/cobra"
)

func newAuditCommand(application *app) *cobra.Command {
	var limit int
	var jsonOutput bool
	command := &cobra.Command{
		Use:   "audit",
		Short: "List recently blocked tool calls",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := application.loadConfig(); err != nil {
				return err
			}
			store, err := audit.Open(application.config.AuditPath())
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(limit)
			if err != nil {
				return fmt.Errorf("list audit entries failed: %w", err)
			}
			if jsonOutput {
				return writeJSON(command.OutOrStdout(), entries)
			}
			printAuditTable(command.OutOrStdout(), entries)
			return nil
		},
	}
	command.Flags().IntVar(&limit, "limit", 50, "Number of entries to show (max 500)")
	command.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return command
}

func printAuditTable(output io.Writer, entries []audit.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(output, "No blocked tool calls recorded.")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Time.Local().Format(time.DateTime),
			entry.Runtime,
			entry.Tool,
			entry.Target,
			entry.Reason,
		})
	}
	auditTable := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "RUNTIME", "TOOL", "TARGET", "REASON").
		Rows(rows...)
	fmt.Fprintln(output, auditTable.Render())
}
