package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/melihmucuk/leash/internal/analyzer"
	"github.com/melihmucuk/leash/internal/hook"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	workingDirectory string
	jsonOutput       bool
	explain          bool
}

func (options *checkOptions) register(command *cobra.Command) {
	command.Flags().StringVar(&options.workingDirectory, "cwd", "", "Working directory to guard (default: current directory)")
	command.Flags().BoolVar(&options.jsonOutput, "json", false, "Print the result as JSON")
}

func (options *checkOptions) resolveWorkingDirectory() (string, error) {
	if options.workingDirectory != "" {
		return options.workingDirectory, nil
	}
	currentDirectory, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory failed: %w", err)
	}
	return currentDirectory, nil
}

func newCheckCommand(application *app) *cobra.Command {
	options := &checkOptions{}
	command := &cobra.Command{
		Use:   "check [flags] -- COMMAND",
		Short: "Check a shell command without running it",
		Example: `  leash check -- rm -rf ~/Documents
  leash check --cwd ./project --explain 'find . -name "*.log" | xargs rm'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if err := application.loadConfig(); err != nil {
				return err
			}
			workingDirectory, err := options.resolveWorkingDirectory()
			if err != nil {
				return err
			}
			commandAnalyzer := application.newAnalyzer(workingDirectory)
			shellCommand := strings.Join(args, " ")

			result := commandAnalyzer.Analyze(shellCommand)
			if !options.explain {
				return printResult(command.OutOrStdout(), result, options.jsonOutput)
			}

			findings := commandAnalyzer.Explain(shellCommand)
			if options.jsonOutput {
				if err := writeJSON(command.OutOrStdout(), explanation{Result: result, Findings: findings}); err != nil {
					return err
				}
				return blockedExit(result)
			}
			printFindings(command.OutOrStdout(), findings)
			return printResult(command.OutOrStdout(), result, false)
		},
	}
	options.register(command)
	command.Flags().BoolVar(&options.explain, "explain", false, "List every extracted path and its classification")
	return command
}

func newCheckPathCommand(application *app) *cobra.Command {
	options := &checkOptions{}
	command := &cobra.Command{
		Use:   "check-path [flags] PATH",
		Short: "Check whether a file may be written or edited",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if err := application.loadConfig(); err != nil {
				return err
			}
			workingDirectory, err := options.resolveWorkingDirectory()
			if err != nil {
				return err
			}
			result := application.newAnalyzer(workingDirectory).ValidatePath(args[0])
			return printResult(command.OutOrStdout(), result, options.jsonOutput)
		},
	}
	options.register(command)
	return command
}

// printResult reports result and turns a block into exit status 2.
func printResult(output io.Writer, result analyzer.Result, jsonOutput bool) error {
	if jsonOutput {
		if err := writeJSON(output, result); err != nil {
			return err
		}
	} else if result.Blocked {
		fmt.Fprintf(output, "blocked: %s\n", result.Reason)
	} else {
		fmt.Fprintln(output, "allowed")
	}
	return blockedExit(result)
}

func blockedExit(result analyzer.Result) error {
	if result.Blocked {
		return exitError{code: hook.ExitBlocked}
	}
	return nil
}

type explanation struct {
	analyzer.Result
	Findings []analyzer.Finding `json:"findings"`
}

func printFindings(output io.Writer, findings []analyzer.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(output, "no path candidates")
		return
	}
	for _, finding := range findings {
		fmt.Fprintf(output, "%-12s %-16s %s\n", finding.Class, finding.Source, finding.Path)
	}
}

func writeJSON(output io.Writer, payload any) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
