package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/melihmucuk/leash/internal/analyzer"
	"github.com/melihmucuk/leash/internal/config"
	"github.com/melihmucuk/leash/internal/logger"
	"github.com/melihmucuk/leash/internal/pathguard"
	"github.com/spf13/cobra"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

var version = "dev"

var log = logger.New("leash")

// exitError carries a non-zero exit code that is not a failure of leash
// itself, such as a blocked command.
type exitError struct {
	code int
}

func (err exitError) Error() string {
	return fmt.Sprintf("exit status %d", err.code)
}

type app struct {
	configPath string
	colored    bool
	config     config.Config
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	rootCommand := newRootCommand(&app{})
	rootCommand.SetArgs(args)
	rootCommand.SetIn(stdin)
	rootCommand.SetOut(stdout)
	rootCommand.SetErr(stderr)

	err := rootCommand.Execute()
	if err == nil {
		return exitSuccess
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(stderr, "leash: %v\n", err)
	return exitFailure
}

func newRootCommand(application *app) *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   "leash",
		Short: "Keep coding agents inside their working directory",
		Long: `leash checks the shell commands and file edits of coding agents before
they run, and blocks anything that would modify files outside the
working directory.

Hook an agent up with:
  leash setup claude-code
  leash setup opencode`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(command *cobra.Command, args []string) {
			logger.SetOutput(command.ErrOrStderr())
			logger.SetColored(application.colored)
			application.syncConfigFlagToEnv()
		},
	}
	rootCommand.PersistentFlags().StringVar(&application.configPath, "config", "", "Config file (default: ~/.config/leash/config.yaml)")
	rootCommand.PersistentFlags().BoolVar(&application.colored, "color", false, "Color log output")

	rootCommand.AddCommand(
		newHookCommand(application),
		newCheckCommand(application),
		newCheckPathCommand(application),
		newAuditCommand(application),
		newSetupCommand(),
		newDoctorCommand(application),
		newVersionCommand(),
	)
	return rootCommand
}

func (application *app) syncConfigFlagToEnv() {
	path := strings.TrimSpace(application.configPath)
	if path == "" {
		return
	}
	_ = os.Setenv(config.EnvConfigPath, path)
}

// loadConfig reads the user config and applies its log level.
func (application *app) loadConfig() error {
	loaded, err := config.Load(application.configPath)
	if err != nil {
		return err
	}
	application.config = loaded
	logger.SetLevelFromString(loaded.LogLevelName())
	return nil
}

func (application *app) analyzerOptions() []analyzer.Option {
	return []analyzer.Option{
		analyzer.WithValidatorOptions(pathguard.WithAllowPaths(application.config.AllowPaths...)),
		analyzer.WithExtraCommands(application.config.ExtraCommands...),
	}
}

func (application *app) newAnalyzer(workingDirectory string) *analyzer.CommandAnalyzer {
	return analyzer.New(workingDirectory, application.analyzerOptions()...)
}
