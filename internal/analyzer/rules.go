package analyzer

import (
	"regexp"

	"github.com/melihmucuk/leash/internal/shellparse"
)

// extractFunc returns the arguments of a dangerous command that name paths it
// modifies.
type extractFunc func(args []string) []string

// dangerousCommands maps each filesystem-modifying command to how its target
// paths are read from its arguments.
var dangerousCommands = map[string]extractFunc{
	"rm":       allOperands(nil),
	"rmdir":    allOperands(nil),
	"unlink":   allOperands(nil),
	"shred":    allOperands(flagSet("-n", "--iterations", "-s", "--size", "--random-source")),
	"chmod":    allOperands(nil),
	"chown":    allOperands(nil),
	"chgrp":    allOperands(nil),
	"truncate": allOperands(flagSet("-s", "--size", "-r", "--reference")),
	"ln":       allOperands(flagSet("-S", "--suffix")),
	"mv":       destinationOperand,
	"cp":       destinationOperand,
	"dd":       ddOutput,
}

// compoundMatch carries what a compound rule needs beyond its own segment.
type compoundMatch struct {
	segments []shellparse.Segment
	index    int
	command  shellparse.Command
	commands map[string]extractFunc
}

type compoundRule struct {
	name    string
	pattern *regexp.Regexp
	extract func(match compoundMatch) []string
}

// compoundRules catch destructive effects reached through a traversal or
// batch utility, which the command name alone does not reveal.
var compoundRules = []compoundRule{
	{name: "find -delete", pattern: regexp.MustCompile(`\bfind\b.*\s-delete\b`), extract: findTargets},
	{name: "find -exec", pattern: regexp.MustCompile(`\bfind\b.*-(exec|execdir|ok|okdir)\s+(rm|mv|cp)\b`), extract: findTargets},
	{name: "xargs", pattern: regexp.MustCompile(`\bxargs\s+(-[^\s]+\s+([^-\s][^\s]*\s+)?)*(rm|mv|cp)\b`), extract: xargsTargets},
	{name: "rsync --delete", pattern: regexp.MustCompile(`\brsync\b.*--delete\b`), extract: rsyncTargets},
}

func flagSet(flags ...string) map[string]bool {
	set := make(map[string]bool, len(flags))
	for _, flag := range flags {
		set[flag] = true
	}
	return set
}
