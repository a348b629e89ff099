package analyzer

import (
	"strings"

	"github.com/melihmucuk/leash/internal/shellparse"
)

var (
	copyValueFlags  = flagSet("-S", "--suffix")
	findExecActions = flagSet("-exec", "-execdir", "-ok", "-okdir")
	xargsValueFlags = flagSet(
		"-n", "-P", "-L", "-s", "-d", "-E", "-a",
		"--max-args", "--max-procs", "--max-lines", "--max-chars",
		"--delimiter", "--arg-file", "--process-slot-var",
	)
	rsyncValueFlags = flagSet(
		"-e", "--rsh", "-f", "--filter", "--exclude", "--include",
		"--exclude-from", "--include-from", "--files-from",
		"-T", "--temp-dir", "--backup-dir", "--partial-dir", "--log-file",
		"--password-file", "--rsync-path", "--chmod", "--chown",
		"-B", "--block-size", "--port", "--timeout",
		"--compare-dest", "--copy-dest", "--link-dest",
	)
)

// operands returns the non-flag arguments. Flags listed in valueFlags also
// consume the following argument; "--" ends flag parsing.
func operands(args []string, valueFlags map[string]bool) []string {
	result := make([]string, 0, len(args))
	flagsEnded := false
	for index := 0; index < len(args); index++ {
		argument := args[index]
		if !flagsEnded {
			if argument == "--" {
				flagsEnded = true
				continue
			}
			if strings.HasPrefix(argument, "-") && argument != "-" {
				if valueFlags[argument] {
					index++
				}
				continue
			}
		}
		result = append(result, argument)
	}
	return result
}

func allOperands(valueFlags map[string]bool) extractFunc {
	return func(args []string) []string {
		return operands(args, valueFlags)
	}
}

// destinationOperand picks the destination of cp or mv: the -t directory when
// given, otherwise the last operand. Sources are only read.
func destinationOperand(args []string) []string {
	for index := 0; index < len(args); index++ {
		argument := args[index]
		if argument == "--" {
			break
		}
		if argument == "--target-directory" {
			if index+1 < len(args) {
				return []string{args[index+1]}
			}
			return nil
		}
		if value, found := strings.CutPrefix(argument, "--target-directory="); found {
			return []string{value}
		}
		if len(argument) > 1 && argument[0] == '-' && argument[1] != '-' {
			if position := strings.IndexByte(argument[1:], 't'); position >= 0 {
				if value := argument[position+2:]; value != "" {
					return []string{value}
				}
				if index+1 < len(args) {
					return []string{args[index+1]}
				}
				return nil
			}
		}
	}

	paths := operands(args, copyValueFlags)
	if len(paths) == 0 {
		return nil
	}
	return paths[len(paths)-1:]
}

func ddOutput(args []string) []string {
	targets := make([]string, 0, 1)
	for _, argument := range args {
		if value, found := strings.CutPrefix(argument, "of="); found {
			targets = append(targets, value)
		}
	}
	return targets
}

// findRoots returns the starting points of a find invocation, "." when none
// is given.
func findRoots(args []string) []string {
	index := 0
	for index < len(args) {
		argument := args[index]
		if argument == "-H" || argument == "-L" || argument == "-P" || strings.HasPrefix(argument, "-O") {
			index++
			continue
		}
		if argument == "-D" {
			index += 2
			continue
		}
		break
	}

	roots := make([]string, 0, 1)
	for ; index < len(args); index++ {
		argument := args[index]
		if strings.HasPrefix(argument, "-") || argument == "(" || argument == "!" || argument == ")" {
			break
		}
		roots = append(roots, argument)
	}
	if len(roots) == 0 {
		return []string{"."}
	}
	return roots
}

// findExecTargets applies the rule of each dangerous command run through
// -exec style actions to its arguments, leaving out the {} placeholder.
func findExecTargets(args []string, commands map[string]extractFunc) []string {
	targets := make([]string, 0)
	for index := 0; index < len(args); index++ {
		if !findExecActions[args[index]] {
			continue
		}
		end := index + 1
		for end < len(args) && args[end] != ";" && args[end] != "+" {
			end++
		}
		inner := shellparse.Resolve(args[index+1 : end])
		if extract, ok := commands[inner.Name]; ok {
			targets = append(targets, extract(withoutPlaceholder(inner.Args, "{}"))...)
		}
		index = end
	}
	return targets
}

func findTargets(match compoundMatch) []string {
	if match.command.Name != "find" {
		return nil
	}
	targets := findRoots(match.command.Args)
	return append(targets, findExecTargets(match.command.Args, match.commands)...)
}

// xargsTargets returns the paths fed into xargs by the producing command of
// the pipe, plus any fixed paths given to the command xargs runs.
func xargsTargets(match compoundMatch) []string {
	if match.command.Name != "xargs" {
		return nil
	}

	args := match.command.Args
	placeholder := "{}"
	index := 0
	for index < len(args) && strings.HasPrefix(args[index], "-") {
		flag := args[index]
		index++
		if flag == "--" {
			break
		}
		switch {
		case flag == "-I":
			if index < len(args) {
				placeholder = args[index]
				index++
			}
		case strings.HasPrefix(flag, "-I"):
			placeholder = flag[2:]
		case strings.HasPrefix(flag, "--replace="):
			placeholder = strings.TrimPrefix(flag, "--replace=")
		case xargsValueFlags[flag]:
			index++
		}
	}

	targets := producerTargets(match)
	inner := shellparse.Resolve(args[min(index, len(args)):])
	if extract, ok := match.commands[inner.Name]; ok {
		targets = append(targets, extract(withoutPlaceholder(inner.Args, placeholder))...)
	}
	return targets
}

// producerTargets returns the paths listed by the commands piped into the
// current segment, following the pipeline back through filters such as grep.
func producerTargets(match compoundMatch) []string {
	var targets []string
	for index := match.index; index > 0 && match.segments[index].PipedFrom(); index-- {
		producer := shellparse.Resolve(match.segments[index-1].Words())
		switch producer.Name {
		case "find":
			targets = append(targets, findRoots(producer.Args)...)
		case "ls", "echo":
			targets = append(targets, operands(producer.Args, nil)...)
		}
	}
	return targets
}

// rsyncTargets returns the local destination of an rsync, and its sources when
// they are removed after transfer.
func rsyncTargets(match compoundMatch) []string {
	if match.command.Name != "rsync" {
		return nil
	}
	paths := operands(match.command.Args, rsyncValueFlags)
	if len(paths) == 0 {
		return nil
	}

	targets := make([]string, 0, len(paths))
	if destination := paths[len(paths)-1]; !isRemote(destination) {
		targets = append(targets, destination)
	}
	if hasFlag(match.command.Args, "--remove-source-files") {
		for _, source := range paths[:len(paths)-1] {
			if !isRemote(source) {
				targets = append(targets, source)
			}
		}
	}
	return targets
}

func isRemote(operand string) bool {
	if strings.HasPrefix(operand, "rsync://") || strings.Contains(operand, "::") {
		return true
	}
	colon := strings.IndexByte(operand, ':')
	return colon > 0 && !strings.Contains(operand[:colon], "/")
}

func hasFlag(args []string, name string) bool {
	for _, argument := range args {
		if argument == "--" {
			return false
		}
		if argument == name {
			return true
		}
	}
	return false
}

func withoutPlaceholder(args []string, placeholder string) []string {
	if placeholder == "" {
		return args
	}
	result := make([]string, 0, len(args))
	for _, argument := range args {
		if !strings.Contains(argument, placeholder) {
			result = append(result, argument)
		}
	}
	return result
}
