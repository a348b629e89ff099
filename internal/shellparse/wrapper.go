package shellparse

import (
	"path"
	"regexp"
	"strings"
)

// Command is the effective command of a segment once assignments and wrapper
// commands are stripped. An empty Name means nothing is executed.
type Command struct {
	Name string
	Args []string
}

type wrapperSpec struct {
	valueFlags  map[string]bool
	lookupFlags map[string]bool
}

var assignmentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

var wrapperCommands = map[string]wrapperSpec{
	"sudo": {valueFlags: flagSet(
		"-u", "-g", "-h", "-p", "-C", "-D", "-r", "-t", "-U", "-T",
		"--user", "--group", "--host", "--prompt", "--close-from", "--chdir",
		"--role", "--type", "--other-user", "--command-timeout",
	)},
	"doas":    {valueFlags: flagSet("-u", "-C")},
	"env":     {valueFlags: flagSet("-u", "-C", "--unset", "--chdir")},
	"command": {lookupFlags: flagSet("-v", "-V")},
	"nice":    {valueFlags: flagSet("-n", "--adjustment")},
	"nohup":   {},
	"time":    {valueFlags: flagSet("-f", "-o", "--format", "--output")},
	"exec":    {valueFlags: flagSet("-a")},
}

// reservedWords open a compound command or negate a pipeline; the command
// they introduce follows them in the same segment.
var reservedWords = map[string]bool{
	"!": true, "{": true, "if": true, "then": true, "else": true, "elif": true,
	"do": true, "while": true, "until": true,
}

// Resolve strips leading VAR=VALUE assignments, reserved words, subshell
// parentheses and wrapper commands such as sudo, env and command (with their
// own flags) until the real command is reached. Command names given as paths
// are reduced to their base name.
func Resolve(words []string) Command {
	index := 0
	for index < len(words) {
		word := strings.TrimLeft(words[index], "(")
		if word == "" || reservedWords[word] || assignmentPattern.MatchString(word) {
			index++
			continue
		}
		wrapper, isWrapper := wrapperCommands[CommandName(word)]
		if !isWrapper {
			break
		}
		index++
		for index < len(words) {
			flag := words[index]
			if flag == "--" {
				index++
				break
			}
			if !strings.HasPrefix(flag, "-") {
				break
			}
			index++
			if wrapper.lookupFlags[flag] {
				return Command{}
			}
			if wrapper.valueFlags[flag] && index < len(words) {
				index++
			}
		}
	}
	if index >= len(words) {
		return Command{}
	}
	return Command{Name: CommandName(strings.TrimLeft(words[index], "(")), Args: words[index+1:]}
}

// CommandName returns the name a word is executed as: /bin/rm runs rm.
func CommandName(word string) string {
	if strings.Contains(word, "/") && !strings.HasSuffix(word, "/") {
		return path.Base(word)
	}
	return word
}

func flagSet(flags ...string) map[string]bool {
	set := make(map[string]bool, len(flags))
	for _, flag := range flags {
		set[flag] = true
	}
	return set
}
