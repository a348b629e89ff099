package analyzer

import (
	"fmt"
	"strings"

	"github.com/melihmucuk/leash/internal/logger"
	"github.com/melihmucuk/leash/internal/pathguard"
	"github.com/melihmucuk/leash/internal/shellparse"
)

var log = logger.New("analyzer")

// Result is the verdict for one command or path. Reason is set only when
// Blocked is true.
type Result struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

// Candidate is a path extracted from a command together with the command,
// compound pattern or redirect it came from.
type Candidate struct {
	Path   string `json:"path"`
	Source string `json:"source"`
}

func (candidate Candidate) reason() string {
	if candidate.Source == redirectSource {
		return fmt.Sprintf("Redirect targets path outside working directory: %s", candidate.Path)
	}
	return fmt.Sprintf("Command %q targets path outside working directory: %s", candidate.Source, candidate.Path)
}

// Finding is a classified candidate.
type Finding struct {
	Candidate
	Classification pathguard.Classification `json:"-"`
	Class          string                   `json:"classification"`
}

type CommandAnalyzer struct {
	validator *pathguard.Validator
	commands  map[string]extractFunc
}

type settings struct {
	validatorOptions []pathguard.Option
	extraCommands    []string
}

type Option func(*settings)

func WithValidatorOptions(options ...pathguard.Option) Option {
	return func(analyzerSettings *settings) {
		analyzerSettings.validatorOptions = append(analyzerSettings.validatorOptions, options...)
	}
}

// WithExtraCommands marks more commands as dangerous. Every operand of such a
// command is a path candidate.
func WithExtraCommands(names ...string) Option {
	return func(analyzerSettings *settings) {
		analyzerSettings.extraCommands = append(analyzerSettings.extraCommands, names...)
	}
}

func New(workingDirectory string, options ...Option) *CommandAnalyzer {
	analyzerSettings := settings{}
	for _, option := range options {
		option(&analyzerSettings)
	}

	commands := make(map[string]extractFunc, len(dangerousCommands)+len(analyzerSettings.extraCommands))
	for name, extract := range dangerousCommands {
		commands[name] = extract
	}
	for _, name := range analyzerSettings.extraCommands {
		normalizedName := strings.TrimSpace(name)
		if normalizedName == "" {
			continue
		}
		if _, exists := commands[normalizedName]; !exists {
			commands[normalizedName] = allOperands(nil)
		}
	}

	return &CommandAnalyzer{
		validator: pathguard.New(workingDirectory, analyzerSettings.validatorOptions...),
		commands:  commands,
	}
}

func (analyzer *CommandAnalyzer) WorkingDirectory() string {
	return analyzer.validator.WorkingDirectory()
}

// Analyze blocks command when any path it would modify lies outside the
// working directory and the safe locations. Commands with no dangerous
// command and no redirect are allowed without touching the filesystem.
func (analyzer *CommandAnalyzer) Analyze(command string) Result {
	for _, candidate := range analyzer.Candidates(command) {
		classification := analyzer.validator.Classify(candidate.Path)
		log.Debug("%s %q: %s", candidate.Source, candidate.Path, classification)
		if classification == pathguard.Outside {
			return Result{Blocked: true, Reason: candidate.reason()}
		}
	}
	return Result{}
}

// ValidatePath checks the target of a file write or edit. An empty path means
// no target and is allowed.
func (analyzer *CommandAnalyzer) ValidatePath(path string) Result {
	if path == "" {
		return Result{}
	}
	classification := analyzer.validator.Classify(path)
	log.Debug("file %q: %s", path, classification)
	if classification == pathguard.Outside {
		return Result{Blocked: true, Reason: fmt.Sprintf("Path outside working directory: %s", path)}
	}
	return Result{}
}

// Explain classifies every candidate of command without stopping at the
// first blocked one.
func (analyzer *CommandAnalyzer) Explain(command string) []Finding {
	candidates := analyzer.Candidates(command)
	findings := make([]Finding, 0, len(candidates))
	for _, candidate := range candidates {
		classification := analyzer.validator.Classify(candidate.Path)
		findings = append(findings, Finding{
			Candidate:      candidate,
			Classification: classification,
			Class:          classification.String(),
		})
	}
	return findings
}

// Candidates extracts every path command may modify, in order: per segment
// the exact command rule then compound rules, then redirect targets.
func (analyzer *CommandAnalyzer) Candidates(command string) []Candidate {
	candidates := make([]Candidate, 0)
	seen := make(map[Candidate]bool)
	add := func(source string, paths []string) {
		for _, path := range paths {
			candidate := Candidate{Path: path, Source: source}
			if seen[candidate] {
				continue
			}
			seen[candidate] = true
			candidates = append(candidates, candidate)
		}
	}

	segments := shellparse.Parse(command)
	for index, segment := range segments {
		resolved := shellparse.Resolve(segment.Words())
		if resolved.Name == "" {
			continue
		}
		if extract, ok := analyzer.commands[resolved.Name]; ok {
			add(resolved.Name, extract(resolved.Args))
		}
		for _, rule := range compoundRules {
			if !rule.pattern.MatchString(segment.Raw) {
				continue
			}
			add(rule.name, rule.extract(compoundMatch{
				segments: segments,
				index:    index,
				command:  resolved,
				commands: analyzer.commands,
			}))
		}
	}

	add(redirectSource, scanRedirects(command))
	return candidates
}
