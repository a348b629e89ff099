package pathguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"mvdan.cc/sh/v3/shell"

	"github.com/melihmucuk/leash/internal/logger"
)

type Classification int

const (
	Outside Classification = iota
	InsideRoot
	Safe
)

func (classification Classification) String() string {
	switch classification {
	case InsideRoot:
		return "inside-root"
	case Safe:
		return "safe"
	default:
		return "outside"
	}
}

// DevicePaths are matched against the lexical absolute path: on Linux
// /dev/stdout resolves into /proc, which must not make it unsafe.
var DevicePaths = []string{"/dev/null", "/dev/stdin", "/dev/stdout", "/dev/stderr"}

var TempPaths = []string{"/tmp", "/var/tmp", "/private/tmp", "/private/var/tmp"}

// SafeWritePaths lists every path writable regardless of the working directory.
func SafeWritePaths() []string {
	paths := make([]string, 0, len(DevicePaths)+len(TempPaths))
	paths = append(paths, DevicePaths...)
	return append(paths, TempPaths...)
}

var variablePattern = regexp.MustCompile(`\$\{?(\w+)\}?`)

var log = logger.New("pathguard")

// Validator classifies candidate paths against a trusted working directory.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	workingDirectory string
	homeDirectory    string
	lookupEnv        func(string) (string, bool)
	fileSystem       FileSystem
	allowPaths       []string
	allowPrefixes    []string
	allowGlobs       []glob.Glob
}

type Option func(*Validator)

func WithFileSystem(fileSystem FileSystem) Option {
	return func(validator *Validator) {
		validator.fileSystem = fileSystem
	}
}

func WithHomeDirectory(homeDirectory string) Option {
	return func(validator *Validator) {
		validator.homeDirectory = homeDirectory
	}
}

// WithLookupEnv replaces os.LookupEnv for $VAR expansion.
func WithLookupEnv(lookupEnv func(string) (string, bool)) Option {
	return func(validator *Validator) {
		validator.lookupEnv = lookupEnv
	}
}

// WithAllowPaths adds user-configured safe locations. Entries may use ~ and
// $VAR and may be glob patterns; plain entries also cover their subpaths.
func WithAllowPaths(entries ...string) Option {
	return func(validator *Validator) {
		validator.allowPaths = append(validator.allowPaths, entries...)
	}
}

func New(workingDirectory string, options ...Option) *Validator {
	validator := &Validator{
		workingDirectory: workingDirectory,
		lookupEnv:        os.LookupEnv,
		fileSystem:       osFileSystem{},
	}
	if homeDirectory, err := os.UserHomeDir(); err == nil {
		validator.homeDirectory = homeDirectory
	}
	for _, option := range options {
		option(validator)
	}
	if absolute, err := filepath.Abs(validator.workingDirectory); err == nil {
		validator.workingDirectory = absolute
	}
	validator.compileAllowPaths()
	return validator
}

func (validator *Validator) WorkingDirectory() string {
	return validator.workingDirectory
}

func (validator *Validator) compileAllowPaths() {
	for _, entry := range validator.allowPaths {
		expanded := strings.TrimSpace(validator.Expand(entry))
		if expanded == "" {
			continue
		}
		if !strings.ContainsAny(expanded, "*?[{") {
			validator.allowPrefixes = append(validator.allowPrefixes, validator.absolute(expanded))
			continue
		}
		compiled, compileError := glob.Compile(expanded, '/')
		if compileError != nil {
			log.Warn("ignoring allow path %q: %v", entry, compileError)
			continue
		}
		validator.allowGlobs = append(validator.allowGlobs, compiled)
	}
}

// Classify resolves candidate and reports where it lies. Resolution failures
// classify as Outside.
func (validator *Validator) Classify(candidate string) Classification {
	absolute := validator.absolute(validator.Expand(candidate))
	if withinAny(absolute, DevicePaths) {
		return Safe
	}

	canonical, resolveError := validator.canonicalize(absolute)
	if resolveError != nil {
		log.Debug("resolve %q failed: %v", candidate, resolveError)
		return Outside
	}

	root, rootError := validator.fileSystem.EvalSymlinks(validator.workingDirectory)
	if rootError == nil && isWithin(root, canonical) {
		return InsideRoot
	}
	if rootError != nil {
		log.Debug("resolve working directory %q failed: %v", validator.workingDirectory, rootError)
	}

	if validator.isSafe(canonical) {
		return Safe
	}
	return Outside
}

// Expand replaces a leading ~ with the home directory and $VAR or ${VAR}
// references with their values. HOME and PWD always mean the home and working
// directories; unset variables expand to the empty string.
func (validator *Validator) Expand(path string) string {
	expanded := path
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		expanded = validator.homeDirectory + expanded[1:]
	}
	if !strings.Contains(expanded, "$") {
		return expanded
	}

	result, expandError := shell.Expand(expanded, validator.variable)
	if expandError == nil {
		return result
	}
	return variablePattern.ReplaceAllStringFunc(expanded, func(reference string) string {
		return validator.variable(variablePattern.FindStringSubmatch(reference)[1])
	})
}

func (validator *Validator) variable(name string) string {
	switch name {
	case "HOME":
		return validator.homeDirectory
	case "PWD":
		return validator.workingDirectory
	}
	value, _ := validator.lookupEnv(name)
	return value
}

func (validator *Validator) absolute(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(validator.workingDirectory, path)
	}
	return filepath.Clean(path)
}

// canonicalize resolves every symlink on path. For a path that does not exist
// yet, the nearest existing ancestor is resolved and the rest appended. A
// dangling symlink is an error since its eventual target cannot be known.
func (validator *Validator) canonicalize(path string) (string, error) {
	resolved, evalError := validator.fileSystem.EvalSymlinks(path)
	if evalError == nil {
		return resolved, nil
	}
	if !errors.Is(evalError, fs.ErrNotExist) {
		return "", evalError
	}
	if info, lstatError := validator.fileSystem.Lstat(path); lstatError == nil {
		if info.Mode()&fs.ModeSymlink != 0 {
			return "", fmt.Errorf("dangling symlink %s", path)
		}
		return "", evalError
	}

	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	resolvedParent, parentError := validator.canonicalize(parent)
	if parentError != nil {
		return "", parentError
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

func (validator *Validator) isSafe(path string) bool {
	if withinAny(path, TempPaths) || withinAny(path, validator.allowPrefixes) {
		return true
	}
	for _, pattern := range validator.allowGlobs {
		if pattern.Match(path) {
			return true
		}
	}
	return false
}

func isWithin(root string, path string) bool {
	if path == root {
		return true
	}
	relative, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator)) && !filepath.IsAbs(relative)
}

func withinAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}
