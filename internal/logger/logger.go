package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Level is the minimum severity a message needs to be written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

type severity struct {
	name  string
	style lipgloss.Style
}

var severities = [...]severity{
	LevelDebug: {name: "debug", style: lipgloss.NewStyle().Foreground(lipgloss.Color("8"))},
	LevelInfo:  {name: "info", style: lipgloss.NewStyle().Foreground(lipgloss.Color("6"))},
	LevelWarn:  {name: "warn", style: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)},
	LevelError: {name: "error", style: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)},
}

var componentStyle = lipgloss.NewStyle().Faint(true)

func (level Level) String() string {
	if level < LevelDebug || level > LevelError {
		return fmt.Sprintf("level(%d)", int(level))
	}
	return severities[level].name
}

// sink is shared by every Logger; the CLI configures it once per run.
type sink struct {
	mutex   sync.RWMutex
	level   Level
	colored bool
	output  io.Writer
}

var shared = &sink{level: LevelWarn, output: os.Stderr}

// Logger tags messages with the component that wrote them.
type Logger struct {
	component string
}

func New(component string) *Logger {
	return &Logger{component: component}
}

// ParseLevel accepts debug, info, warn (or warning) and error. An empty name
// means warn.
func ParseLevel(name string) (Level, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(name))
	switch normalizedName {
	case "", "warning":
		return LevelWarn, nil
	}
	levelNames := make([]string, 0, len(severities))
	for level, entry := range severities {
		if entry.name == normalizedName {
			return Level(level), nil
		}
		levelNames = append(levelNames, entry.name)
	}
	return LevelWarn, fmt.Errorf("unknown log level %q (valid: %s)", name, strings.Join(levelNames, ", "))
}

func SetLevel(level Level) {
	shared.mutex.Lock()
	defer shared.mutex.Unlock()
	shared.level = level
}

// SetLevelFromString keeps the current level when name is not recognized.
func SetLevelFromString(name string) {
	if level, err := ParseLevel(name); err == nil {
		SetLevel(level)
	}
}

func SetColored(colored bool) {
	shared.mutex.Lock()
	defer shared.mutex.Unlock()
	shared.colored = colored
}

// SetOutput redirects every Logger. nil restores stderr.
func SetOutput(output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	shared.mutex.Lock()
	defer shared.mutex.Unlock()
	shared.output = output
}

func (logger *Logger) Debug(format string, args ...any) {
	logger.write(LevelDebug, format, args)
}

func (logger *Logger) Warn(format string, args ...any) {
	logger.write(LevelWarn, format, args)
}

func (logger *Logger) write(level Level, format string, args []any) {
	shared.mutex.RLock()
	defer shared.mutex.RUnlock()
	if level < shared.level {
		return
	}

	label := strings.ToUpper(severities[level].name)
	component := logger.component + ":"
	if shared.colored {
		label = severities[level].style.Render(label)
		component = componentStyle.Render(component)
	}
	fmt.Fprintf(shared.output, "%s %s %s %s\n", time.Now().Format(time.TimeOnly), label, component, fmt.Sprintf(format, args...))
}
