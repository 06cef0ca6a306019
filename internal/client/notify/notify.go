// Package notify delivers transient user notifications (the terminal
// equivalent of toasts) and a pending-operation spinner.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Notifier receives one message per completed user action.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// Formatter applies a semantic color, or a plain prefix when color output
// is disabled.
type Formatter struct {
	color  *color.Color
	prefix string
}

func (f Formatter) Sprint(a ...any) string {
	text := fmt.Sprint(a...)
	if noColor() {
		return f.prefix + text
	}
	return f.color.Sprint(text)
}

func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	SuccessText = Formatter{color.New(color.FgGreen), ""}
	ErrorText   = Formatter{color.New(color.FgRed), "error: "}
	InfoText    = Formatter{color.New(color.FgCyan), ""}
	Highlight   = Formatter{color.New(color.FgYellow, color.Bold), ""}
)

// Console writes notifications as single lines to a writer.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Success(msg string) { c.write(SuccessText.Sprint("✓ ") + msg) }
func (c *Console) Error(msg string)   { c.write(ErrorText.Sprint("✗ ") + msg) }
func (c *Console) Info(msg string)    { c.write(InfoText.Sprint("→ ") + msg) }

func (c *Console) write(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, line)
}
