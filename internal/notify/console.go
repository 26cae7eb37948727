package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	alertTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("215")). // Orange
			Bold(true)

	alertBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// Console prints notifications to a terminal.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	colored bool
}

// NewConsole creates a Console dispatcher writing to out.
func NewConsole(out io.Writer, colored bool) *Console {
	return &Console{out: out, colored: colored}
}

func (c *Console) Notify(_ context.Context, n Notification) error {
	line := "🔔 " + n.Title + " " + n.Body
	if c.colored {
		line = alertTitleStyle.Render("🔔 "+n.Title) + " " + alertBodyStyle.Render(n.Body)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.out, line); err != nil {
		return fmt.Errorf("failed to print notification: %v: %w", err, ErrDispatch)
	}
	return nil
}
