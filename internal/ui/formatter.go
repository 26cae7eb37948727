package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/notexe/forget-me-not/internal/app"
	"github.com/notexe/forget-me-not/internal/geofence"
	"github.com/notexe/forget-me-not/internal/reminder"
	"github.com/notexe/forget-me-not/internal/todo"
)

var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")). // Coral red
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")) // Warm yellow

	SystemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("183")). // Soft purple
			Italic(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Medium gray
			Italic(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")). // Green
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")). // Yellow
			Bold(true)

	AccentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("147")) // Light purple

	PlaceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("215")) // Orange
)

// ShortIDLen is how many id characters lists display.
const ShortIDLen = 8

type Formatter struct {
	colored bool
}

// NewFormatter creates a Formatter; colored=false renders plain text.
func NewFormatter(colored bool) *Formatter {
	return &Formatter{colored: colored}
}

func (f *Formatter) render(style lipgloss.Style, s string) string {
	if f.colored {
		return style.Render(s)
	}
	return s
}

func (f *Formatter) FormatError(err error) string {
	return f.render(ErrorStyle, "Error: ") + err.Error()
}

func (f *Formatter) FormatInfo(info string) string {
	return f.render(InfoStyle, info)
}

func (f *Formatter) FormatSystem(msg string) string {
	return f.render(SystemStyle, msg)
}

func (f *Formatter) FormatStatus(msg string) string {
	return f.render(StatusStyle, msg)
}

func (f *Formatter) FormatWarning(msg string) string {
	return f.render(WarningStyle, "! ") + msg
}

// ShortID abbreviates a reminder id for display.
func ShortID(id string) string {
	if len(id) <= ShortIDLen {
		return id
	}
	return id[:ShortIDLen]
}

// FormatReminder renders one reminder as a single line. n is its 1-based
// position in the list shown to the user.
func (f *Formatter) FormatReminder(n int, r reminder.Reminder) string {
	mark := "○"
	text := r.Text
	if r.Completed {
		mark = "✓"
		if f.colored {
			text = DimStyle.Strikethrough(true).Render(text)
		}
	} else if f.colored {
		mark = SuccessStyle.Render(mark)
	}

	line := fmt.Sprintf("%2d. %s %s %s %s",
		n, mark, text,
		f.render(DimStyle, "@"),
		f.render(PlaceStyle, fmt.Sprintf("%s (%d m)", r.Location.Name, r.Location.Radius)))

	var meta []string
	meta = append(meta, "id "+ShortID(r.ID))
	if r.TriggeredCount > 0 {
		meta = append(meta, fmt.Sprintf("fired %d×", r.TriggeredCount))
	}
	if r.LastTriggeredAt != nil {
		meta = append(meta, "last "+r.LastTriggeredAt.Local().Format(time.Kitchen))
	}
	return line + "  " + f.render(DimStyle, strings.Join(meta, " · "))
}

// FormatReminderList renders a titled list of reminders.
func (f *Formatter) FormatReminderList(title string, reminders []reminder.Reminder) string {
	if len(reminders) == 0 {
		return f.FormatInfo(title + ": nothing here yet.")
	}

	lines := []string{f.render(HeaderStyle, fmt.Sprintf("%s (%d)", title, len(reminders)))}
	for i, r := range reminders {
		lines = append(lines, f.FormatReminder(i+1, r))
	}
	return strings.Join(lines, "\n")
}

// FormatTodo renders one todo as a single line. Overdue todos are flagged
// relative to now.
func (f *Formatter) FormatTodo(n int, t todo.Todo, now time.Time) string {
	mark := "○"
	text := t.Text
	if t.Completed {
		mark = "✓"
		if f.colored {
			text = DimStyle.Strikethrough(true).Render(text)
		}
	} else if f.colored {
		mark = SuccessStyle.Render(mark)
	}

	meta := []string{"id " + ShortID(t.ID)}
	if t.DueDate != nil {
		due := "due " + t.DueDate.Format(time.DateOnly)
		if t.Overdue(now) {
			due = f.render(WarningStyle, due+" overdue")
		}
		meta = append(meta, due)
	}
	if t.CompletedAt != nil {
		meta = append(meta, "done "+t.CompletedAt.Local().Format("Jan 2 15:04"))
	}
	return fmt.Sprintf("%2d. %s %s  %s", n, mark, text, f.render(DimStyle, strings.Join(meta, " · ")))
}

// FormatTodoList renders a titled list of todos.
func (f *Formatter) FormatTodoList(title string, todos []todo.Todo, now time.Time) string {
	if len(todos) == 0 {
		return f.FormatInfo(title + ": nothing here.")
	}

	lines := []string{f.render(HeaderStyle, fmt.Sprintf("%s (%d)", title, len(todos)))}
	for i, t := range todos {
		lines = append(lines, f.FormatTodo(i+1, t, now))
	}
	return strings.Join(lines, "\n")
}

// FormatLocationGroups renders the per-place summary.
func (f *Formatter) FormatLocationGroups(groups []reminder.LocationGroup) string {
	if len(groups) == 0 {
		return f.FormatInfo("No locations yet. Add a reminder with /add.")
	}

	lines := []string{f.render(HeaderStyle, fmt.Sprintf("Locations (%d)", len(groups)))}
	for _, g := range groups {
		counts := fmt.Sprintf("%d active, %d done", g.ActiveCount, g.CompletedCount)
		addr := ""
		if g.Location.Address != "" {
			addr = " " + f.render(DimStyle, g.Location.Address)
		}
		lines = append(lines, fmt.Sprintf("  %s%s  %s",
			f.render(PlaceStyle, g.Name), addr, f.render(AccentStyle, counts)))
	}
	return strings.Join(lines, "\n")
}

// FormatResult summarizes one evaluation pass.
func (f *Formatter) FormatResult(res geofence.Result) string {
	msg := fmt.Sprintf("📍 (%.5f, %.5f): %d in range, %d fired",
		res.Fix.Latitude, res.Fix.Longitude, res.Candidates, len(res.Fired))
	if len(res.CoolingOff) > 0 {
		msg += fmt.Sprintf(", %d cooling down", len(res.CoolingOff))
	}
	if len(res.Failed) > 0 {
		msg += fmt.Sprintf(", %d failed", len(res.Failed))
	}
	return f.FormatStatus(msg)
}

// FormatEngineStatus renders the geofencing status table.
func (f *Formatter) FormatEngineStatus(st app.Status) string {
	session := st.Session
	if f.colored {
		if st.Session == geofence.Active.String() {
			session = SuccessStyle.Render(session)
		} else {
			session = WarningStyle.Render(session)
		}
	}

	row := func(label, value string) string {
		return "  " + f.render(DimStyle, fmt.Sprintf("%-12s", label)) + value
	}

	lines := []string{
		f.render(HeaderStyle, "Status"),
		row("Geofencing", session),
		row("Permission", st.Permission),
		row("Reminders", fmt.Sprintf("%d active, %d completed", st.Active, st.Completed)),
		row("Todos", fmt.Sprintf("%d open, %d overdue", st.OpenTodos, st.DueTodos)),
		row("Cooldown", st.Cooldown),
		row("Storage", st.Backend),
	}
	if st.LastFix != nil {
		lines = append(lines, row("Last fix", fmt.Sprintf("%.5f, %.5f at %s",
			st.LastFix.Latitude, st.LastFix.Longitude, st.LastFix.Timestamp.Local().Format(time.Kitchen))))
	}
	if !st.Ready {
		lines = append(lines, "", f.FormatWarning("Location or notification permission missing; reminders will not fire."))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) FormatWelcome(backend string) string {
	if f.colored {
		titleStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

		subtitleStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

		labelStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

		valueStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

		borderStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("62"))

		topBorder := borderStyle.Render("╭─────────────────────────────────────────╮")
		bottomBorder := borderStyle.Render("╰─────────────────────────────────────────╯")
		sideBorder := borderStyle.Render("│")

		title := titleStyle.Render("Forget Me Not • reminders & todos")
		storeLine := labelStyle.Render("Storage: ") + valueStyle.Render(backend)
		helpLine := subtitleStyle.Render("Type /help for commands")

		padLine := func(content string, width int) string {
			contentLen := lipgloss.Width(content)
			if contentLen < width {
				return content + strings.Repeat(" ", width-contentLen)
			}
			return content
		}

		boxWidth := 39
		lines := []string{
			"",
			topBorder,
			sideBorder + " " + padLine(title, boxWidth) + " " + sideBorder,
			sideBorder + " " + padLine(storeLine, boxWidth) + " " + sideBorder,
			sideBorder + " " + padLine("", boxWidth) + " " + sideBorder,
			sideBorder + " " + padLine(helpLine, boxWidth) + " " + sideBorder,
			bottomBorder,
			"",
		}

		return strings.Join(lines, "\n")
	}

	lines := []string{
		"",
		"Forget Me Not • reminders & todos",
		fmt.Sprintf("Storage: %s", backend),
		"Type /help for commands",
		"",
	}

	return strings.Join(lines, "\n")
}

const helpMarkdown = `# Commands

| Command | Description |
|---|---|
| ` + "`/add <text> @ <place> <lat> <lon> [radius]`" + ` | Remind me of text near a place |
| ` + "`/list [active\\|completed\\|all]`" + ` | List reminders, newest first |
| ` + "`/done`" + ` | List completed reminders |
| ` + "`/toggle <n\\|id>`" + ` | Complete or reopen a reminder |
| ` + "`/delete <n\\|id>`" + ` | Delete a reminder |
| ` + "`/find <text>`" + ` | Find reminders by place name |
| ` + "`/locations`" + ` | Reminders grouped by place |
| ` + "`/here <lat> <lon>`" + ` | Report your current position |
| ` + "`/todo add <text> [by YYYY-MM-DD]`" + ` | Add a todo, optionally with a due date |
| ` + "`/todo list [active\\|completed\\|due\\|all]`" + ` | List todos |
| ` + "`/todo done <n\\|id>`" + ` | Complete or reopen a todo |
| ` + "`/todo rm <n\\|id>`" + ` | Delete a todo |
| ` + "`/todo day [YYYY-MM-DD]`" + ` | Todos created or due on a day |
| ` + "`/todo history [today\\|week\\|month]`" + ` | Completed todos |
| ` + "`/todo clear`" + ` | Delete completed todos |
| ` + "`/status`" + ` | Geofencing status |
| ` + "`/quit`" + ` | Exit |

Reminders are referenced by their number in the last ` + "`/list`" + ` or by id prefix.
Radius defaults to 200 m.
`

var plainHelp = []string{
	"",
	"Commands:",
	"  /add <text> @ <place> <lat> <lon> [radius]  - Add a reminder",
	"  /list [active|completed|all]                - List reminders",
	"  /done                                       - List completed reminders",
	"  /toggle <n|id>                              - Complete or reopen",
	"  /delete <n|id>                              - Delete",
	"  /find <text>                                - Find by place name",
	"  /locations                                  - Group by place",
	"  /here <lat> <lon>                           - Report position",
	"  /todo add <text> [by YYYY-MM-DD]            - Add a todo",
	"  /todo list [active|completed|due|all]       - List todos",
	"  /todo done <n|id>                           - Complete or reopen a todo",
	"  /todo rm <n|id>                             - Delete a todo",
	"  /todo day [YYYY-MM-DD]                      - Todos created or due on a day",
	"  /todo history [today|week|month]            - Completed todos",
	"  /todo clear                                 - Delete completed todos",
	"  /status                                     - Geofencing status",
	"  /quit                                       - Exit",
	"",
}

func (f *Formatter) FormatHelp() string {
	if !f.colored {
		return strings.Join(plainHelp, "\n")
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return strings.Join(plainHelp, "\n")
	}

	rendered, err := renderer.Render(helpMarkdown)
	if err != nil {
		return strings.Join(plainHelp, "\n")
	}
	return rendered
}

// FormatPrompt returns a styled input prompt
func (f *Formatter) FormatPrompt() string {
	if f.colored {
		promptStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("62"))
		arrowStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true)
		return promptStyle.Render("fmn") + arrowStyle.Render(" > ")
	}
	return "fmn > "
}
