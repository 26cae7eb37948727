package repl

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/notexe/forget-me-not/internal/reminder"
	"github.com/notexe/forget-me-not/internal/todo"
)

func (r *REPL) readInput() (string, error) {
	line, err := r.rl.Readline()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (r *REPL) parseCommand(input string) (bool, string, string) {
	if !strings.HasPrefix(input, "/") {
		return false, "", ""
	}

	parts := strings.SplitN(input, " ", 2)
	command := strings.ToLower(parts[0])

	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	return true, command, args
}

// parseAdd splits "<text> @ <place> <lat> <lon> [radius]". The place name
// may contain spaces; the radius must be an integer.
func parseAdd(args string) (string, reminder.Location, error) {
	usage := errors.New("usage: /add <text> @ <place> <lat> <lon> [radius]")

	at := strings.LastIndex(args, "@")
	if at < 0 {
		return "", reminder.Location{}, usage
	}
	text := strings.TrimSpace(args[:at])
	fields := strings.Fields(args[at+1:])

	var loc reminder.Location
	if n := len(fields); n >= 4 {
		if radius, err := strconv.Atoi(fields[n-1]); err == nil {
			if lat, lon, err := parseCoords(fields[n-3 : n-1]); err == nil {
				loc = reminder.Location{
					Name:      strings.Join(fields[:n-3], " "),
					Latitude:  lat,
					Longitude: lon,
					Radius:    radius,
				}
				return text, loc, nil
			}
		}
	}

	n := len(fields)
	if n < 3 {
		return "", reminder.Location{}, usage
	}
	lat, lon, err := parseCoords(fields[n-2:])
	if err != nil {
		return "", reminder.Location{}, fmt.Errorf("%w: %v", usage, err)
	}
	loc = reminder.Location{
		Name:      strings.Join(fields[:n-2], " "),
		Latitude:  lat,
		Longitude: lon,
	}
	return text, loc, nil
}

func parseCoords(fields []string) (float64, float64, error) {
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected latitude and longitude")
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", fields[0])
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", fields[1])
	}
	return lat, lon, nil
}

// resolveRef matches ref as a 1-based index into listed, then as an id or
// unique id prefix among all items. notFound is wrapped when nothing matches.
func resolveRef[T any](ref string, listed, all []T, idOf func(T) string, notFound error) (T, error) {
	var zero T
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if ref == "" {
		return zero, errors.New("empty reference")
	}

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(listed) {
		return listed[n-1], nil
	}

	var matches []T
	for _, item := range all {
		id := idOf(item)
		if id == ref {
			return item, nil
		}
		if strings.HasPrefix(id, ref) {
			matches = append(matches, item)
		}
	}

	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("%s: %w", ref, notFound)
	case 1:
		return matches[0], nil
	default:
		return zero, fmt.Errorf("%s matches %d items; use more of the id", ref, len(matches))
	}
}

func reminderID(r reminder.Reminder) string { return r.ID }

func todoID(t todo.Todo) string { return t.ID }

// parseTodoAdd splits "<text> [by YYYY-MM-DD]".
func parseTodoAdd(args string, loc *time.Location) (string, *time.Time, error) {
	fields := strings.Fields(args)
	if n := len(fields); n >= 3 && strings.EqualFold(fields[n-2], "by") {
		due, err := todo.ParseDate(fields[n-1], loc)
		if err != nil {
			return "", nil, err
		}
		return strings.Join(fields[:n-2], " "), &due, nil
	}
	return strings.TrimSpace(args), nil, nil
}

func setupReadline(prompt string) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:              prompt,
		HistoryFile:         "",
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
		AutoComplete:        completer,
	})

	return rl, err
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("/add"),
	readline.PcItem("/list",
		readline.PcItem("active"),
		readline.PcItem("completed"),
		readline.PcItem("all"),
	),
	readline.PcItem("/done"),
	readline.PcItem("/toggle"),
	readline.PcItem("/delete"),
	readline.PcItem("/find"),
	readline.PcItem("/locations"),
	readline.PcItem("/here"),
	readline.PcItem("/todo",
		readline.PcItem("add"),
		readline.PcItem("list"),
		readline.PcItem("done"),
		readline.PcItem("rm"),
		readline.PcItem("day"),
		readline.PcItem("history",
			readline.PcItem("today"),
			readline.PcItem("week"),
			readline.PcItem("month"),
		),
		readline.PcItem("clear"),
	),
	readline.PcItem("/status"),
	readline.PcItem("/help"),
	readline.PcItem("/quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func isEOF(err error) bool {
	return err == io.EOF || err == readline.ErrInterrupt
}
