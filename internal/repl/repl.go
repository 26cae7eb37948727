package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/notexe/forget-me-not/internal/app"
	"github.com/notexe/forget-me-not/internal/config"
	"github.com/notexe/forget-me-not/internal/geofence"
	"github.com/notexe/forget-me-not/internal/logging"
	"github.com/notexe/forget-me-not/internal/reminder"
	"github.com/notexe/forget-me-not/internal/todo"
	"github.com/notexe/forget-me-not/internal/ui"
	"go.uber.org/zap"
)

// errQuit ends the command loop.
var errQuit = errors.New("quit")

type REPL struct {
	app       *app.App
	config    *config.Config
	rl        *readline.Instance
	out       io.Writer
	formatter *ui.Formatter
	logger    *zap.Logger

	// listed is what the last /list showed, so reminders can be referenced
	// by number.
	listed []reminder.Reminder

	// listedTodos is what the last todo listing showed.
	listedTodos []todo.Todo
}

// NewREPL sets up the terminal. The engine is attached with Attach once it
// has been built with Output as its console writer.
func NewREPL(cfg *config.Config, logger *zap.Logger) (*REPL, error) {
	formatter := ui.NewFormatter(cfg.UI.ColoredOutput)

	rl, err := setupReadline(formatter.FormatPrompt())
	if err != nil {
		return nil, fmt.Errorf("failed to setup readline: %w", err)
	}

	return &REPL{
		config:    cfg,
		rl:        rl,
		out:       rl.Stdout(),
		formatter: formatter,
		logger:    logging.OrNop(logger).Named("repl"),
	}, nil
}

// Output is a writer that prints above the prompt without garbling input.
func (r *REPL) Output() io.Writer {
	return r.out
}

// Attach connects the REPL to a running engine.
func (r *REPL) Attach(a *app.App) {
	r.app = a
}

// HandleResult prints the outcome of an evaluation pass run in the
// background.
func (r *REPL) HandleResult(res geofence.Result) {
	fmt.Fprintln(r.out, r.formatter.FormatResult(res))
}

// Start reads commands until /quit, EOF or ctx is cancelled.
func (r *REPL) Start(ctx context.Context) error {
	defer r.rl.Close()

	r.displayWelcome()
	if !r.app.Session.Ready() {
		r.displayWarning("Location or notification permission missing; reminders will not fire.")
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := r.readInput()
		if err != nil {
			if isEOF(err) {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if input == "" {
			continue
		}

		isCommand, command, args := r.parseCommand(input)
		if !isCommand {
			r.displayInfo("Commands start with /. Type /help for available commands.")
			continue
		}

		if err := r.handleCommand(command, args); err != nil {
			if errors.Is(err, errQuit) {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			r.displayError(err)
		}
	}
}

// Stop closes the terminal, unblocking a pending read.
func (r *REPL) Stop() {
	r.rl.Close()
}

func (r *REPL) handleCommand(command, args string) error {
	r.logger.Debug("command", zap.String("command", command))

	switch command {
	case "/help", "/h":
		r.displayHelp()
		return nil

	case "/add", "/a":
		return r.handleAdd(args)

	case "/list", "/ls":
		return r.handleList(args)

	case "/done":
		return r.handleList("completed")

	case "/toggle", "/t":
		rem, err := r.resolve(args)
		if err != nil {
			return err
		}
		updated, err := r.app.Reminders.ToggleCompleted(rem.ID)
		if err != nil {
			return err
		}
		if updated.Completed {
			r.displaySystem(fmt.Sprintf("Completed: %s", updated.Text))
		} else {
			r.displaySystem(fmt.Sprintf("Reopened: %s", updated.Text))
		}
		return nil

	case "/delete", "/rm":
		rem, err := r.resolve(args)
		if err != nil {
			return err
		}
		if err := r.app.Reminders.Delete(rem.ID); err != nil {
			return err
		}
		r.displaySystem(fmt.Sprintf("Deleted: %s", rem.Text))
		return nil

	case "/find", "/f":
		if args == "" {
			return fmt.Errorf("usage: /find <place name>")
		}
		r.listed = r.app.Reminders.ListByLocationNameContains(args)
		r.print(r.formatter.FormatReminderList(fmt.Sprintf("At %q", args), r.listed))
		return nil

	case "/locations", "/loc":
		r.print(r.formatter.FormatLocationGroups(r.app.Reminders.GroupByLocation()))
		return nil

	case "/here":
		return r.handleHere(args)

	case "/todo", "/td":
		return r.handleTodo(args)

	case "/todos":
		return r.handleTodo("list " + args)

	case "/status":
		r.print(r.formatter.FormatEngineStatus(r.app.Status()))
		return nil

	case "/quit", "/exit", "/q":
		return errQuit

	default:
		return fmt.Errorf("unknown command: %s (type /help for available commands)", command)
	}
}

func (r *REPL) handleAdd(args string) error {
	text, loc, err := parseAdd(args)
	if err != nil {
		return err
	}

	rem, err := r.app.Reminders.Create(text, loc)
	if err != nil {
		return err
	}

	r.displaySystem(fmt.Sprintf("Added: %s @ %s (%d m) [%s]", rem.Text, rem.Location.Name, rem.Location.Radius, ui.ShortID(rem.ID)))
	if r.app.Session.State() != geofence.Active {
		r.displayWarning("Geofencing is inactive; this reminder will not fire until permission is granted.")
	}
	return nil
}

func (r *REPL) handleList(args string) error {
	title := "Reminders"
	switch strings.ToLower(args) {
	case "", "all":
		r.listed = r.app.Reminders.All()
	case "active":
		title = "Active"
		r.listed = r.app.Reminders.ListActive()
	case "completed", "done":
		title = "Completed"
		r.listed = r.app.Reminders.ListCompleted()
	default:
		return fmt.Errorf("usage: /list [active|completed|all]")
	}

	r.print(r.formatter.FormatReminderList(title, r.listed))
	return nil
}

func (r *REPL) handleHere(args string) error {
	lat, lon, err := parseCoords(strings.Fields(args))
	if err != nil {
		return fmt.Errorf("usage: /here <lat> <lon>: %w", err)
	}

	delivered, err := r.app.ReportLocation(lat, lon)
	if err != nil {
		return err
	}
	if !delivered {
		r.displayInfo("Position within the update interval and distance of the last one; ignored.")
	}
	return nil
}

// resolve finds the reminder a user typed: a number from the last listing
// or a unique id prefix.
func (r *REPL) resolve(ref string) (reminder.Reminder, error) {
	if ref == "" {
		return reminder.Reminder{}, fmt.Errorf("usage: <number from /list or id>")
	}
	listed := r.listed
	if listed == nil {
		listed = r.app.Reminders.All()
	}
	return resolveRef(ref, listed, r.app.Reminders.All(), reminderID, reminder.ErrNotFound)
}
