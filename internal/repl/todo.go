package repl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notexe/forget-me-not/internal/todo"
)

const todoUsage = "usage: /todo add <text> [by YYYY-MM-DD] | list [active|completed|due|all] | done <n|id> | rm <n|id> | day [YYYY-MM-DD] | history [today|week|month|all] | clear"

func (r *REPL) handleTodo(args string) error {
	sub, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	rest = strings.TrimSpace(rest)
	ctx := context.Background()

	switch strings.ToLower(sub) {
	case "add":
		text, due, err := parseTodoAdd(rest, time.Local)
		if err != nil {
			return err
		}
		t, err := r.app.Todos.Add(ctx, text, due)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Added todo: %s", t.Text)
		if t.DueDate != nil {
			msg += fmt.Sprintf(" (due %s)", t.DueDate.Format(time.DateOnly))
		}
		r.displaySystem(msg)
		return nil

	case "list", "ls", "":
		return r.handleTodoList(rest)

	case "done", "toggle":
		t, err := r.resolveTodo(rest)
		if err != nil {
			return err
		}
		updated, err := r.app.Todos.Toggle(ctx, t.ID)
		if err != nil {
			return err
		}
		if updated.Completed {
			r.displaySystem(fmt.Sprintf("Completed: %s", updated.Text))
		} else {
			r.displaySystem(fmt.Sprintf("Reopened: %s", updated.Text))
		}
		return nil

	case "rm", "delete":
		t, err := r.resolveTodo(rest)
		if err != nil {
			return err
		}
		if err := r.app.Todos.Delete(ctx, t.ID); err != nil {
			return err
		}
		r.displaySystem(fmt.Sprintf("Deleted todo: %s", t.Text))
		return nil

	case "day":
		day := time.Now()
		if rest != "" {
			d, err := todo.ParseDate(rest, time.Local)
			if err != nil {
				return err
			}
			day = d
		}
		r.listedTodos = r.app.Todos.OnDate(day)
		r.print(r.formatter.FormatTodoList(day.Format("Monday, January 2, 2006"), r.listedTodos, time.Now()))
		return nil

	case "history":
		filter, err := todo.ParseFilter(rest)
		if err != nil {
			return err
		}
		r.listedTodos = r.app.Todos.History(filter, time.Now())
		r.print(r.formatter.FormatTodoList("Completed "+string(filter), r.listedTodos, time.Now()))
		return nil

	case "clear":
		n := r.app.Todos.ClearCompleted(ctx)
		r.listedTodos = nil
		r.displaySystem(fmt.Sprintf("Cleared %d completed todos.", n))
		return nil

	default:
		return errors.New(todoUsage)
	}
}

func (r *REPL) handleTodoList(args string) error {
	now := time.Now()
	title := "Todos"
	switch strings.ToLower(args) {
	case "", "all":
		r.listedTodos = r.app.Todos.All()
	case "active":
		title = "Open todos"
		r.listedTodos = r.app.Todos.ListActive()
	case "completed", "done":
		title = "Completed todos"
		r.listedTodos = r.app.Todos.ListCompleted()
	case "due":
		title = "Overdue"
		r.listedTodos = nil
		for _, t := range r.app.Todos.ListActive() {
			if t.Overdue(now) {
				r.listedTodos = append(r.listedTodos, t)
			}
		}
	default:
		return fmt.Errorf("usage: /todo list [active|completed|due|all]")
	}

	r.print(r.formatter.FormatTodoList(title, r.listedTodos, now))
	return nil
}

// resolveTodo finds the todo a user typed: a number from the last todo
// listing or a unique id prefix.
func (r *REPL) resolveTodo(ref string) (todo.Todo, error) {
	if ref == "" {
		return todo.Todo{}, fmt.Errorf("usage: <number from /todo list or id>")
	}
	listed := r.listedTodos
	if listed == nil {
		listed = r.app.Todos.All()
	}
	return resolveRef(ref, listed, r.app.Todos.All(), todoID, todo.ErrNotFound)
}
