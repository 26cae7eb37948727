package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/notexe/forget-me-not/internal/todo"
)

func (s *Server) registerTodoTools() {
	// add_todo
	s.mcpServer.AddTool(
		mcp.NewTool("add_todo",
			mcp.WithDescription("Add a task to the todo list, optionally with a due date"),
			mcp.WithString("text", mcp.Required(), mcp.Description("The task")),
			mcp.WithString("due_date", mcp.Description("Due date as YYYY-MM-DD or RFC 3339")),
		),
		s.handleAddTodo,
	)

	// list_todos
	s.mcpServer.AddTool(
		mcp.NewTool("list_todos",
			mcp.WithDescription("List todos, newest first, optionally filtered by status"),
			mcp.WithString("status", mcp.Description("Filter by status: active, completed, due, or all (default: all)")),
		),
		s.handleListTodos,
	)

	// toggle_todo
	s.mcpServer.AddTool(
		mcp.NewTool("toggle_todo",
			mcp.WithDescription("Mark a todo as completed, or open again if it was completed"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Todo ID")),
		),
		s.handleToggleTodo,
	)

	// delete_todo
	s.mcpServer.AddTool(
		mcp.NewTool("delete_todo",
			mcp.WithDescription("Delete a todo permanently"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Todo ID")),
		),
		s.handleDeleteTodo,
	)

	// todos_on_date
	s.mcpServer.AddTool(
		mcp.NewTool("todos_on_date",
			mcp.WithDescription("List todos created or due on a calendar day"),
			mcp.WithString("date", mcp.Required(), mcp.Description("Day as YYYY-MM-DD")),
		),
		s.handleTodosOnDate,
	)

	// todo_history
	s.mcpServer.AddTool(
		mcp.NewTool("todo_history",
			mcp.WithDescription("List completed todos, optionally only those completed today, this week or this month"),
			mcp.WithString("filter", mcp.Description("all, today, week (7 days) or month (30 days); default all")),
		),
		s.handleTodoHistory,
	)

	// clear_completed_todos
	s.mcpServer.AddTool(
		mcp.NewTool("clear_completed_todos",
			mcp.WithDescription("Delete every completed todo"),
		),
		s.handleClearCompletedTodos,
	)
}

func (s *Server) handleAddTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var due *time.Time
	if raw := req.GetString("due_date", ""); raw != "" {
		d, err := todo.ParseDate(raw, time.Local)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		due = &d
	}

	added, err := s.app.Todos.Add(ctx, req.GetString("text", ""), due)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add todo: %v", err)), nil
	}

	return jsonResult(added)
}

func (s *Server) handleListTodos(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var todos []todo.Todo
	switch status := req.GetString("status", "all"); status {
	case "active":
		todos = s.app.Todos.ListActive()
	case "completed":
		todos = s.app.Todos.ListCompleted()
	case "due":
		now := s.app.now()
		for _, t := range s.app.Todos.ListActive() {
			if t.Overdue(now) {
				todos = append(todos, t)
			}
		}
	case "all", "":
		todos = s.app.Todos.All()
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid status %q (use active, completed, due or all)", status)), nil
	}

	if len(todos) == 0 {
		return mcp.NewToolResultText("No todos found."), nil
	}

	return jsonResult(todos)
}

func (s *Server) handleToggleTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	updated, err := s.app.Todos.Toggle(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(updated)
}

func (s *Server) handleDeleteTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	if err := s.app.Todos.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Todo %s deleted.", id)), nil
}

func (s *Server) handleTodosOnDate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("date", "")
	if raw == "" {
		return mcp.NewToolResultError("date is required"), nil
	}
	day, err := todo.ParseDate(raw, time.Local)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	todos := s.app.Todos.OnDate(day)
	if len(todos) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No todos for %s.", day.Format(time.DateOnly))), nil
	}

	return jsonResult(todos)
}

func (s *Server) handleTodoHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, err := todo.ParseFilter(req.GetString("filter", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	todos := s.app.Todos.History(filter, s.app.now())
	if len(todos) == 0 {
		return mcp.NewToolResultText("No completed todos."), nil
	}

	return jsonResult(todos)
}

func (s *Server) handleClearCompletedTodos(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := s.app.Todos.ClearCompleted(ctx)
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %d completed todos.", n)), nil
}
