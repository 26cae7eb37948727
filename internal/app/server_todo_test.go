package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/notexe/forget-me-not/internal/todo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerTodos(t *testing.T) {
	s, _ := newTestServer(t)

	text, isErr := call(t, s.handleAddTodo, map[string]any{"text": "File taxes", "due_date": "2020-04-15"})
	require.False(t, isErr, text)
	var taxes todo.Todo
	require.NoError(t, json.Unmarshal([]byte(text), &taxes))
	require.NotNil(t, taxes.DueDate)
	assert.Equal(t, "2020-04-15", taxes.DueDate.Format(time.DateOnly))

	text, isErr = call(t, s.handleAddTodo, map[string]any{"text": "Call mom"})
	require.False(t, isErr, text)
	var mom todo.Todo
	require.NoError(t, json.Unmarshal([]byte(text), &mom))

	text, _ = call(t, s.handleListTodos, map[string]any{"status": "due"})
	assert.Contains(t, text, taxes.ID)
	assert.NotContains(t, text, mom.ID)

	text, _ = call(t, s.handleTodosOnDate, map[string]any{"date": "2020-04-15"})
	assert.Contains(t, text, taxes.ID)
	text, _ = call(t, s.handleTodosOnDate, map[string]any{"date": time.Now().Format(time.DateOnly)})
	assert.Contains(t, text, mom.ID)

	text, isErr = call(t, s.handleToggleTodo, map[string]any{"id": mom.ID})
	require.False(t, isErr)
	assert.Contains(t, text, `"completed": true`)

	text, _ = call(t, s.handleTodoHistory, map[string]any{"filter": "today"})
	assert.Contains(t, text, mom.ID)
	_, isErr = call(t, s.handleTodoHistory, map[string]any{"filter": "decade"})
	assert.True(t, isErr)

	text, _ = call(t, s.handleClearCompletedTodos, nil)
	assert.Equal(t, "Cleared 1 completed todos.", text)

	text, _ = call(t, s.handleListTodos, nil)
	assert.Contains(t, text, taxes.ID)
	assert.NotContains(t, text, mom.ID)

	_, isErr = call(t, s.handleDeleteTodo, map[string]any{"id": taxes.ID})
	require.False(t, isErr)
	text, _ = call(t, s.handleListTodos, map[string]any{"status": "all"})
	assert.Equal(t, "No todos found.", text)
}

func TestServerTodoValidation(t *testing.T) {
	s, _ := newTestServer(t)

	text, isErr := call(t, s.handleAddTodo, map[string]any{"text": " "})
	assert.True(t, isErr)
	assert.Contains(t, text, "invalid todo")

	text, isErr = call(t, s.handleAddTodo, map[string]any{"text": "File taxes", "due_date": "someday"})
	assert.True(t, isErr)
	assert.Contains(t, text, "YYYY-MM-DD")

	_, isErr = call(t, s.handleToggleTodo, map[string]any{"id": "missing"})
	assert.True(t, isErr)
	_, isErr = call(t, s.handleDeleteTodo, map[string]any{})
	assert.True(t, isErr)
	_, isErr = call(t, s.handleListTodos, map[string]any{"status": "later"})
	assert.True(t, isErr)
	_, isErr = call(t, s.handleTodosOnDate, map[string]any{})
	assert.True(t, isErr)
	assert.Zero(t, s.app.Todos.Count())
}
