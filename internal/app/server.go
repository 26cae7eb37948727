package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/notexe/forget-me-not/internal/reminder"
)

const (
	serverName    = "forget-me-not"
	serverVersion = "1.0.0"
)

// Server is the MCP server exposing location reminders and todos.
type Server struct {
	mcpServer *server.MCPServer
	app       *App
}

// NewServer creates a new MCP server backed by the given engine.
func NewServer(app *App) *Server {
	s := &Server{
		app: app,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// add_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Add a reminder that fires when the device comes within the radius of a place"),
			mcp.WithString("text", mcp.Required(), mcp.Description("What to remember, e.g. 'Buy milk'")),
			mcp.WithString("location_name", mcp.Required(), mcp.Description("Place name, e.g. 'CVS Pharmacy'")),
			mcp.WithNumber("latitude", mcp.Required(), mcp.Description("Place latitude in degrees")),
			mcp.WithNumber("longitude", mcp.Required(), mcp.Description("Place longitude in degrees")),
			mcp.WithString("address", mcp.Description("Optional street address")),
			mcp.WithNumber("radius", mcp.Description("Trigger radius in meters (default: 200)")),
		),
		s.handleAddReminder,
	)

	// list_reminders
	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List reminders, newest first, optionally filtered by status"),
			mcp.WithString("status", mcp.Description("Filter by status: active, completed, or all (default: all)")),
		),
		s.handleListReminders,
	)

	// find_reminders_by_location
	s.mcpServer.AddTool(
		mcp.NewTool("find_reminders_by_location",
			mcp.WithDescription("Find reminders whose location name contains the query (case-insensitive)"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Part of the location name")),
		),
		s.handleFindByLocation,
	)

	// toggle_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("toggle_reminder",
			mcp.WithDescription("Mark a reminder as completed, or active again if it was completed"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleToggleReminder,
	)

	// delete_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder permanently"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleDeleteReminder,
	)

	// location_groups
	s.mcpServer.AddTool(
		mcp.NewTool("location_groups",
			mcp.WithDescription("Group reminders by location with active and completed counts"),
		),
		s.handleLocationGroups,
	)

	// report_location
	s.mcpServer.AddTool(
		mcp.NewTool("report_location",
			mcp.WithDescription("Report the current position; reminders in range fire and the evaluation result is returned"),
			mcp.WithNumber("latitude", mcp.Required(), mcp.Description("Current latitude in degrees")),
			mcp.WithNumber("longitude", mcp.Required(), mcp.Description("Current longitude in degrees")),
		),
		s.handleReportLocation,
	)

	// geofence_status
	s.mcpServer.AddTool(
		mcp.NewTool("geofence_status",
			mcp.WithDescription("Show geofencing session state, permissions and reminder counts"),
		),
		s.handleStatus,
	)

	s.registerTodoTools()
}

func (s *Server) handleAddReminder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if _, ok := args["latitude"]; !ok {
		return mcp.NewToolResultError("latitude is required"), nil
	}
	if _, ok := args["longitude"]; !ok {
		return mcp.NewToolResultError("longitude is required"), nil
	}

	radius := req.GetFloat("radius", 0)
	if radius != math.Trunc(radius) {
		return mcp.NewToolResultError(fmt.Sprintf("radius must be a whole number of meters, got %g", radius)), nil
	}

	loc := reminder.Location{
		Name:      req.GetString("location_name", ""),
		Address:   req.GetString("address", ""),
		Latitude:  req.GetFloat("latitude", 0),
		Longitude: req.GetFloat("longitude", 0),
		Radius:    int(radius),
	}

	added, err := s.app.Reminders.Create(req.GetString("text", ""), loc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add reminder: %v", err)), nil
	}

	return jsonResult(added)
}

func (s *Server) handleListReminders(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var reminders []reminder.Reminder
	switch status := req.GetString("status", "all"); status {
	case "active":
		reminders = s.app.Reminders.ListActive()
	case "completed":
		reminders = s.app.Reminders.ListCompleted()
	case "all", "":
		reminders = s.app.Reminders.All()
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid status %q (use active, completed or all)", status)), nil
	}

	if len(reminders) == 0 {
		return mcp.NewToolResultText("No reminders found."), nil
	}

	return jsonResult(reminders)
}

func (s *Server) handleFindByLocation(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	reminders := s.app.Reminders.ListByLocationNameContains(query)
	if len(reminders) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No reminders at a location matching %q.", query)), nil
	}

	return jsonResult(reminders)
}

func (s *Server) handleToggleReminder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	updated, err := s.app.Reminders.ToggleCompleted(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(updated)
}

func (s *Server) handleDeleteReminder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	if err := s.app.Reminders.Delete(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Reminder %s deleted.", id)), nil
}

func (s *Server) handleLocationGroups(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups := s.app.Reminders.GroupByLocation()
	if len(groups) == 0 {
		return mcp.NewToolResultText("No locations yet."), nil
	}

	return jsonResult(groups)
}

func (s *Server) handleReportLocation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if _, ok := args["latitude"]; !ok {
		return mcp.NewToolResultError("latitude is required"), nil
	}
	if _, ok := args["longitude"]; !ok {
		return mcp.NewToolResultError("longitude is required"), nil
	}

	res, err := s.app.CheckProximity(ctx, req.GetFloat("latitude", 0), req.GetFloat("longitude", 0))
	if err != nil {
		var verr *reminder.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("location not evaluated: %v", err)), nil
	}

	return jsonResult(res)
}

func (s *Server) handleStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.app.Status())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(output)), nil
}
