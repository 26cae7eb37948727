// Command mcp-reminder provides an MCP server for location-based reminders.
//
// This server exposes tools for adding, listing, completing and deleting
// reminders tied to places, and for reporting the current position so that
// reminders in range fire. A due-date todo list is exposed alongside.
//
// Usage:
//
//	./mcp-reminder          # Start MCP server (stdio)
//	./mcp-reminder --help   # Show help
//
// Environment:
//
//	FMN_CONFIG  Path to the configuration file (default: ~/.forget-me-not/config.yaml)
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/notexe/forget-me-not/internal/app"
	"github.com/notexe/forget-me-not/internal/config"
	"github.com/notexe/forget-me-not/internal/logging"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--help", "-h":
			printHelp()
			return
		}
	}

	configPath := os.Getenv("FMN_CONFIG")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// stdout carries the MCP protocol; console alerts go to stderr.
	engine, err := app.New(ctx, cfg, logger, app.WithConsoleOutput(os.Stderr))
	if err != nil {
		logger.Error("failed to start engine", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelClose()
		if err := engine.Close(closeCtx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	engine.Start(ctx)
	go engine.Run(ctx)

	s := app.NewServer(engine)

	if err := server.ServeStdio(s.MCPServer()); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

func printHelp() {
	fmt.Println(`MCP Forget-Me-Not Server - Location reminders via MCP protocol

USAGE:
    mcp-reminder          Start MCP server (communicates via stdio)
    mcp-reminder --help   Show this help

ENVIRONMENT:
    FMN_CONFIG            Path to the configuration file
                          Default: ~/.forget-me-not/config.yaml
    FMN_STORE__BACKEND    Storage backend: sqlite, redis or memory
    TELEGRAM_BOT_TOKEN    Deliver alerts through a Telegram bot
    TELEGRAM_CHAT_ID      Chat receiving the alerts

TOOLS:
    add_reminder                Add a reminder for a place (text, location_name, latitude, longitude, radius)
    list_reminders              List reminders (status: active, completed, all)
    find_reminders_by_location  Find reminders by place name
    toggle_reminder             Complete or reopen a reminder
    delete_reminder             Delete a reminder permanently
    location_groups             Reminders grouped by place
    report_location             Report the current position and fire reminders in range
    geofence_status             Session state, permissions and counts
    add_todo                    Add a todo (text, due_date YYYY-MM-DD)
    list_todos                  List todos (status: active, completed, due, all)
    toggle_todo                 Complete or reopen a todo
    delete_todo                 Delete a todo permanently
    todos_on_date               Todos created or due on a day
    todo_history                Completed todos (filter: today, week, month, all)
    clear_completed_todos       Delete every completed todo

CONFIGURATION:
    Add to your MCP client configuration:
    {
      "mcpServers": {
        "forget-me-not": {
          "command": "/path/to/mcp-reminder",
          "args": []
        }
      }
    }`)
}
