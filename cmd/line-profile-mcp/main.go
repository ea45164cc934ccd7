package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ironsheep/line-profile-mcp/internal/config"
	"github.com/ironsheep/line-profile-mcp/internal/profile"
	"github.com/ironsheep/line-profile-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("line-profile-mcp %s\n", config.NormalizeVersion(Version))
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("line-profile-mcp - MCP server for edge profiles along a line")
			fmt.Println()
			fmt.Println("Usage: line-profile-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from ./.env):")
			fmt.Println("  LINE_PROFILE_LOG_LEVEL=warn        debug, info, warn or error")
			fmt.Println("  LINE_PROFILE_DISPLAY_WIDTH=800     Display box width")
			fmt.Println("  LINE_PROFILE_DISPLAY_HEIGHT=600    Display box height")
			fmt.Println("  LINE_PROFILE_MAX_VALUE=255         Scalar clamp")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	profile.SetLogger(logger)

	if cfg.LogLevel <= slog.LevelDebug {
		log.Printf("Line Profile MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	srv := server.New(cfg, Version, logger)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
