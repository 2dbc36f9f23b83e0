package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(t Tracker, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepLift", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepLift strength training log. Query training totals, personal records, streaks, the monthly activity calendar, per-exercise progression and achievements. Weights are in kilograms and volume is weight × reps summed over sets."),
	)

	h := &handlers{t: t, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetOverview, Handler: h.getOverview},
		server.ServerTool{Tool: toolGetSummary, Handler: h.getSummary},
		server.ServerTool{Tool: toolGetCalendar, Handler: h.getCalendar},
		server.ServerTool{Tool: toolGetPersonalRecords, Handler: h.getPersonalRecords},
		server.ServerTool{Tool: toolGetExerciseEvolution, Handler: h.getExerciseEvolution},
		server.ServerTool{Tool: toolListExerciseTrends, Handler: h.listExerciseTrends},
		server.ServerTool{Tool: toolGetAchievements, Handler: h.getAchievements},
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resOverview, Handler: h.overview},
		server.ServerResource{Resource: resPrograms, Handler: h.programs},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	t   Tracker
	log *slog.Logger
}

// --- Resource definitions ---

var resOverview = mcp.NewResource(
	"replift://overview",
	"Training Overview",
	mcp.WithResourceDescription("Headline numbers: total sessions, sessions this month, daily and weekly streaks, total volume, heaviest lift and this week's activity"),
	mcp.WithMIMEType("application/json"),
)

var resPrograms = mcp.NewResource(
	"replift://programs",
	"Programs",
	mcp.WithResourceDescription("Workout program templates with their exercises and planned sets"),
	mcp.WithMIMEType("application/json"),
)
