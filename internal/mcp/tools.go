package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/replift/internal/analytics"
	"github.com/claude/replift/internal/tracker"
)

// defaultTimeRange returns start/end defaulting to the days before now.
// A date-only end covers that whole day.
func defaultTimeRange(startStr, endStr string, now time.Time, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		var dateOnly bool
		end, dateOnly, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if dateOnly {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
	} else {
		end = now
	}

	if startStr != "" {
		start, _, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, bool, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, false, nil
	}
	t, err = time.Parse(time.DateOnly, s)
	if err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}

const (
	defaultSessionDays = 30
	defaultRecords     = 10
)

// --- Tool definitions ---

var toolGetOverview = mcp.NewTool("get_overview",
	mcp.WithDescription("Dashboard headline: total sessions, sessions this month, current daily and weekly streaks, total volume (kg), heaviest lift, most trained exercise, last session date and this week's sessions and volume."),
)

var toolGetSummary = mcp.NewTool("get_summary",
	mcp.WithDescription("Full statistics: totals, average volume per session, average intensity (kg per rep), top personal records, favorite exercises, 30-day volume progression, this month vs last month, push/pull balance and monthly progression rate per exercise."),
)

var toolGetCalendar = mcp.NewTool("get_calendar",
	mcp.WithDescription("Monthly activity heatmap. Each day has its training volume, session count and an intensity bucket (none/low/medium/high) relative to the month's 33rd and 66th volume percentiles."),
	mcp.WithNumber("year", mcp.Description("Calendar year. Defaults to the current year.")),
	mcp.WithNumber("month", mcp.Description("Month 1-12. Defaults to the current month."), mcp.Min(1), mcp.Max(12)),
)

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("Heaviest single set ever logged per exercise, heaviest first, with the date it was first reached."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of records. Defaults to 10; 0 returns all.")),
)

var toolGetExerciseEvolution = mcp.NewTool("get_exercise_evolution",
	mcp.WithDescription("Per-session max weight of one exercise over a trailing period, with best and last weight and the first-to-last progression percentage."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exact exercise name as logged (e.g. 'Squat')")),
	mcp.WithString("period", mcp.Description("Trailing window. Defaults to 3m."), mcp.Enum("7d", "30d", "3m", "6m", "1y", "all")),
)

var toolListExerciseTrends = mcp.NewTool("list_exercise_trends",
	mcp.WithDescription("Every exercise with its first and last logged max weight and whether it is trending up, down or stable."),
)

var toolGetAchievements = mcp.NewTool("get_achievements",
	mcp.WithDescription("All badges with their earned status, plus the most recently earned ones."),
)

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("Logged workout sessions, most recent first, with every exercise and set (weight in kg, reps)."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days before end.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("program", mcp.Description("Filter by program name (partial match, case-insensitive)")),
)

// --- Tool handlers ---

func (h *handlers) getOverview(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	o, err := h.t.Overview(ctx)
	if err != nil {
		h.log.Error("mcp get_overview", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(o)
}

func (h *handlers) getSummary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := h.t.Summary(ctx)
	if err != nil {
		h.log.Error("mcp get_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(s)
}

func (h *handlers) getCalendar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year := req.GetInt("year", 0)
	month := req.GetInt("month", 0)
	if month < 0 || month > 12 {
		return mcp.NewToolResultError("month must be between 1 and 12"), nil
	}
	if year < 0 || year > 9999 {
		return mcp.NewToolResultError("invalid year"), nil
	}

	c, err := h.t.Calendar(ctx, year, time.Month(month))
	if err != nil {
		h.log.Error("mcp get_calendar", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(c)
}

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := h.t.Records(ctx, req.GetInt("limit", defaultRecords))
	if err != nil {
		h.log.Error("mcp get_personal_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(records)
}

func (h *handlers) getExerciseEvolution(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	period, err := analytics.ParsePeriod(req.GetString("period", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	series, err := h.t.Evolution(ctx, exercise, period)
	if err != nil {
		h.log.Error("mcp get_exercise_evolution", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(series)
}

func (h *handlers) listExerciseTrends(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trends, err := h.t.Evolutions(ctx)
	if err != nil {
		h.log.Error("mcp list_exercise_trends", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(trends)
}

func (h *handlers) getAchievements(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := h.t.Achievements(ctx)
	if err != nil {
		h.log.Error("mcp get_achievements", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(a)
}

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), time.Now(), defaultSessionDays)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sessions, err := h.t.Sessions(ctx, tracker.SessionFilter{
		Start:   start,
		End:     end,
		Program: req.GetString("program", ""),
	})
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
