// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/repowatch/repowatch/core"
	"github.com/repowatch/repowatch/internal/contract"
)

// NewMCPServer initializes and configures the Repowatch MCP server without
// starting it. This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, engine *core.Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"Repowatch Cache Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		engine:  engine,
	}

	// --- 1. Tool: get_project_snapshot ---
	s.AddTool(mcp.NewTool("get_project_snapshot",
		mcp.WithDescription("Get the merged in-memory snapshot of a project's cached repository data (commits, branches, contributors, dirty state)."),
		mcp.WithString("project_id", mcp.Description("Project identifier."), mcp.Required()),
		mcp.WithBoolean("refresh", mcp.Description("Trigger a cache refresh before returning the snapshot. Defaults to false.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of commits returned.")),
	), h.handleGetProjectSnapshot)

	// --- 2. Tool: refresh_project ---
	s.AddTool(mcp.NewTool("refresh_project",
		mcp.WithDescription("Refresh a project's cached repository data from disk. Repositories whose head moved are rescanned in the background."),
		mcp.WithString("project_id", mcp.Description("Project identifier."), mcp.Required()),
	), h.handleRefreshProject)

	// --- 3. Tool: get_cache_health ---
	s.AddTool(mcp.NewTool("get_cache_health",
		mcp.WithDescription("Summarize the durable cache health of a project: healthy, stale and errored repository counts plus cache age."),
		mcp.WithString("project_id", mcp.Description("Project identifier."), mcp.Required()),
		mcp.WithNumber("stale_hours", mcp.Description("Staleness threshold in hours. Defaults to 24.")),
	), h.handleGetCacheHealth)

	// --- 4. Tool: list_stale_repositories ---
	s.AddTool(mcp.NewTool("list_stale_repositories",
		mcp.WithDescription("List registered repositories whose cache entries are missing or older than the staleness threshold, oldest first."),
		mcp.WithNumber("stale_hours", mcp.Description("Staleness threshold in hours. Defaults to 24.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleListStaleRepositories)

	return s
}

// StartMCPServer starts the Repowatch MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, engine *core.Engine) error {
	s := NewMCPServer(baseCfg, engine)
	return server.ServeStdio(s)
}
