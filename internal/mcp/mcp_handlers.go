package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/repowatch/repowatch/core"
	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	engine  *core.Engine
}

func (h *toolHandler) handleGetProjectSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id is required"), nil
	}

	mgr := h.engine.Manager
	snapshot := mgr.GetCachedData(projectID)
	if snapshot == nil {
		if _, err := mgr.LoadFromDurableCache(ctx, projectID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cache load failed: %v", err)), nil
		}
		snapshot = mgr.GetCachedData(projectID)
	}

	if request.GetBool("refresh", false) {
		if err := mgr.RefreshGitData(ctx, projectID, true); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("refresh failed: %v", err)), nil
		}
		snapshot = mgr.GetCachedData(projectID)
	}

	if snapshot == nil {
		snapshot = &schema.ProjectSnapshot{ProjectID: projectID}
	}
	if l := request.GetInt("limit", 0); l > 0 && l < len(snapshot.Commits) {
		trimmed := *snapshot
		trimmed.Commits = snapshot.Commits[:l]
		snapshot = &trimmed
	}

	jsonData, _ := json.MarshalIndent(snapshot, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleRefreshProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id is required"), nil
	}

	if err := h.engine.Manager.RefreshGitData(ctx, projectID, true); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("refresh failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("refresh started for project %s", projectID)), nil
}

func (h *toolHandler) handleGetCacheHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id is required"), nil
	}

	threshold := h.baseCfg.StaleThreshold
	if hours := request.GetFloat("stale_hours", 0); hours > 0 {
		threshold = time.Duration(hours * float64(time.Hour))
	}

	health, err := h.engine.Manager.Health(ctx, projectID, threshold)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("health check failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(health, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListStaleRepositories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threshold := h.baseCfg.StaleThreshold
	if hours := request.GetFloat("stale_hours", 0); hours > 0 {
		threshold = time.Duration(hours * float64(time.Hour))
	}

	refs, err := h.engine.Store.ListOlderThan(ctx, threshold)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stale listing failed: %v", err)), nil
	}
	if l := request.GetInt("limit", 0); l > 0 && l < len(refs) {
		refs = refs[:l]
	}

	jsonData, _ := json.MarshalIndent(refs, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
