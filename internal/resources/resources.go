// Package resources implements MCP resource handlers for the project.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (context://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/context-engine/internal/config"
	"github.com/HendryAvila/context-engine/internal/tasklist"
)

// Resource URIs.
const (
	ConfigURI  = "context://project/config"
	TasksURI   = "context://docs/tasks"
	WorkLogURI = "context://docs/worklog"
)

// Handler serves the project resources.
type Handler struct {
	cfg *config.ProjectConfig
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(cfg *config.ProjectConfig) *Handler {
	return &Handler{cfg: cfg}
}

// ConfigResource returns the MCP resource definition for the resolved config.
func (h *Handler) ConfigResource() mcp.Resource {
	return mcp.NewResource(
		ConfigURI,
		"Project Configuration",
		mcp.WithResourceDescription("Resolved project root, commands, document roles and model settings"),
		mcp.WithMIMEType("application/json"),
	)
}

// configView is the JSON shape of the config resource.
type configView struct {
	*config.ProjectConfig
	Tasks tasklist.Summary `json:"tasks"`
}

// HandleConfig returns the resolved configuration plus a task summary as JSON.
func (h *Handler) HandleConfig(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sum, err := tasklist.New(h.cfg.DocFile(config.RoleTasks), nil).Summarize()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(configView{ProjectConfig: h.cfg, Tasks: sum}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// TasksResource returns the MCP resource definition for the task list.
func (h *Handler) TasksResource() mcp.Resource {
	return mcp.NewResource(
		TasksURI,
		"Task List",
		mcp.WithResourceDescription(fmt.Sprintf("The task list (%s) with its status markers", h.cfg.GetDocPath(config.RoleTasks))),
		mcp.WithMIMEType("text/markdown"),
	)
}

// HandleTasks returns the task list document.
func (h *Handler) HandleTasks(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return h.docResource(req.Params.URI, config.RoleTasks)
}

// WorkLogResource returns the MCP resource definition for the work log.
func (h *Handler) WorkLogResource() mcp.Resource {
	return mcp.NewResource(
		WorkLogURI,
		"Work Log",
		mcp.WithResourceDescription(fmt.Sprintf("The append-only work log (%s)", h.cfg.GetDocPath(config.RoleLog))),
		mcp.WithMIMEType("text/markdown"),
	)
}

// HandleWorkLog returns the work log document.
func (h *Handler) HandleWorkLog(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return h.docResource(req.Params.URI, config.RoleLog)
}

func (h *Handler) docResource(uri, role string) ([]mcp.ResourceContents, error) {
	data, err := os.ReadFile(h.cfg.DocFile(role))
	if os.IsNotExist(err) {
		return errorResource(uri, fmt.Sprintf("%s not found", h.cfg.GetDocPath(role))), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", role, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
