// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/pdwatch/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// familyValues lists the accepted family argument values.
var familyValues = []string{"family", "employment"}

// dimensionValues lists the accepted dimension argument values.
var dimensionValues = []string{"final_action_dates", "dates_for_filing"}

// NewHandler builds one stateless MCP adapter exposing the priority date tools.
func NewHandler(cfg Config, service common.Service) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("priority date service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerCatalogTool(mcpSrv, service)
	registerCheckTool(mcpSrv, service)
	registerTrendTool(mcpSrv, service)
	registerCutoffTool(mcpSrv, service)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "pdwatch"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerCatalogTool registers the `pdwatch.list_categories` tool.
func registerCatalogTool(srv *mcpserver.MCPServer, service common.Service) {
	srv.AddTool(
		mcp.NewTool(
			"pdwatch.list_categories",
			mcp.WithDescription("List visa families, their preference categories and the chargeability countries."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			catalog, err := service.ListCategories(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(catalog)
			if err != nil {
				return nil, fmt.Errorf("encode list_categories result: %w", err)
			}
			return result, nil
		},
	)
}

// registerCheckTool registers the `pdwatch.check_priority_date` tool.
func registerCheckTool(srv *mcpserver.MCPServer, service common.Service) {
	srv.AddTool(
		mcp.NewTool(
			"pdwatch.check_priority_date",
			mcp.WithDescription("Evaluate a priority date against the loaded visa bulletin and project the green card timeline."),
			mcp.WithString("family", mcp.Required(), mcp.Description("Visa family"), mcp.Enum(familyValues...)),
			mcp.WithString("category", mcp.Required(), mcp.Description("Preference category label such as F2A or EB2")),
			mcp.WithString("country", mcp.Required(), mcp.Description("Country of chargeability")),
			mcp.WithString("priority_date", mcp.Required(), mcp.Description("Priority date as YYYY-MM-DD")),
			mcp.WithNumber("perm_days", mcp.Description("Optional PERM processing days override")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			family, err := req.RequireString("family")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			category, err := req.RequireString("category")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			country, err := req.RequireString("country")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			priorityDate, err := req.RequireString("priority_date")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			report, err := service.CheckPriorityDate(ctx, common.CheckRequest{
				Family:       family,
				Category:     category,
				Country:      country,
				PriorityDate: priorityDate,
				PermDays:     req.GetInt("perm_days", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(report)
			if err != nil {
				return nil, fmt.Errorf("encode check_priority_date result: %w", err)
			}
			return result, nil
		},
	)
}

// registerTrendTool registers the `pdwatch.bulletin_trend` tool.
func registerTrendTool(srv *mcpserver.MCPServer, service common.Service) {
	srv.AddTool(
		mcp.NewTool(
			"pdwatch.bulletin_trend",
			mcp.WithDescription("Compare one category and country across the most recent stored bulletins."),
			mcp.WithString("family", mcp.Required(), mcp.Description("Visa family"), mcp.Enum(familyValues...)),
			mcp.WithString("category", mcp.Required(), mcp.Description("Preference category label")),
			mcp.WithString("country", mcp.Required(), mcp.Description("Country of chargeability")),
			mcp.WithString("dimension", mcp.Description("Bulletin chart (defaults to final_action_dates)"), mcp.Enum(dimensionValues...)),
			mcp.WithNumber("months", mcp.Description("Number of bulletins to compare")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			family, err := req.RequireString("family")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			category, err := req.RequireString("category")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			country, err := req.RequireString("country")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			trend, err := service.BulletinTrend(ctx, common.TrendRequest{
				Family:    family,
				Category:  category,
				Country:   country,
				Dimension: req.GetString("dimension", ""),
				Months:    req.GetInt("months", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(trend)
			if err != nil {
				return nil, fmt.Errorf("encode bulletin_trend result: %w", err)
			}
			return result, nil
		},
	)
}

// registerCutoffTool registers the `pdwatch.current_cutoff` tool.
func registerCutoffTool(srv *mcpserver.MCPServer, service common.Service) {
	srv.AddTool(
		mcp.NewTool(
			"pdwatch.current_cutoff",
			mcp.WithDescription("Return cutoff cells of the loaded bulletin, optionally filtered by category and country."),
			mcp.WithString("family", mcp.Required(), mcp.Description("Visa family"), mcp.Enum(familyValues...)),
			mcp.WithString("dimension", mcp.Description("Bulletin chart (defaults to final_action_dates)"), mcp.Enum(dimensionValues...)),
			mcp.WithString("category", mcp.Description("Preference category label")),
			mcp.WithString("country", mcp.Description("Country of chargeability")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			family, err := req.RequireString("family")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			bulletin, err := service.CurrentCutoff(ctx, common.BulletinRequest{
				Family:    family,
				Dimension: req.GetString("dimension", ""),
				Category:  req.GetString("category", ""),
				Country:   req.GetString("country", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(bulletin)
			if err != nil {
				return nil, fmt.Errorf("encode current_cutoff result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP tool error results.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrBootstrapRequired):
		return mcp.NewToolResultError("bootstrap_required: " + err.Error())
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrUpstreamUnavailable):
		return mcp.NewToolResultError("upstream_unavailable: " + err.Error())
	case errors.Is(err, common.ErrConfiguration):
		return mcp.NewToolResultError("configuration_error: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
