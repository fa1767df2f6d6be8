package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/servicenow-community/servicenow-mcp/pkg/snow"
)

type executeScriptResponse struct {
	Success     bool     `json:"success"`
	Data        any      `json:"data,omitempty"`
	Logs        []string `json:"logs,omitempty"`
	RecordCount int      `json:"recordCount"`
	Truncated   bool     `json:"truncated"`
	DurationMS  int64    `json:"durationMs"`
}

// ExecuteScriptHandler runs the full execution pipeline. Dangerous
// operations detected by screening must be acknowledged with confirm=true
// before anything is sent to the backend.
func ExecuteScriptHandler(executor *snow.Executor, validator *snow.ScriptValidator, defaultMaxResults int) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		script, err := request.RequireString("script")
		if err != nil {
			return mcp.NewToolResultError("script is required"), nil
		}

		confirm := request.GetBool("confirm", false)
		validation := validator.Validate(script)
		if validation.Safe && len(validation.DangerousOperations) > 0 && !confirm {
			names := make([]string, 0, len(validation.DangerousOperations))
			for _, op := range validation.DangerousOperations {
				names = append(names, op.Message)
			}
			return mcp.NewToolResultError(fmt.Sprintf(
				"script contains dangerous operations (%s); re-run with confirm=true to proceed",
				strings.Join(names, ", "))), nil
		}

		opts := snow.ExecutionOptions{
			Timeout:    time.Duration(request.GetFloat("timeout", 0) * float64(time.Second)),
			TestMode:   request.GetBool("test_mode", false),
			MaxResults: request.GetInt("max_results", defaultMaxResults),
		}

		result := executor.Execute(ctx, script, opts)
		if !result.Success {
			return mcp.NewToolResultError(result.Error), nil
		}

		return marshalResult(executeScriptResponse{
			Success:     true,
			Data:        result.Data,
			Logs:        result.Logs,
			RecordCount: result.RecordCount,
			Truncated:   result.Truncated,
			DurationMS:  result.Duration.Milliseconds(),
		})
	}
}

func ValidateScriptIncludeHandler(validator *snow.ScriptValidator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		script, err := request.RequireString("script")
		if err != nil {
			return mcp.NewToolResultError("script is required"), nil
		}
		return marshalResult(validator.ValidateScriptInclude(script))
	}
}

func QueryTableHandler(client *snow.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table is required"), nil
		}

		opts := &snow.QueryOptions{
			Query:        request.GetString("query", ""),
			Limit:        request.GetInt("limit", 0),
			Offset:       request.GetInt("offset", 0),
			DisplayValue: request.GetString("display_value", ""),
		}
		if fields := request.GetString("fields", ""); fields != "" {
			opts.Fields = strings.Split(fields, ",")
		}

		records, err := client.Get(ctx, snow.ResolveTable(table), opts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalResult(records)
	}
}

func GetRecordHandler(client *snow.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table is required"), nil
		}
		sysID, err := request.RequireString("sys_id")
		if err != nil {
			return mcp.NewToolResultError("sys_id is required"), nil
		}

		record, err := client.GetByID(ctx, snow.ResolveTable(table), sysID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalResult(record)
	}
}

func CreateRecordHandler(client *snow.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table is required"), nil
		}
		fields, ok := request.GetArguments()["fields"].(map[string]any)
		if !ok || len(fields) == 0 {
			return mcp.NewToolResultError("fields must be a non-empty object"), nil
		}

		record, err := client.Post(ctx, snow.ResolveTable(table), fields)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalResult(record)
	}
}

func UpdateRecordHandler(client *snow.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table is required"), nil
		}
		sysID, err := request.RequireString("sys_id")
		if err != nil {
			return mcp.NewToolResultError("sys_id is required"), nil
		}
		fields, ok := request.GetArguments()["fields"].(map[string]any)
		if !ok || len(fields) == 0 {
			return mcp.NewToolResultError("fields must be a non-empty object"), nil
		}

		record, err := client.Put(ctx, snow.ResolveTable(table), sysID, fields)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalResult(record)
	}
}

func DeleteRecordHandler(client *snow.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table is required"), nil
		}
		sysID, err := request.RequireString("sys_id")
		if err != nil {
			return mcp.NewToolResultError("sys_id is required"), nil
		}

		if err := client.Delete(ctx, snow.ResolveTable(table), sysID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("record %s deleted", sysID)), nil
	}
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
