package snow

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func NewExecuteScriptTool() mcp.Tool {
	return mcp.NewTool("execute_script",
		mcp.WithDescription("Execute a background script on the instance after security screening.\n\n"+
			"Scripts are screened against a blacklist of unsafe patterns before anything is sent. "+
			"Detected dangerous operations (bulk delete/update, workflow bypass, forced update) "+
			"must be acknowledged with confirm=true.\n\n"+
			"Test mode limits the number of returned records and adds advisory warnings for "+
			"write operations; it does not prevent writes."),
		mcp.WithString("script",
			mcp.Required(),
			mcp.Description("The script text to execute"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Optional timeout in seconds, clamped to [1, 60] (default: 30)"),
		),
		mcp.WithBoolean("test_mode",
			mcp.Description("Limit returned records and warn about write operations"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Test-mode record cap, clamped to [1, 1000] (default: 100)"),
		),
		mcp.WithBoolean("confirm",
			mcp.Description("Acknowledge detected dangerous operations and run anyway"),
		),
	)
}

func NewValidateScriptIncludeTool() mcp.Tool {
	return mcp.NewTool("validate_script_include",
		mcp.WithDescription("Statically screen reusable script include code. Blacklist matches are "+
			"errors; discouraged patterns (legacy record iteration, print-style logging) are warnings."),
		mcp.WithString("script",
			mcp.Required(),
			mcp.Description("The script include source to screen"),
		),
	)
}

func NewQueryTableTool() mcp.Tool {
	return mcp.NewTool("query_table",
		mcp.WithDescription("Query records from a table. Accepts table names or friendly aliases "+
			"(users, groups, incidents, tasks, pages, widgets)."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name or alias (e.g. 'incident', 'users')"),
		),
		mcp.WithString("query",
			mcp.Description("Encoded query string (sysparm_query)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of records to return"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of records to skip"),
		),
		mcp.WithString("fields",
			mcp.Description("Comma-separated list of fields to return"),
		),
		mcp.WithString("display_value",
			mcp.Description("sysparm_display_value: true, false, or all"),
		),
	)
}

func NewGetRecordTool() mcp.Tool {
	return mcp.NewTool("get_record",
		mcp.WithDescription("Fetch a single record by sys_id."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name or alias"),
		),
		mcp.WithString("sys_id",
			mcp.Required(),
			mcp.Description("The record sys_id"),
		),
	)
}

func NewCreateRecordTool() mcp.Tool {
	return mcp.NewTool("create_record",
		mcp.WithDescription("Create a record in a table."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name or alias"),
		),
		mcp.WithObject("fields",
			mcp.Required(),
			mcp.Description("Field name/value pairs for the new record"),
		),
	)
}

func NewUpdateRecordTool() mcp.Tool {
	return mcp.NewTool("update_record",
		mcp.WithDescription("Update a record by sys_id."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name or alias"),
		),
		mcp.WithString("sys_id",
			mcp.Required(),
			mcp.Description("The record sys_id"),
		),
		mcp.WithObject("fields",
			mcp.Required(),
			mcp.Description("Field name/value pairs to set"),
		),
	)
}

func NewDeleteRecordTool() mcp.Tool {
	return mcp.NewTool("delete_record",
		mcp.WithDescription("Delete a record by sys_id."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name or alias"),
		),
		mcp.WithString("sys_id",
			mcp.Required(),
			mcp.Description("The record sys_id"),
		),
	)
}
