package snow

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ScriptExecutor is the transport surface the orchestrator depends on;
// *Client implements it.
type ScriptExecutor interface {
	ExecuteScript(ctx context.Context, req ScriptRequest) (*ScriptResult, error)
}

// Matches method calls that write records. Used only for the test-mode
// advisory warning; test mode never blocks writes.
var writeOperationPattern = regexp.MustCompile(`(?i)\.(insert|update|updateMultiple|deleteRecord|deleteMultiple)\s*\(`)

// Executor is the caller-facing execution pipeline: security screening,
// timeout-clamped delegation to the transport client, and result shaping.
// It never returns a Go error; all failures flatten into the result.
type Executor struct {
	client    ScriptExecutor
	validator *ScriptValidator
	log       Logger
}

func NewExecutor(client ScriptExecutor, validator *ScriptValidator, log Logger) *Executor {
	if log == nil {
		log = NopLogger()
	}
	return &Executor{
		client:    client,
		validator: validator,
		log:       log,
	}
}

func (e *Executor) Execute(ctx context.Context, script string, opts ExecutionOptions) *ExecutionResult {
	if len(script) > e.validator.MaxScriptLength() {
		return &ExecutionResult{
			Error: fmt.Sprintf("Script exceeds maximum length of %d characters", e.validator.MaxScriptLength()),
		}
	}

	validation := e.validator.Validate(script)
	if !validation.Safe {
		messages := make([]string, 0, len(validation.Violations))
		for _, v := range validation.Violations {
			messages = append(messages, v.Message)
		}
		e.log.Warnf("script rejected by security screening: %s", strings.Join(messages, "; "))
		return &ExecutionResult{
			Error: "Security violation: " + strings.Join(messages, "; "),
		}
	}

	result, err := e.client.ExecuteScript(ctx, ScriptRequest{Script: script, Timeout: opts.Timeout})
	if err != nil {
		return &ExecutionResult{Error: err.Error()}
	}

	return e.shape(result, script, opts)
}

func (e *Executor) shape(result *ScriptResult, script string, opts ExecutionOptions) *ExecutionResult {
	shaped := &ExecutionResult{
		Success:  result.Success,
		Logs:     result.Logs,
		Duration: result.Duration,
	}

	if !result.Success {
		if result.Error != nil {
			shaped.Error = result.Error.Message
			if result.Error.Line > 0 {
				shaped.Error = fmt.Sprintf("%s (line %d)", result.Error.Message, result.Error.Line)
			}
		} else {
			shaped.Error = "script execution failed"
		}
		return shaped
	}

	if opts.TestMode && writeOperationPattern.MatchString(script) {
		shaped.Logs = append([]string{"Warning: test mode does not prevent write operations in the script from taking effect"}, shaped.Logs...)
	}

	switch value := result.Result.(type) {
	case nil:
		shaped.Logs = append(shaped.Logs, "No records found")
	case []any:
		limit := recordLimit(opts)
		records := value
		if len(records) > limit {
			records = records[:limit]
			shaped.Truncated = true
			shaped.Logs = append(shaped.Logs, fmt.Sprintf("Results truncated to %d records (script returned %d)", limit, len(value)))
		}
		shaped.Data = records
		shaped.RecordCount = len(records)
	case bool, string, float64:
		// Wrap scalars so callers retain type information.
		shaped.Data = map[string]any{
			"value": value,
			"type":  scalarTypeName(value),
		}
		shaped.RecordCount = 1
	default:
		shaped.Data = value
		shaped.RecordCount = 1
	}

	return shaped
}

// recordLimit resolves the record cap. Test mode's cap fully replaces the
// standard one rather than composing with it.
func recordLimit(opts ExecutionOptions) int {
	if !opts.TestMode {
		return DefaultMaxRecords
	}
	limit := opts.MaxResults
	if limit == 0 {
		limit = DefaultTestModeMaxResults
	}
	if limit < 1 {
		return 1
	}
	if limit > DefaultMaxRecords {
		return DefaultMaxRecords
	}
	return limit
}

func scalarTypeName(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
