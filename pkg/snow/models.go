package snow

import (
	"time"
)

const (
	// Effective script timeouts are clamped to [MinScriptTimeout, MaxScriptTimeout].
	MinScriptTimeout     = 1 * time.Second
	MaxScriptTimeout     = 60 * time.Second
	DefaultScriptTimeout = 30 * time.Second

	DefaultRequestTimeout = 30 * time.Second

	DefaultScriptEndpoint = "/api/now/v1/script/execute"

	DefaultMaxRecords         = 1000
	DefaultTestModeMaxResults = 100
)

// Credentials identify a single backend instance. Immutable once constructed.
type Credentials struct {
	InstanceURL string
	Username    string
	Password    string
}

type ClientConfig struct {
	InstanceURL    string
	Timeout        time.Duration
	ScriptEndpoint string

	// ScriptTimeout is the default script execution timeout used when a
	// request carries none. It is clamped like any requested timeout.
	ScriptTimeout time.Duration

	// MaxRetries is accepted for configuration compatibility; the client
	// itself never retries. Retry policy belongs to a caller-side wrapper.
	MaxRetries int
}

// ScriptRequest is the transport-level script execution request. A zero
// Timeout means "use the default"; the client clamps whatever is given.
type ScriptRequest struct {
	Script  string
	Timeout time.Duration
}

type ScriptError struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Type    string `json:"type,omitempty"`
}

// ScriptResult is the normalized outcome of one remote script execution.
// Success false with a populated Error means the backend ran the script and
// it failed; transport failures are returned as *APIError instead.
type ScriptResult struct {
	Success  bool
	Result   any
	Logs     []string
	Error    *ScriptError
	Duration time.Duration
}

// SecurityPattern is one row of a data-driven screening table. Patterns are
// compiled as case-insensitive regular expressions.
type SecurityPattern struct {
	Pattern string `yaml:"pattern"`
	Message string `yaml:"message"`
	Detail  string `yaml:"detail,omitempty"`
}

type SecurityConfig struct {
	MaxScriptLength     int               `yaml:"maxScriptLength"`
	Blacklist           []SecurityPattern `yaml:"blacklist"`
	DangerousOperations []SecurityPattern `yaml:"dangerousOperations"`
	IncludeBlacklist    []SecurityPattern `yaml:"includeBlacklist"`
	IncludeDiscouraged  []SecurityPattern `yaml:"includeDiscouraged"`
}

type Violation struct {
	Pattern string `json:"pattern,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ValidationResult reports screening of a script submitted for execution.
// DangerousOperations never affect Safe; they flag operations the caller
// should gate behind explicit confirmation.
type ValidationResult struct {
	Safe                bool        `json:"safe"`
	Violations          []Violation `json:"violations,omitempty"`
	DangerousOperations []Violation `json:"dangerousOperations,omitempty"`
}

type IncludeIssue struct {
	Type    ErrorCode `json:"type,omitempty"`
	Message string    `json:"message"`
	Pattern string    `json:"pattern,omitempty"`
}

// IncludeValidationResult reports screening of reusable library code.
// Warnings never affect Valid.
type IncludeValidationResult struct {
	Valid    bool           `json:"valid"`
	Errors   []IncludeIssue `json:"errors,omitempty"`
	Warnings []IncludeIssue `json:"warnings,omitempty"`
}

type ExecutionOptions struct {
	Timeout    time.Duration
	TestMode   bool
	MaxResults int
}

// ExecutionResult is the shaped, caller-facing outcome of the execution
// pipeline. Error carries the taxonomy code inline as "[CODE] message".
type ExecutionResult struct {
	Success     bool
	Data        any
	Logs        []string
	Error       string
	Duration    time.Duration
	RecordCount int
	Truncated   bool
}

// Record is a single table API record.
type Record map[string]any

// QueryOptions map onto the table API sysparm_* query parameters.
type QueryOptions struct {
	Query        string
	Limit        int
	Offset       int
	Fields       []string
	DisplayValue string
}
