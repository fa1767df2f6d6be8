package snow

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func defaultValidator(t *testing.T) *ScriptValidator {
	t.Helper()
	cfg, err := LoadSecurityConfig("")
	if err != nil {
		t.Fatalf("LoadSecurityConfig() error = %v", err)
	}
	validator, err := NewScriptValidator(cfg)
	if err != nil {
		t.Fatalf("NewScriptValidator() error = %v", err)
	}
	return validator
}

func TestValidator_Blacklist(t *testing.T) {
	validator := defaultValidator(t)

	tests := []struct {
		name     string
		script   string
		wantSafe bool
	}{
		{
			name:     "clean query script",
			script:   "new GlideQuery('incident').where('active', true).count()",
			wantSafe: true,
		},
		{
			name:     "eval",
			script:   "var x = eval('1+1');",
			wantSafe: false,
		},
		{
			name:     "eval uppercase",
			script:   "EVAL ('1+1')",
			wantSafe: false,
		},
		{
			name:     "function constructor",
			script:   "var f = new Function('return 1');",
			wantSafe: false,
		},
		{
			name:     "immediate job execution",
			script:   "gs.executeNow('x')",
			wantSafe: false,
		},
		{
			name:     "scoped evaluator",
			script:   "new GlideScopedEvaluator().evaluateScript(gr, 'script');",
			wantSafe: false,
		},
		{
			name:     "raw java packages",
			script:   "var f = Packages.java.lang.Runtime;",
			wantSafe: false,
		},
		{
			name:     "java file access",
			script:   "var r = new java.io.FileReader('/etc/passwd');",
			wantSafe: false,
		},
		{
			name:     "java network access",
			script:   "var s = new java.net.Socket('evil', 80);",
			wantSafe: false,
		},
		{
			name:     "package import",
			script:   "importPackage(java.lang);",
			wantSafe: false,
		},
		{
			name:     "legacy record iteration",
			script:   "var gr = new GlideRecord('incident'); while (gr.next()) {}",
			wantSafe: false,
		},
		{
			name:     "evaluate as identifier substring is fine",
			script:   "var reevaluated = true;",
			wantSafe: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.script)
			if result.Safe != tt.wantSafe {
				t.Errorf("Validate(%q).Safe = %v, want %v (violations: %+v)", tt.script, result.Safe, tt.wantSafe, result.Violations)
			}
			if !tt.wantSafe && len(result.Violations) == 0 {
				t.Error("unsafe result must carry violations")
			}
		})
	}
}

func TestValidator_ViolationNamesPattern(t *testing.T) {
	validator := defaultValidator(t)

	result := validator.Validate("gs.executeNow('x')")
	if result.Safe {
		t.Fatal("Validate() safe = true, want false")
	}
	if result.Violations[0].Pattern == "" {
		t.Error("violation should name the matched pattern")
	}
	if !strings.Contains(result.Violations[0].Message, "not allowed") {
		t.Errorf("violation message = %q", result.Violations[0].Message)
	}
}

func TestValidator_LengthViolation(t *testing.T) {
	cfg, err := LoadSecurityConfig("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.MaxScriptLength = 20
	validator, err := NewScriptValidator(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Harmless content, just oversized.
	result := validator.Validate(strings.Repeat("a", 21))
	if result.Safe {
		t.Error("oversized script should be unsafe regardless of content")
	}
	if len(result.Violations) != 1 || !strings.Contains(result.Violations[0].Message, "maximum length of 20") {
		t.Errorf("violations = %+v", result.Violations)
	}

	// Length does not short-circuit pattern checks.
	result = validator.Validate("eval('" + strings.Repeat("a", 20) + "')")
	if len(result.Violations) != 2 {
		t.Errorf("oversized script with eval should record 2 violations, got %+v", result.Violations)
	}
}

func TestValidator_DangerousOperationsDoNotFlipSafety(t *testing.T) {
	validator := defaultValidator(t)

	tests := []struct {
		name   string
		script string
	}{
		{"bulk delete", "q.deleteMultiple();"},
		{"bulk update", "q.updateMultiple();"},
		{"workflow disable", "q.setWorkflow(false);"},
		{"audit field disable", "q.autoSysFields(false);"},
		{"forced update", "q.setForceUpdate(true);"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.script)
			if !result.Safe {
				t.Errorf("dangerous operations alone must not flip safety: %+v", result.Violations)
			}
			if len(result.DangerousOperations) != 1 {
				t.Errorf("DangerousOperations = %+v, want exactly one detection", result.DangerousOperations)
			}
		})
	}
}

func TestValidator_Idempotence(t *testing.T) {
	validator := defaultValidator(t)
	script := "eval('x'); q.deleteMultiple();"

	first := validator.Validate(script)
	second := validator.Validate(script)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Validate() is not deterministic: %+v vs %+v", first, second)
	}
}

func TestValidator_ScriptInclude(t *testing.T) {
	validator := defaultValidator(t)

	tests := []struct {
		name         string
		script       string
		wantValid    bool
		wantErrors   int
		wantWarnings int
	}{
		{
			name:      "clean include",
			script:    "var Util = Class.create(); Util.prototype = { initialize: function() {} };",
			wantValid: true,
		},
		{
			name:       "eval is a hard error",
			script:     "eval('x');",
			wantValid:  false,
			wantErrors: 1,
		},
		{
			name:         "legacy record iteration is only a warning",
			script:       "var gr = new GlideRecord('incident');",
			wantValid:    true,
			wantWarnings: 1,
		},
		{
			name:         "print logging is only a warning",
			script:       "gs.print('debug'); gs.log('more');",
			wantValid:    true,
			wantWarnings: 2,
		},
		{
			name:         "error and warning together",
			script:       "gs.print('x'); importPackage(java.lang);",
			wantValid:    false,
			wantErrors:   1,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.ValidateScriptInclude(tt.script)
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors: %+v)", result.Valid, tt.wantValid, result.Errors)
			}
			if len(result.Errors) != tt.wantErrors {
				t.Errorf("Errors = %+v, want %d", result.Errors, tt.wantErrors)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("Warnings = %+v, want %d", result.Warnings, tt.wantWarnings)
			}
			for _, e := range result.Errors {
				if e.Type != "SECURITY_VIOLATION" && e.Type != ErrorCodeValidation {
					t.Errorf("error type = %s, want SECURITY_VIOLATION or VALIDATION_ERROR", e.Type)
				}
			}
		})
	}
}

func TestValidator_IncludeLengthError(t *testing.T) {
	cfg, err := LoadSecurityConfig("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.MaxScriptLength = 10
	validator, err := NewScriptValidator(cfg)
	if err != nil {
		t.Fatal(err)
	}

	result := validator.ValidateScriptInclude(strings.Repeat("a", 11))
	if result.Valid {
		t.Error("oversized include should be invalid")
	}
	if len(result.Errors) != 1 || result.Errors[0].Type != ErrorCodeValidation {
		t.Errorf("Errors = %+v, want one VALIDATION_ERROR", result.Errors)
	}
}

func TestNewScriptValidator_Rejects(t *testing.T) {
	if _, err := NewScriptValidator(SecurityConfig{MaxScriptLength: 0}); err == nil {
		t.Error("zero MaxScriptLength should be rejected")
	}

	cfg := SecurityConfig{
		MaxScriptLength: 100,
		Blacklist:       []SecurityPattern{{Pattern: "([unclosed"}},
	}
	if _, err := NewScriptValidator(cfg); err == nil {
		t.Error("invalid regex should be rejected")
	}
}

func TestLoadSecurityConfig_CustomFile(t *testing.T) {
	tmpDir := t.TempDir()
	patternsFile := filepath.Join(tmpDir, "patterns.yaml")

	content := `maxScriptLength: 500
blacklist:
  - pattern: 'forbiddenCall\s*\('
    message: "forbiddenCall is not allowed"
`
	if err := os.WriteFile(patternsFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadSecurityConfig(patternsFile)
	if err != nil {
		t.Fatalf("LoadSecurityConfig() error = %v", err)
	}

	if cfg.MaxScriptLength != 500 {
		t.Errorf("MaxScriptLength = %d, want 500", cfg.MaxScriptLength)
	}
	if len(cfg.Blacklist) != 1 {
		t.Errorf("Blacklist = %+v, want the single custom pattern", cfg.Blacklist)
	}
	// Sections omitted from the custom file keep their defaults.
	if len(cfg.DangerousOperations) == 0 {
		t.Error("DangerousOperations should fall back to defaults")
	}
	if len(cfg.IncludeDiscouraged) == 0 {
		t.Error("IncludeDiscouraged should fall back to defaults")
	}

	validator, err := NewScriptValidator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if validator.Validate("forbiddenCall('x')").Safe {
		t.Error("custom blacklist pattern should reject the script")
	}
	// A provided blacklist section replaces the default one wholesale.
	if !validator.Validate("eval('x')").Safe {
		t.Error("custom blacklist should fully replace the default section")
	}
}

func TestLoadSecurityConfig_MissingFile(t *testing.T) {
	if _, err := LoadSecurityConfig("/nonexistent/patterns.yaml"); err == nil {
		t.Error("missing file should be an error")
	}
}
