package snow

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ScriptValidator screens script text against data-driven pattern tables.
// It is pure and deterministic: identical input and configuration always
// yield identical output. The screening is a best-effort static filter, not
// a sandbox; obfuscated bypasses are out of scope.
type ScriptValidator struct {
	cfg SecurityConfig

	blacklist          []compiledPattern
	dangerousOps       []compiledPattern
	includeBlacklist   []compiledPattern
	includeDiscouraged []compiledPattern
}

type compiledPattern struct {
	SecurityPattern
	re *regexp.Regexp
}

func NewScriptValidator(cfg SecurityConfig) (*ScriptValidator, error) {
	if cfg.MaxScriptLength <= 0 {
		return nil, fmt.Errorf("maxScriptLength must be positive, got %d", cfg.MaxScriptLength)
	}

	v := &ScriptValidator{cfg: cfg}
	var err error
	if v.blacklist, err = compilePatterns(cfg.Blacklist); err != nil {
		return nil, err
	}
	if v.dangerousOps, err = compilePatterns(cfg.DangerousOperations); err != nil {
		return nil, err
	}
	if v.includeBlacklist, err = compilePatterns(cfg.IncludeBlacklist); err != nil {
		return nil, err
	}
	if v.includeDiscouraged, err = compilePatterns(cfg.IncludeDiscouraged); err != nil {
		return nil, err
	}
	return v, nil
}

func compilePatterns(patterns []SecurityPattern) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid security pattern %q: %w", p.Pattern, err)
		}
		compiled = append(compiled, compiledPattern{SecurityPattern: p, re: re})
	}
	return compiled, nil
}

func (v *ScriptValidator) MaxScriptLength() int {
	return v.cfg.MaxScriptLength
}

// Validate screens a script submitted for execution. A length violation is
// recorded without short-circuiting the pattern checks. Dangerous-operation
// detections are reported separately and never affect Safe.
func (v *ScriptValidator) Validate(script string) ValidationResult {
	result := ValidationResult{}

	if len(script) > v.cfg.MaxScriptLength {
		result.Violations = append(result.Violations, Violation{
			Message: fmt.Sprintf("Script exceeds maximum length of %d characters", v.cfg.MaxScriptLength),
		})
	}

	for _, p := range v.blacklist {
		if p.re.MatchString(script) {
			result.Violations = append(result.Violations, Violation{
				Pattern: p.Pattern,
				Message: p.Message,
				Detail:  p.Detail,
			})
		}
	}

	for _, p := range v.dangerousOps {
		if p.re.MatchString(script) {
			result.DangerousOperations = append(result.DangerousOperations, Violation{
				Pattern: p.Pattern,
				Message: p.Message,
				Detail:  p.Detail,
			})
		}
	}

	result.Safe = len(result.Violations) == 0
	return result
}

// ValidateScriptInclude screens reusable library code with a stricter error
// surface: blacklist matches are hard errors, discouraged patterns are
// non-fatal warnings.
func (v *ScriptValidator) ValidateScriptInclude(script string) IncludeValidationResult {
	result := IncludeValidationResult{}

	if len(script) > v.cfg.MaxScriptLength {
		result.Errors = append(result.Errors, IncludeIssue{
			Type:    ErrorCodeValidation,
			Message: fmt.Sprintf("Script include exceeds maximum length of %d characters", v.cfg.MaxScriptLength),
		})
	}

	for _, p := range v.includeBlacklist {
		if p.re.MatchString(script) {
			result.Errors = append(result.Errors, IncludeIssue{
				Type:    "SECURITY_VIOLATION",
				Message: p.Message,
				Pattern: p.Pattern,
			})
		}
	}

	for _, p := range v.includeDiscouraged {
		if p.re.MatchString(script) {
			result.Warnings = append(result.Warnings, IncludeIssue{
				Message: p.Message,
				Pattern: p.Pattern,
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// LoadSecurityConfig reads a security pattern table from a YAML file, or
// the embedded defaults when filePath is empty. Fields left unset in a
// custom file fall back to their defaults.
func LoadSecurityConfig(filePath string) (SecurityConfig, error) {
	defaults, err := parseSecurityConfig([]byte(defaultSecurityPatterns))
	if err != nil {
		return SecurityConfig{}, fmt.Errorf("embedded default patterns are broken: %w", err)
	}
	if filePath == "" {
		return defaults, nil
	}

	// #nosec G304 - loading a custom pattern file from a user-specified path is the intended behavior
	data, err := os.ReadFile(filePath)
	if err != nil {
		return SecurityConfig{}, fmt.Errorf("failed to read security patterns file: %w", err)
	}
	cfg, err := parseSecurityConfig(data)
	if err != nil {
		return SecurityConfig{}, err
	}

	if cfg.MaxScriptLength == 0 {
		cfg.MaxScriptLength = defaults.MaxScriptLength
	}
	if cfg.Blacklist == nil {
		cfg.Blacklist = defaults.Blacklist
	}
	if cfg.DangerousOperations == nil {
		cfg.DangerousOperations = defaults.DangerousOperations
	}
	if cfg.IncludeBlacklist == nil {
		cfg.IncludeBlacklist = defaults.IncludeBlacklist
	}
	if cfg.IncludeDiscouraged == nil {
		cfg.IncludeDiscouraged = defaults.IncludeDiscouraged
	}
	return cfg, nil
}

func parseSecurityConfig(data []byte) (SecurityConfig, error) {
	var cfg SecurityConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SecurityConfig{}, fmt.Errorf("failed to parse security patterns: %w", err)
	}
	return cfg, nil
}
