package snow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client performs all outbound calls against the backend table and script
// APIs. Every operation reads auth headers exactly once before any I/O and
// maps failures into the fixed error taxonomy.
type Client struct {
	cfg        ClientConfig
	auth       AuthProvider
	httpClient *http.Client
	log        Logger
}

func NewClient(cfg ClientConfig, auth AuthProvider, log Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.ScriptEndpoint == "" {
		cfg.ScriptEndpoint = DefaultScriptEndpoint
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = DefaultScriptTimeout
	}
	cfg.InstanceURL = strings.TrimSuffix(cfg.InstanceURL, "/")
	if log == nil {
		log = NopLogger()
	}
	return &Client{
		cfg:        cfg,
		auth:       auth,
		httpClient: &http.Client{},
		log:        log,
	}
}

// Get lists records from a table, applying the sysparm_* query parameters
// from opts.
func (c *Client) Get(ctx context.Context, table string, opts *QueryOptions) ([]Record, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Query != "" {
			query.Set("sysparm_query", opts.Query)
		}
		if opts.Limit > 0 {
			query.Set("sysparm_limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			query.Set("sysparm_offset", strconv.Itoa(opts.Offset))
		}
		if len(opts.Fields) > 0 {
			query.Set("sysparm_fields", strings.Join(opts.Fields, ","))
		}
		if opts.DisplayValue != "" {
			query.Set("sysparm_display_value", opts.DisplayValue)
		}
	}

	raw, err := c.do(ctx, http.MethodGet, "/api/now/table/"+table, query, nil, c.cfg.Timeout, false)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result []Record `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, NewAPIError(ErrorCodeAPI, fmt.Sprintf("malformed response body: %v", err))
	}
	return envelope.Result, nil
}

func (c *Client) GetByID(ctx context.Context, table, sysID string) (Record, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/now/table/"+table+"/"+sysID, nil, nil, c.cfg.Timeout, false)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func (c *Client) Post(ctx context.Context, table string, body map[string]any) (Record, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/now/table/"+table, nil, body, c.cfg.Timeout, false)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func (c *Client) Put(ctx context.Context, table, sysID string, body map[string]any) (Record, error) {
	raw, err := c.do(ctx, http.MethodPut, "/api/now/table/"+table+"/"+sysID, nil, body, c.cfg.Timeout, false)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func (c *Client) Delete(ctx context.Context, table, sysID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/now/table/"+table+"/"+sysID, nil, nil, c.cfg.Timeout, false)
	return err
}

// ExecuteScript submits script text for remote evaluation. A transport
// deadline hit here is reported as a successful call carrying a failed
// ScriptResult, distinguishing "the remote script timed out" from "we could
// not reach the backend".
func (c *Client) ExecuteScript(ctx context.Context, req ScriptRequest) (*ScriptResult, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, NewAPIError(ErrorCodeValidation, "Script cannot be empty")
	}

	requested := req.Timeout
	if requested == 0 {
		requested = c.cfg.ScriptTimeout
	}
	timeout := EffectiveScriptTimeout(requested)
	body := map[string]any{
		"script":  req.Script,
		"timeout": timeout.Milliseconds(),
	}

	start := time.Now()
	raw, err := c.do(ctx, http.MethodPost, c.cfg.ScriptEndpoint, nil, body, timeout, true)
	duration := time.Since(start)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == ErrorCodeTimeout {
			return &ScriptResult{
				Success: false,
				Error: &ScriptError{
					Message: fmt.Sprintf("Script execution timed out after %s", timeout),
					Type:    string(ErrorCodeTimeout),
				},
				Duration: duration,
			}, nil
		}
		return nil, err
	}

	result := normalizeScriptPayload(raw)
	result.Duration = duration
	return result, nil
}

// EffectiveScriptTimeout resolves a requested script timeout: unset falls
// back to the default, and the result is clamped to the permitted range.
func EffectiveScriptTimeout(requested time.Duration) time.Duration {
	if requested == 0 {
		requested = DefaultScriptTimeout
	}
	if requested < MinScriptTimeout {
		return MinScriptTimeout
	}
	if requested > MaxScriptTimeout {
		return MaxScriptTimeout
	}
	return requested
}

// do is the shared request path. The auth-header presence check happens
// exactly once, before any I/O.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, timeout time.Duration, scriptCall bool) (json.RawMessage, error) {
	headers := c.auth.AuthHeaders()
	if len(headers) == 0 {
		return nil, NewAPIError(ErrorCodeAuth, "not authenticated")
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, NewAPIError(ErrorCodeValidation, fmt.Sprintf("unencodable request body: %v", err))
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := c.cfg.InstanceURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, NewAPIError(ErrorCodeValidation, fmt.Sprintf("invalid request: %v", err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	reqID := uuid.NewString()[:8]
	c.log.Debugf("request %s: %s %s", reqID, method, reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := classifyTransportFailure(err)
		c.log.Debugf("request %s failed: %v", reqID, apiErr)
		return nil, apiErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewAPIError(ErrorCodeNetwork, fmt.Sprintf("reading response: %v", err))
	}

	c.log.Debugf("request %s: status %d (%d bytes)", reqID, resp.StatusCode, len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.mapStatus(resp.StatusCode, respBody, scriptCall)
	}
	return respBody, nil
}

func (c *Client) mapStatus(status int, body []byte, scriptCall bool) *APIError {
	switch status {
	case http.StatusUnauthorized:
		c.auth.HandleExpiration()
		return NewAPIError(ErrorCodeAuthExpired, "authentication expired").WithStatus(status)
	case http.StatusForbidden:
		return NewAPIError(ErrorCodeForbidden, "access forbidden").WithStatus(status)
	case http.StatusNotFound:
		if scriptCall {
			return NewAPIError(ErrorCodeEndpointNotFound, fmt.Sprintf("script execution endpoint not found: %s", c.cfg.ScriptEndpoint)).WithStatus(status)
		}
		return NewAPIError(ErrorCodeNotFound, "record or resource not found").WithStatus(status)
	default:
		return NewAPIError(ErrorCodeAPI, fmt.Sprintf("request failed with status %d: %s", status, strings.TrimSpace(string(body)))).WithStatus(status)
	}
}

func classifyTransportFailure(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewAPIError(ErrorCodeTimeout, "request timed out before a response arrived")
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return NewAPIError(ErrorCodeTimeout, "request timed out before a response arrived")
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return NewAPIError(ErrorCodeNetwork, fmt.Sprintf("host not found: %s", dnsErr.Name))
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return NewAPIError(ErrorCodeNetwork, fmt.Sprintf("connection failed: %v", opErr.Err))
		}
		return NewAPIError(ErrorCodeNetwork, fmt.Sprintf("network error: %v", urlErr.Err))
	}

	return NewAPIError(ErrorCodeUnknown, fmt.Sprintf("unexpected failure: %v", err))
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	var envelope struct {
		Result Record `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, NewAPIError(ErrorCodeAPI, fmt.Sprintf("malformed response body: %v", err))
	}
	return envelope.Result, nil
}

// normalizeScriptPayload maps the script execution envelope onto the
// canonical ScriptResult. The inner payload historically takes three
// shapes: a success object with value/logs, an error object in one of two
// field namings, or a bare scalar/array used as a direct value.
func normalizeScriptPayload(raw json.RawMessage) *ScriptResult {
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &ScriptResult{
			Success: false,
			Error:   &ScriptError{Message: fmt.Sprintf("malformed execution response: %v", err)},
		}
	}

	var payload any
	if len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, &payload); err != nil {
			return &ScriptResult{
				Success: false,
				Error:   &ScriptError{Message: fmt.Sprintf("malformed execution result: %v", err)},
			}
		}
	}

	obj, isObject := payload.(map[string]any)
	if !isObject {
		// Bare scalar, array, or null: a direct successful value.
		return &ScriptResult{Success: true, Result: payload}
	}

	if _, ok := obj["success"]; ok {
		result := &ScriptResult{
			Success: asBool(obj["success"]),
			Result:  obj["value"],
			Logs:    asStringSlice(obj["logs"]),
		}
		if !result.Success {
			result.Error = scriptErrorFrom(obj["error"])
		}
		return result
	}
	if _, ok := obj["message"]; ok {
		return &ScriptResult{
			Success: false,
			Error: &ScriptError{
				Message: asString(obj["message"]),
				Line:    asInt(obj["line"]),
				Type:    asString(obj["type"]),
			},
		}
	}
	if _, ok := obj["errorMessage"]; ok {
		return &ScriptResult{
			Success: false,
			Error: &ScriptError{
				Message: asString(obj["errorMessage"]),
				Line:    asInt(obj["errorLine"]),
				Type:    asString(obj["errorType"]),
			},
		}
	}

	// Unrecognized object: treat as a direct value.
	return &ScriptResult{Success: true, Result: payload}
}

func scriptErrorFrom(v any) *ScriptError {
	switch err := v.(type) {
	case map[string]any:
		msg := asString(err["message"])
		if msg == "" {
			msg = asString(err["errorMessage"])
		}
		line := asInt(err["line"])
		if line == 0 {
			line = asInt(err["errorLine"])
		}
		typ := asString(err["type"])
		if typ == "" {
			typ = asString(err["errorType"])
		}
		return &ScriptError{Message: msg, Line: line, Type: typ}
	case string:
		return &ScriptError{Message: err}
	default:
		return &ScriptError{Message: "script execution failed"}
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}
