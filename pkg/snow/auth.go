package snow

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// AuthProvider is the read-side surface other components use. Only the
// AuthManager itself mutates session state; the transport client signals
// expiration through HandleExpiration.
type AuthProvider interface {
	AuthHeaders() map[string]string
	HandleExpiration()
}

type AuthResult struct {
	Success bool
	Error   string
}

// AuthManager owns the single authentication session for one backend
// instance. It holds a two-state machine: unauthenticated (initial) and
// authenticated, with the Basic header material present exactly when
// authenticated.
type AuthManager struct {
	creds      Credentials
	httpClient *http.Client
	log        Logger

	mu            sync.Mutex
	authenticated bool
	authHeader    string
}

func NewAuthManager(creds Credentials, log Logger) *AuthManager {
	if log == nil {
		log = NopLogger()
	}
	return &AuthManager{
		creds: creds,
		// Backstop deadline so the probe cannot hang on a backend that
		// accepts the connection and never answers. Callers can tighten
		// it further through the context.
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
		log:        log,
	}
}

// Authenticate probes the backend with a minimal read-only request. All
// outcomes, including network failures, are reported in the returned
// AuthResult; this method never returns an error to the caller.
func (m *AuthManager) Authenticate(ctx context.Context) AuthResult {
	header := basicAuthHeader(m.creds.Username, m.creds.Password)

	probeURL := strings.TrimSuffix(m.creds.InstanceURL, "/") + "/api/now/table/sys_user?sysparm_limit=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return AuthResult{Error: fmt.Sprintf("invalid instance URL: %v", err)}
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.clearSession()
		return AuthResult{Error: describeNetworkFailure(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		m.mu.Lock()
		m.authenticated = true
		m.authHeader = header
		m.mu.Unlock()
		m.log.Infof("authenticated against %s as %s", m.creds.InstanceURL, m.creds.Username)
		return AuthResult{Success: true}
	case http.StatusUnauthorized:
		m.clearSession()
		return AuthResult{Error: "invalid credentials"}
	case http.StatusForbidden:
		m.clearSession()
		return AuthResult{Error: "forbidden: user lacks access to the instance"}
	default:
		m.clearSession()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return AuthResult{Error: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
}

// AuthHeaders returns a snapshot of the current auth headers, or an empty
// map when unauthenticated. Callers must check emptiness or rely on the
// transport client's AUTH_ERROR.
func (m *AuthManager) AuthHeaders() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authenticated {
		return map[string]string{}
	}
	return map[string]string{"Authorization": m.authHeader}
}

func (m *AuthManager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

// HandleExpiration forces the session back to unauthenticated. Invoked by
// the transport client when the backend answers 401 mid-session.
func (m *AuthManager) HandleExpiration() {
	m.log.Warnf("session expired, clearing authentication state")
	m.clearSession()
}

func (m *AuthManager) clearSession() {
	m.mu.Lock()
	m.authenticated = false
	m.authHeader = ""
	m.mu.Unlock()
}

func basicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// describeNetworkFailure names the specific network condition behind a
// failed round trip.
func describeNetworkFailure(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("host not found: %s", dnsErr.Name)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "request timed out"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Sprintf("connection failed: %v", opErr.Err)
	}

	return fmt.Sprintf("network error: %v", err)
}
