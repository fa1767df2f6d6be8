package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"
)

type Config struct {
	InstanceURL string
	Username    string
	Password    string

	Timeout              int
	ScriptTimeout        int
	ScriptEndpoint       string
	MaxRetries           int
	MaxScriptLength      int
	TestModeMaxResults   int
	SecurityPatternsFile string

	Transport string
	Host      string
	Port      int
	LogLevel  string
}

func NewConfig() *Config {
	return &Config{
		Timeout:            30,
		ScriptTimeout:      30,
		TestModeMaxResults: 100,
		Transport:          "stdio",
		Host:               "127.0.0.1",
		Port:               8000,
		LogLevel:           "info",
	}
}

func (c *Config) ParseFlags() error {
	flag.StringVar(&c.InstanceURL, "instance-url", c.InstanceURL, "Base URL of the instance (e.g. https://dev.service-now.com)")
	flag.IntVar(&c.Timeout, "timeout", c.Timeout, "Timeout for table API requests in seconds")
	flag.IntVar(&c.ScriptTimeout, "script-timeout", c.ScriptTimeout, "Default script execution timeout in seconds (clamped to 1-60)")
	flag.StringVar(&c.ScriptEndpoint, "script-endpoint", c.ScriptEndpoint, "Override path of the script execution endpoint")
	flag.StringVar(&c.SecurityPatternsFile, "security-patterns-file", c.SecurityPatternsFile, "Path to a security patterns YAML file")
	flag.StringVar(&c.Transport, "transport", c.Transport, "Transport mechanism (stdio, sse, streamable-http)")
	flag.StringVar(&c.Host, "host", c.Host, "Host to listen on (for non-stdio transport)")
	flag.IntVar(&c.Port, "port", c.Port, "Port to listen on (for non-stdio transport)")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	showHelp := flag.BoolP("help", "h", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version information")

	flag.Parse()

	if *showHelp {
		fmt.Printf("ServiceNow MCP Server\n\nUsage:\n")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("ServiceNow MCP Server version 1.0.0\n")
		os.Exit(0)
	}

	c.LoadFromEnv()

	return c.Validate()
}

// LoadFromEnv fills in settings from SERVICENOW_* environment variables.
// Flags win for values settable both ways.
func (c *Config) LoadFromEnv() {
	if c.InstanceURL == "" {
		c.InstanceURL = os.Getenv("SERVICENOW_INSTANCE_URL")
	}
	c.Username = os.Getenv("SERVICENOW_USERNAME")
	c.Password = os.Getenv("SERVICENOW_PASSWORD")

	if v := os.Getenv("SERVICENOW_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Timeout = n
		}
	}
	if v := os.Getenv("SERVICENOW_SCRIPT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ScriptTimeout = n
		}
	}
	if c.ScriptEndpoint == "" {
		c.ScriptEndpoint = os.Getenv("SERVICENOW_SCRIPT_ENDPOINT")
	}
	if v := os.Getenv("SERVICENOW_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("SERVICENOW_MAX_SCRIPT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxScriptLength = n
		}
	}
	if v := os.Getenv("SERVICENOW_TEST_MODE_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TestModeMaxResults = n
		}
	}
	if c.SecurityPatternsFile == "" {
		c.SecurityPatternsFile = os.Getenv("SERVICENOW_SECURITY_PATTERNS_FILE")
	}
}

func (c *Config) Validate() error {
	if c.InstanceURL == "" {
		return fmt.Errorf("instance URL is required (set SERVICENOW_INSTANCE_URL or --instance-url)")
	}
	parsed, err := url.Parse(c.InstanceURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("invalid instance URL: %s", c.InstanceURL)
	}

	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("credentials are required (set SERVICENOW_USERNAME and SERVICENOW_PASSWORD)")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.ScriptTimeout <= 0 {
		return fmt.Errorf("script timeout must be greater than 0")
	}
	if c.MaxScriptLength < 0 {
		return fmt.Errorf("max script length must not be negative")
	}
	if c.TestModeMaxResults < 1 || c.TestModeMaxResults > 1000 {
		return fmt.Errorf("test mode max results must be in [1, 1000]")
	}

	validTransports := map[string]bool{
		"stdio":           true,
		"sse":             true,
		"streamable-http": true,
	}
	if !validTransports[c.Transport] {
		return fmt.Errorf("invalid transport: %s (must be stdio, sse, or streamable-http)", c.Transport)
	}

	return nil
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) ScriptTimeoutDuration() time.Duration {
	return time.Duration(c.ScriptTimeout) * time.Second
}
