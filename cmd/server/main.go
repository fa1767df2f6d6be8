package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/servicenow-community/servicenow-mcp/internal/config"
	"github.com/servicenow-community/servicenow-mcp/internal/logger"
	mcpserver "github.com/servicenow-community/servicenow-mcp/internal/server"
	"github.com/servicenow-community/servicenow-mcp/internal/version"
	"github.com/servicenow-community/servicenow-mcp/pkg/snow"
)

func main() {
	ctx := context.Background()

	cfg := config.NewConfig()
	if err := cfg.ParseFlags(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	authManager := snow.NewAuthManager(snow.Credentials{
		InstanceURL: cfg.InstanceURL,
		Username:    cfg.Username,
		Password:    cfg.Password,
	}, logg)

	// Authentication is a one-time startup step bounded by the configured
	// request timeout. Mid-session expiration is handled by the transport
	// client and surfaced as AUTH_EXPIRED.
	authCtx, cancel := context.WithTimeout(ctx, cfg.TimeoutDuration())
	result := authManager.Authenticate(authCtx)
	cancel()
	if !result.Success {
		logg.Fatalf("Authentication failed: %s", result.Error)
	}

	client := snow.NewClient(snow.ClientConfig{
		InstanceURL:    cfg.InstanceURL,
		Timeout:        cfg.TimeoutDuration(),
		ScriptEndpoint: cfg.ScriptEndpoint,
		ScriptTimeout:  cfg.ScriptTimeoutDuration(),
		MaxRetries:     cfg.MaxRetries,
	}, authManager, logg)

	securityConfig, err := snow.LoadSecurityConfig(cfg.SecurityPatternsFile)
	if err != nil {
		logg.Fatalf("Failed to load security patterns: %v", err)
	}
	if cfg.MaxScriptLength > 0 {
		securityConfig.MaxScriptLength = cfg.MaxScriptLength
	}

	validator, err := snow.NewScriptValidator(securityConfig)
	if err != nil {
		logg.Fatalf("Failed to build script validator: %v", err)
	}

	executor := snow.NewExecutor(client, validator, logg)

	mcpServer := server.NewMCPServer(
		"ServiceNow MCP",
		version.GetVersion(),
	)

	mcpServer.AddTool(snow.NewExecuteScriptTool(), mcpserver.ExecuteScriptHandler(executor, validator, cfg.TestModeMaxResults))
	mcpServer.AddTool(snow.NewValidateScriptIncludeTool(), mcpserver.ValidateScriptIncludeHandler(validator))
	mcpServer.AddTool(snow.NewQueryTableTool(), mcpserver.QueryTableHandler(client))
	mcpServer.AddTool(snow.NewGetRecordTool(), mcpserver.GetRecordHandler(client))
	mcpServer.AddTool(snow.NewCreateRecordTool(), mcpserver.CreateRecordHandler(client))
	mcpServer.AddTool(snow.NewUpdateRecordTool(), mcpserver.UpdateRecordHandler(client))
	mcpServer.AddTool(snow.NewDeleteRecordTool(), mcpserver.DeleteRecordHandler(client))

	info := version.GetVersionInfo()
	logg.Infof("Starting ServiceNow MCP server (version %s, commit %s, %s, %s)",
		info["version"], info["gitCommit"], info["goVersion"], info["platform"])
	if err := runServer(mcpServer, cfg); err != nil {
		logg.Fatalf("Server error: %v", err)
	}
}

func runServer(mcpServer *server.MCPServer, cfg *config.Config) error {
	switch cfg.Transport {
	case "stdio":
		log.Printf("Listening for requests on STDIO...")
		return server.ServeStdio(mcpServer)

	case "sse":
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		baseURL := fmt.Sprintf("http://%s", addr)

		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy"}`))
		})

		customServer := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		sseServer := server.NewSSEServer(
			mcpServer,
			server.WithBaseURL(baseURL),
			server.WithHTTPServer(customServer),
		)

		log.Printf("SSE server listening on %s", addr)
		log.Printf("SSE endpoint available at: http://%s/sse", addr)
		log.Printf("Message endpoint available at: http://%s/message", addr)
		log.Printf("Health check available at: http://%s/health", addr)

		return sseServer.Start(addr)

	case "streamable-http":
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy"}`))
		})

		customServer := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		streamableServer := server.NewStreamableHTTPServer(
			mcpServer,
			server.WithStreamableHTTPServer(customServer),
		)

		mux.Handle("/mcp", streamableServer)

		log.Printf("Streamable HTTP server listening on %s", addr)
		log.Printf("MCP endpoint available at: http://%s/mcp", addr)
		log.Printf("Health check available at: http://%s/health", addr)

		return customServer.ListenAndServe()

	default:
		return fmt.Errorf("invalid transport type: %s (must be 'stdio', 'sse', or 'streamable-http')", cfg.Transport)
	}
}
