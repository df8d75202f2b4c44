// ABOUTME: Entry point for the agentwire gateway server
// ABOUTME: Serves the websocket endpoint and relays turns through the broker

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/minuet-ai/agentwire/internal/broker"
	"github.com/minuet-ai/agentwire/internal/config"
	"github.com/minuet-ai/agentwire/internal/gateway"
	"github.com/minuet-ai/agentwire/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                        _          _
  __ _  __ _  ___ _ __ | |___      _(_)_ __ ___
 / _' |/ _' |/ _ \ '_ \| __\ \ /\ / / | '__/ _ \
| (_| | (_| |  __/ | | | |_ \ V  V /| | | |  __/
 \__,_|\__, |\___|_| |_|\__| \_/\_/ |_|_|  \___|
       |___/
`

const defaultConfig = `server:
  listen_addr: "0.0.0.0:8080"
  # allowed_origins:
  #   - "https://app.example.com"

database:
  path: "${HOME}/.local/share/agentwire/gateway.db"

broker:
  # Empty selects the in-process broker; the runner must share the binary.
  redis_url: "${AGENTWIRE_REDIS_URL}"

turns:
  dedupe_ttl: "5m"
  turn_timeout: "10s"

logging:
  level: "info"
  format: "text"
`

// getConfigPath returns the path to the gateway config file.
// Priority: AGENTWIRE_CONFIG env var > XDG_CONFIG_HOME/agentwire/gateway.yaml > ~/.config/agentwire/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("AGENTWIRE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "agentwire", "gateway.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: agentwire-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve   Start the gateway server")
		fmt.Println("  init    Write a default config file")
		fmt.Println("  health  Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Listen:   %s\n", cfg.Server.ListenAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	if cfg.Broker.RedisURL != "" {
		fmt.Printf("Broker:   redis\n")
	} else {
		fmt.Printf("Broker:   in-process\n")
	}
	fmt.Println()

	logger.Info("starting agentwire-gateway",
		"config", configPath,
		"listen_addr", cfg.Server.ListenAddr,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	var br broker.Broker
	if cfg.Broker.RedisURL != "" {
		br, err = broker.NewRedisBroker(cfg.Broker.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
	} else {
		br = broker.NewMemoryBroker()
	}
	defer br.Close()

	gw := gateway.New(st, br, gateway.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DedupeTTL:      cfg.Turns.DedupeTTL,
		TurnTimeout:    cfg.Turns.TurnTimeout,
		Logger:         logger,
	})
	defer gw.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", gw)
	gw.RegisterAPI(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- gw.Run(ctx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Wrote %s\n", configPath)
	return nil
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.ListenAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
