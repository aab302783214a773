// ABOUTME: Entry point for the cergdb results server
// ABOUTME: Dispatches serve, init, and health subcommands

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/cergworks/cergdb/internal/api"
	"github.com/cergworks/cergdb/internal/auth"
	"github.com/cergworks/cergdb/internal/config"
	"github.com/cergworks/cergdb/internal/password"
	"github.com/cergworks/cergdb/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                          _ _
  ___ ___ _ __ __ _  ___| | |__
 / __/ _ \ '__/ _' |/ _' | '_ \
| (_|  __/ |  | (_| | (_| | |_) |
 \___\___|_|   \__, |\__,_|_.__/
               |___/
`

// getConfigPath returns the path to the cergdb config file.
// Priority: CERGDB_CONFIG env var > XDG_CONFIG_HOME/cergdb/cergdb.yaml > ~/.config/cergdb/cergdb.yaml
func getConfigPath() string {
	if envPath := os.Getenv("CERGDB_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "cergdb.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "cergdb", "cergdb.yaml")
}

// getDataPath returns the path to the cergdb data directory.
// Priority: XDG_DATA_HOME/cergdb > ~/.local/share/cergdb
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "cergdb")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: cergdb <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve      Start the results server")
		fmt.Println("  init       Create a new config file interactively")
		fmt.Println("  bootstrap  Create the admin user without starting the server")
		fmt.Println("  health     Check server health")
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
	case "bootstrap":
		err = runBootstrap(ctx)
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

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Driver)
	if cfg.Server.CertFile != "" {
		green.Print("    ▶ ")
		fmt.Printf("TLS:       enabled\n")
	}

	fmt.Println()

	logger.Info("starting cergdb",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"database", cfg.Database.Driver,
	)

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	hasher := password.NewHasher([]byte(cfg.Auth.PasswordPepper), password.DefaultParams())
	tokens := auth.NewTokens([]byte(cfg.Auth.JWTSecret))

	if err := api.EnsureAdmin(ctx, st, hasher, cfg.Auth.AdminPassword, logger); err != nil {
		return fmt.Errorf("bootstrapping admin user: %w", err)
	}

	server := api.NewServer(st, tokens, hasher, logger)
	return server.Run(ctx, cfg.Server)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.DSN)
	default:
		return store.NewSQLiteStore(cfg.Path)
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// runBootstrap creates the admin account ahead of the first serve, useful
// when the database should be provisioned by a deploy step rather than on
// server startup.
func runBootstrap(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	hasher := password.NewHasher([]byte(cfg.Auth.PasswordPepper), password.DefaultParams())
	if err := api.EnsureAdmin(ctx, st, hasher, cfg.Auth.AdminPassword, logger); err != nil {
		return fmt.Errorf("bootstrapping admin user: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Println("  ✓ admin user ready")
	return nil
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	scheme := "http"
	if cfg.Server.CertFile != "" {
		scheme = "https"
	}

	url := fmt.Sprintf("%s://%s/", scheme, cfg.Server.HTTPAddr)
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

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("cergdb configuration setup")
	fmt.Println("==========================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "cergdb.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:3000")

	// Database
	fmt.Println("\n--- Database Configuration ---")
	driver := prompt(reader, "Database driver (sqlite/postgres)", "sqlite")
	var dbPath, dsn string
	if driver == "postgres" {
		dsn = prompt(reader, "Postgres DSN", "postgres://cergdb@localhost:5432/cergdb")
	} else {
		driver = "sqlite"
		dbPath = prompt(reader, "SQLite database path", defaultDbPath)
	}

	// Auth secrets, generated fresh unless provided
	fmt.Println("\n--- Auth Configuration ---")
	jwtSecret, err := generateSecret()
	if err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	pepper, err := generateSecret()
	if err != nil {
		return fmt.Errorf("generating password pepper: %w", err)
	}
	adminPassword := prompt(reader, "Bootstrap admin password", "")

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# cergdb configuration\n")
	cfg.WriteString("# Generated by cergdb init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	cfg.WriteString("  request_timeout: \"10s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  driver: %q\n", driver))
	if driver == "postgres" {
		cfg.WriteString(fmt.Sprintf("  dsn: %q\n", dsn))
	} else {
		cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	}
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", jwtSecret))
	cfg.WriteString(fmt.Sprintf("  password_pepper: %q\n", pepper))
	if adminPassword != "" {
		cfg.WriteString(fmt.Sprintf("  admin_password: %q\n", adminPassword))
	} else {
		cfg.WriteString("  admin_password: \"${CERGDB_ADMIN_PASSWORD}\"\n")
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file; it holds secrets, so owner-only
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if driver == "sqlite" {
		dataDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		fmt.Printf("Data directory: %s\n", dataDir)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  cergdb serve\n")

	return nil
}

// generateSecret returns 32 random bytes, base64 encoded.
func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
