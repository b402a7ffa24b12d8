package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/scanning"
	"github.com/zombor/billed/internal/server"
	"github.com/zombor/billed/internal/views"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

var errShowVersion = errors.New("version requested")

type config struct {
	port          int
	dbPath        string
	storagePath   string
	scanner       string
	geminiKey     string
	geminiModel   string
	ollamaURL     string
	ollamaModel   string
	authUser      string
	authPass      string
	employeeEmail string
	logLevel      slog.Level
	uploadRate    float64
	uploadBurst   int
}

// parseConfig reads flags, then BILLED_* env vars, then the optional config file
func parseConfig(args []string) (*config, error) {
	fs := ff.NewFlagSet("billed")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "billed.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./receipts", "Receipt storage directory path")
		scannerType   = fs.StringLong("scanner", "none", "Receipt scanner: 'none', 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username, used as the employee email (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		employeeEmail = fs.StringLong("employee-email", "employee@billed.local", "Employee email when basic auth is off")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		uploadRate    = fs.Float64Long("upload-rate", 1, "Uploads allowed per second per client (0 disables limiting)")
		uploadBurst   = fs.IntLong("upload-burst", 10, "Upload burst size per client")
		_             = fs.StringLong("config", "", "Config file path (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("BILLED"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		return nil, fmt.Errorf("%s\n%w", ffhelp.Flags(fs), err)
	}

	if *showVersion {
		return nil, errShowVersion
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", *logLevel, err)
	}

	switch *scannerType {
	case "none", "gemini", "ollama":
	default:
		return nil, fmt.Errorf("invalid scanner type %q: want none, gemini or ollama", *scannerType)
	}

	return &config{
		port:          *port,
		dbPath:        *dbPath,
		storagePath:   *storagePath,
		scanner:       *scannerType,
		geminiKey:     *geminiKey,
		geminiModel:   *geminiModel,
		ollamaURL:     *ollamaURL,
		ollamaModel:   *ollamaModel,
		authUser:      *authUser,
		authPass:      *authPass,
		employeeEmail: *employeeEmail,
		logLevel:      level,
		uploadRate:    *uploadRate,
		uploadBurst:   *uploadBurst,
	}, nil
}

// newScanner builds the configured scanner, or nil when scanning is off
func newScanner(ctx context.Context, cfg *config) (scanning.Scanner, error) {
	switch cfg.scanner {
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini scanner...", "model", cfg.geminiModel)
		return scanning.NewGemini(ctx, apiKey, cfg.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	default:
		return nil, nil
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// .env is optional; real env vars win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := parseConfig(os.Args[1:])
	if errors.Is(err, errShowVersion) {
		fmt.Println(version)
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	slog.Info("Initializing database...", "path", cfg.dbPath)
	db, err := bill.NewBoltDB(cfg.dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", cfg.storagePath)
	files, err := bill.NewLocalStorage(cfg.storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	scanner, err := newScanner(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize scanner", "type", cfg.scanner, "error", err)
		os.Exit(1)
	}
	if scanner != nil {
		defer scanner.Close()
	}

	store := bill.NewService(db, files)

	srv := server.NewServer(store, server.Options{
		BasicAuth: server.BasicAuth{
			Username: cfg.authUser,
			Password: cfg.authPass,
		},
		Employee: views.User{Email: cfg.employeeEmail},
		Scanner:  scanner,
		RateLimit: server.RateLimiterConfig{
			RequestsPerSecond: cfg.uploadRate,
			BurstSize:         cfg.uploadBurst,
			CleanupInterval:   5 * time.Minute,
			EntryTTL:          10 * time.Minute,
		},
	})
	defer srv.Close()

	addr := fmt.Sprintf(":%d", cfg.port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if cfg.authUser != "" || cfg.authPass != "" {
		slog.Info("Basic auth enabled", "user", cfg.authUser)
	}

	if err := srv.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutting down...")
}
