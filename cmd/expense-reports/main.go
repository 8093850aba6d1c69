package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/expense-reports/internal/blob"
	"github.com/zombor/expense-reports/internal/receipt"
	"github.com/zombor/expense-reports/internal/report"
	"github.com/zombor/expense-reports/internal/scanning"
	"github.com/zombor/expense-reports/internal/server"
	"github.com/zombor/expense-reports/internal/storage"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("expense-reports")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "expense-reports.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./blobs", "Blob storage directory for images and report artifacts")
		scannerType   = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini', 'ollama' or 'openai'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		openaiKey     = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiModel   = fs.StringLong("openai-model", "gpt-4o", "OpenAI vision model name")
		openaiURL     = fs.StringLong("openai-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
		scanTimeout   = fs.DurationLong("scan-timeout", 2*time.Minute, "Timeout for a single vision model call")
		jwtSecret     = fs.StringLong("jwt-secret", "", "HS256 secret used to verify auth tokens (required)")
		issueToken    = fs.StringLong("issue-token", "", "Print a 24h token for this user ID and exit")
		reportWorkers = fs.IntLong("report-workers", 2, "Number of report rendering workers")
		reportQueue   = fs.IntLong("report-queue-size", 256, "Report queue buffer size")
		reportTimeout = fs.DurationLong("report-timeout", time.Minute, "Deadline for rendering one report")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSE_REPORTS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *jwtSecret == "" {
		slog.Error("JWT secret is required. Set --jwt-secret flag or EXPENSE_REPORTS_JWT_SECRET environment variable")
		os.Exit(1)
	}

	if *issueToken != "" {
		token, err := server.SignToken([]byte(*jwtSecret), *issueToken, 24*time.Hour)
		if err != nil {
			slog.Error("Failed to sign token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := storage.Open(*dbPath, receipt.Bucket, report.Bucket)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize scanner based on type
	var scanner scanning.Scanner
	switch *scannerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel, *scanTimeout)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel, *scanTimeout)
	case "openai":
		apiKey := *openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		slog.Info("Initializing OpenAI scanner...", "url", *openaiURL, "model", *openaiModel)
		scanner, err = scanning.NewOpenAI(*openaiURL, apiKey, *openaiModel, *scanTimeout)
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini, ollama or openai")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize scanner", "type", *scannerType, "error", err)
		os.Exit(1)
	}
	defer scanner.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", *storagePath)
	blobs, err := blob.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize services
	receiptService := receipt.NewService(receipt.NewBoltDB(db), blobs, scanning.NewExtractor(scanner))

	queue := report.NewWorkerQueue(slog.Default(),
		report.WithWorkers(*reportWorkers),
		report.WithQueueSize(*reportQueue),
		report.WithRenderTimeout(*reportTimeout),
	)
	reportManager := report.NewManager(report.NewBoltStore(db), receiptService, blobs, queue)
	queue.Start(reportManager.Process)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reportManager.Recover(ctx); err != nil {
		slog.Error("Failed to requeue pending reports", "error", err)
	}

	// Serve until interrupted
	srv := server.NewServer(receiptService, reportManager, server.NewAuthenticator([]byte(*jwtSecret)))
	addr := fmt.Sprintf(":%d", *port)
	if err := srv.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
}
