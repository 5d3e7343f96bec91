// Package main is the stock analysis CLI: it fetches market data for a list
// of symbols, generates insights through the configured LLM provider, and
// persists the results to PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stock-analyzer/analyzer"
	"stock-analyzer/config"
	"stock-analyzer/models"
	"stock-analyzer/observability"
	"stock-analyzer/repository"
	"stock-analyzer/services"
)

func main() {
	var (
		symbolsFlag    = flag.String("symbols", "", "comma-separated stock symbols to analyze (required)")
		dateFlag       = flag.String("date", "", "analysis date as YYYY-MM-DD (default today)")
		forceFlag      = flag.Bool("force", false, "re-analyze even when a cached result exists")
		parallelFlag   = flag.Int("parallel", 0, "concurrent analyses (default from ANALYSIS_PARALLELISM)")
		continueFlag   = flag.Bool("continue-on-error", false, "keep going after individual failures")
		devLoggingFlag = flag.Bool("dev", false, "human-readable log output")
	)
	flag.Parse()

	// .env is optional; environment variables win
	_ = godotenv.Load()

	observability.InitLogger(!*devLoggingFlag)
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	symbols := splitSymbols(*symbolsFlag)
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "usage: analyzer -symbols AAPL,MSFT [-date YYYY-MM-DD] [-force] [-parallel N] [-continue-on-error]")
		os.Exit(2)
	}

	var date time.Time
	if *dateFlag != "" {
		date, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			observability.Fatal("invalid -date, expected YYYY-MM-DD", "value", *dateFlag)
		}
	}

	parallelism := cfg.Analysis.Parallelism
	if *parallelFlag > 0 {
		parallelism = *parallelFlag
	}
	continueOnError := cfg.Analysis.ContinueOnError || *continueFlag

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.HasDatabase() {
		observability.Fatal("DATABASE_URL is required")
	}
	repo, err := repository.NewRepository(ctx, cfg.Database.URL)
	if err != nil {
		observability.Fatal("failed to connect to database", "error", err)
	}
	defer repo.Close()

	if err := repo.InitSchema(ctx); err != nil {
		observability.Fatal("failed to initialize schema", "error", err)
	}

	primary, err := buildProvider(cfg.MarketData.PrimaryProvider, cfg)
	if err != nil {
		observability.Fatal("failed to create primary market data provider", "error", err)
	}
	var backup services.MarketDataProvider
	if cfg.HasBackupProvider() {
		backup, err = buildProvider(cfg.MarketData.BackupProvider, cfg)
		if err != nil {
			observability.Fatal("failed to create backup market data provider", "error", err)
		}
	}
	fetcher := services.NewFetcher(primary, backup)

	retryCfg := services.RetryConfig{
		MaxAttempts:     cfg.Analysis.RetryMaxAttempts,
		BaseDelay:       cfg.Analysis.RetryBaseDelay,
		MaxDelay:        cfg.Analysis.RetryMaxDelay,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
	llm, err := services.NewLLMClient(ctx, &cfg.LLM, retryCfg)
	if err != nil {
		observability.Fatal("failed to create LLM client", "error", err)
	}

	if cfg.HTTP.MetricsAddr != "" {
		go serveMetrics(cfg.HTTP.MetricsAddr, repo)
	}

	a := analyzer.New(llm, fetcher, repo, cfg.MarketData.HistoryDays)

	result := a.AnalyzeBatch(ctx, symbols, analyzer.BatchOptions{
		Parallelism:     parallelism,
		ContinueOnError: continueOnError,
		Force:           *forceFlag,
		Date:            date,
	})

	printSummary(result)
	if result.FailureCount > 0 {
		os.Exit(1)
	}
}

// buildProvider constructs a market data provider by name
func buildProvider(name string, cfg *config.Config) (services.MarketDataProvider, error) {
	switch strings.ToLower(name) {
	case "yahoo":
		return services.NewYahooProvider(), nil
	case "alpha_vantage":
		return services.NewAlphaVantageProvider(cfg.MarketData.AlphaVantageAPIKey), nil
	case "alpaca":
		return services.NewAlpacaProvider(cfg.MarketData.AlpacaAPIKey, cfg.MarketData.AlpacaAPISecret, cfg.MarketData.AlpacaBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown market data provider: %q (supported providers: yahoo, alpha_vantage, alpaca)", name)
	}
}

// serveMetrics exposes Prometheus metrics and a health endpoint for the
// lifetime of the batch run
func serveMetrics(addr string, repo *repository.Repository) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := repo.Health(req.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	observability.Info("metrics server listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		observability.Error("metrics server stopped", "error", err)
	}
}

func splitSymbols(s string) []string {
	var symbols []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			symbols = append(symbols, part)
		}
	}
	return symbols
}

func printSummary(result *models.BatchResult) {
	fmt.Printf("\nAnalyzed %d symbols in %.2fs: %d succeeded, %d failed\n",
		result.Total, result.Duration.Seconds(), result.SuccessCount, result.FailureCount)
	for _, r := range result.Results {
		if r.Status == "success" {
			fmt.Printf("  %-8s ok\n", r.Symbol)
		} else {
			fmt.Printf("  %-8s failed: %s\n", r.Symbol, r.ErrorMessage)
		}
	}
}
