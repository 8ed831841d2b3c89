package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eantrace/eantrace/config"
	"github.com/eantrace/eantrace/ean"
	"github.com/eantrace/eantrace/fetch"
	"github.com/eantrace/eantrace/report"
	"github.com/eantrace/eantrace/search"
	"github.com/eantrace/eantrace/sources"
)

func main() {
	defaultCfg := config.DefaultConfig()
	langDefault := defaultCfg.Lang
	if value, ok := config.EnvString("EANTRACE_LANG"); ok {
		langDefault = value
	}
	maxResultsDefault := defaultCfg.MaxResults
	if value, ok, err := config.EnvInt("EANTRACE_MAX_RESULTS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid EANTRACE_MAX_RESULTS: %v\n", err)
		os.Exit(1)
	} else if ok {
		maxResultsDefault = value
	}
	parallelDefault := defaultCfg.Parallelism
	if value, ok, err := config.EnvInt("EANTRACE_PARALLEL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid EANTRACE_PARALLEL: %v\n", err)
		os.Exit(1)
	} else if ok {
		parallelDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("EANTRACE_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("EANTRACE_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	var proxies stringList
	lang := flag.String("lang", langDefault, "Search language code (e.g. es, en, fr)")
	maxResults := flag.Int("max-results", maxResultsDefault, "Maximum web results per search term")
	topCandidates := flag.Int("top", defaultCfg.TopCandidates, "Candidate URLs analyzed per completed term")
	parallelism := flag.Int("parallel", parallelDefault, "Number of concurrent in-flight operations")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Request timeout (seconds)")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum attempts per network call")
	retryBackoffMs := flag.Int("retry-backoff", int(defaultCfg.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(defaultCfg.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	flag.Var(&proxies, "proxy", "HTTP/S proxy URL, round-robin rotated (repeatable)")
	outputFile := flag.String("output", outputDefault, "Export file path (default: auto-generated)")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Export format: csv, json, or dual")
	noExport := flag.Bool("no-export", false, "Skip writing the export file")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <ean>\n\nSearches public sources for historical evidence about an EAN/UPC code.\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	rawCode := flag.Arg(0)

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.Lang = strings.ToLower(*lang)
	cfg.MaxResults = *maxResults
	cfg.TopCandidates = *topCandidates
	cfg.Parallelism = *parallelism
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.Proxies = proxies
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := fetch.NewMetrics()
	client, err := fetch.NewClient(cfg, metrics)
	if err != nil {
		slog.Error("initialising http client", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	orchestrator := search.New(cfg,
		[]search.EnrichmentSource{
			sources.NewProductDB(client),
			sources.NewSnapshotArchive(client),
			sources.NewMarketplace(client),
		},
		sources.NewWebSearch(client, cfg),
		sources.NewPageAnalyzer(client),
	)

	rs, err := orchestrator.Run(ctx, rawCode)
	if err != nil {
		if errors.Is(err, ean.ErrInvalidCode) {
			slog.Error("invalid ean code", slog.String("code", rawCode), slog.Any("error", err))
			os.Exit(2)
		}
		slog.Error("search failed", slog.Any("error", err))
		os.Exit(1)
	}
	rs.Stats.RetryCount = client.TotalRetries()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	rep := report.Aggregate(rs)
	metrics.AddFindings(rep.Total())
	rep.Render(os.Stdout)
	fmt.Println("\nRun statistics:")
	rep.RenderStats(os.Stdout)

	if *noExport || rep.Total() == 0 {
		return
	}
	path := cfg.OutputFile
	if path == "" {
		path = report.DefaultExportPath(rs.Code)
	}
	if err := export(rep, cfg.OutputFormat, path); err != nil {
		slog.Error("export failed", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Printf("\nResults saved to: %s\n", path)
}

func export(rep *report.Report, format, path string) error {
	writer, err := createWriter(format, path)
	if err != nil {
		return err
	}
	if err := writer.Write(rep.Rows()); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Validate(); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func createWriter(format, filename string) (report.OutputWriter, error) {
	switch format {
	case "json":
		return report.NewJSONWriter(filename)
	case "csv":
		return report.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return report.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// stringList collects repeatable flag values.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
