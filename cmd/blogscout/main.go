package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/config"
	"github.com/pevans/blogscout/crawl"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// flagProvided reports whether the named flag was passed on the command
// line or seeded through its environment variable. Flag defaults must not
// clobber values from the config file.
func flagProvided(fs *flag.FlagSet, name, envKey string) bool {
	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			explicit = true
		}
	})
	return explicit || os.Getenv(envKey) != ""
}

// parseDate parses a YYYY-MM-DD flag value into a midnight-UTC date.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	d := blogscout.Date(t.Year(), t.Month(), t.Day())
	return &d, nil
}

func main() {
	maxPosts := flag.Int("max-posts", getEnvInt("BLOGSCOUT_MAX_POSTS", 0), "Maximum number of posts to return, 0 for no limit (BLOGSCOUT_MAX_POSTS)")
	after := flag.String("after", getEnv("BLOGSCOUT_AFTER", ""), "Only include posts published on or after this date, YYYY-MM-DD (BLOGSCOUT_AFTER)")
	before := flag.String("before", getEnv("BLOGSCOUT_BEFORE", ""), "Only include posts published on or before this date, YYYY-MM-DD (BLOGSCOUT_BEFORE)")
	concurrency := flag.Int("concurrency", getEnvInt("BLOGSCOUT_CONCURRENCY", 5), "Validation worker pool width (BLOGSCOUT_CONCURRENCY)")
	timeout := flag.Duration("timeout", getEnvDuration("BLOGSCOUT_TIMEOUT", 10*time.Minute), "Overall crawl deadline (BLOGSCOUT_TIMEOUT)")
	cachePath := flag.String("cache", getEnv("BLOGSCOUT_CACHE_PATH", ""), "Path to SQLite page cache, empty to disable (BLOGSCOUT_CACHE_PATH)")
	renderEndpoint := flag.String("render-endpoint", getEnv("BLOGSCOUT_RENDER_ENDPOINT", ""), "Content rendering service URL (BLOGSCOUT_RENDER_ENDPOINT)")
	renderToken := flag.String("render-token", getEnv("BLOGSCOUT_RENDER_TOKEN", ""), "Content rendering service bearer token (BLOGSCOUT_RENDER_TOKEN)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <seed-url>\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Discovers article pages linked from a blog or resource listing\nand prints them as JSON.\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	seedURL := flag.Arg(0)

	cfg := blogscout.DefaultConfig()

	fileCfg, err := config.LoadConfigFile()
	if err != nil {
		logger.Fatal("failed to load config file", "err", err)
	}
	fileCfg.Apply(&cfg)

	// Flags and env vars beat the config file, but only when actually set
	if flagProvided(flag.CommandLine, "concurrency", "BLOGSCOUT_CONCURRENCY") && *concurrency > 0 {
		cfg.FetchConcurrency = *concurrency
	}
	if flagProvided(flag.CommandLine, "cache", "BLOGSCOUT_CACHE_PATH") && *cachePath != "" {
		cfg.CachePath = *cachePath
	}
	if flagProvided(flag.CommandLine, "render-endpoint", "BLOGSCOUT_RENDER_ENDPOINT") && *renderEndpoint != "" {
		cfg.RenderEndpoint = *renderEndpoint
	}
	if flagProvided(flag.CommandLine, "render-token", "BLOGSCOUT_RENDER_TOKEN") && *renderToken != "" {
		cfg.RenderToken = *renderToken
	}

	start, err := parseDate(*after)
	if err != nil {
		logger.Fatal("invalid -after date", "err", err)
	}
	end, err := parseDate(*before)
	if err != nil {
		logger.Fatal("invalid -before date", "err", err)
	}

	pipeline, err := crawl.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", "err", err)
	}
	defer pipeline.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	posts, err := pipeline.ExtractBlogPostURLs(ctx, seedURL, crawl.Options{
		MaxPosts:       *maxPosts,
		DateRangeStart: start,
		DateRangeEnd:   end,
	})
	if err != nil {
		logger.Fatal("crawl failed", "err", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(posts); err != nil {
		logger.Fatal("failed to encode results", "err", err)
	}
}
