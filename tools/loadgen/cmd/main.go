// Package main provides the CLI entry point for the webhook load generator.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/channelsync/tools/loadgen/internal/generator"
	"github.com/channelsync/tools/loadgen/internal/pool"
	"github.com/channelsync/tools/loadgen/internal/runner"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// CLI flags
var (
	targetURL   string
	webhookPath string
	secret      string
	qps         float64
	burst       int
	workers     int
	duration    time.Duration
	timeout     time.Duration
	warmup      int
	seed        uint64
	mixSpec     string
	verbose     bool
	listTopics  bool
	dryRun      bool
	showVersion bool
)

func init() {
	// Target
	flag.StringVar(&targetURL, "target", "", "Base URL of the sync backend (e.g., http://localhost:8080)")
	flag.StringVar(&targetURL, "t", "", "Base URL of the sync backend (shorthand)")
	flag.StringVar(&webhookPath, "path", runner.DefaultWebhookPath, "Webhook delivery path on the target")
	flag.StringVar(&secret, "secret", "", "HMAC secret for signing deliveries (defaults to $CSYNC_SHOPIFY_WEBHOOK_SECRET)")

	// Load shape
	flag.Float64Var(&qps, "qps", 10, "Target deliveries per second")
	flag.IntVar(&burst, "burst", 0, "Rate limiter burst size (0 derives from QPS)")
	flag.IntVar(&workers, "workers", 4, "Number of concurrent delivery workers")
	flag.DurationVar(&duration, "duration", time.Minute, "Test duration (e.g., 5m, 1h)")
	flag.DurationVar(&duration, "d", time.Minute, "Test duration (shorthand)")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Per-delivery HTTP timeout")

	// Traffic content
	flag.IntVar(&warmup, "warmup", 25, "products/create deliveries sent before the timed run")
	flag.Uint64Var(&seed, "seed", 0, "Entity generation seed (0 randomizes)")
	flag.StringVar(&mixSpec, "mix", "", "Topic mix, e.g. products/create:4,orders/create:2 (default mix when empty)")

	// Utility flags
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose output")
	flag.BoolVar(&verbose, "v", false, "Enable verbose output (shorthand)")
	flag.BoolVar(&listTopics, "list-topics", false, "List supported webhook topics and exit")
	flag.BoolVar(&listTopics, "l", false, "List supported webhook topics (shorthand)")
	flag.BoolVar(&dryRun, "dry-run", false, "Show the delivery plan without sending")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	// Custom usage
	flag.Usage = printUsage
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Webhook Load Generator - Commerce Sync Backend Testing Tool

USAGE:
    loadgen -target <url> [options]
    loadgen -list-topics                 (List supported webhook topics)

DESCRIPTION:
    Generates realistic Shopify webhook traffic against the sync backend's
    delivery endpoint. Catalog, order and inventory payloads are built with
    fake but internally consistent data: identifiers introduced by create
    deliveries are recycled into later update, delete and order traffic, so
    the backend exercises its reconciliation paths instead of rejecting
    unknown entities.

    Each delivery is signed the way Shopify signs webhooks
    (base64 HMAC-SHA256 over the raw body) unless no secret is configured.

TARGET:
    -target, -t <url>     Base URL of the sync backend
    -path <path>          Webhook delivery path (default %s)
    -secret <key>         HMAC signing secret (defaults to $CSYNC_SHOPIFY_WEBHOOK_SECRET)

LOAD SHAPE:
    -qps <n>              Target deliveries per second (default 10)
    -burst <n>            Rate limiter burst size (0 derives from QPS)
    -workers <n>          Concurrent delivery workers (default 4)
    -duration, -d <dur>   Test duration (default 1m)
    -timeout <dur>        Per-delivery HTTP timeout (default 10s)

TRAFFIC CONTENT:
    -warmup <n>           Seed deliveries before the timed run (default 25)
    -seed <n>             Entity generation seed, 0 randomizes
    -mix <spec>           Topic mix, e.g. products/create:4,orders/create:2

UTILITY OPTIONS:
    -list-topics, -l      List supported webhook topics and exit
    -dry-run              Show the delivery plan without sending
    -verbose, -v          Enable verbose output
    -version              Show version information
    -help, -h             Show this help message

EXAMPLES:
    # One minute of default traffic against a local backend
    loadgen -target http://localhost:8080 -secret dev-secret

    # Ten minutes at 50 deliveries/s with a catalog-heavy mix
    loadgen -target http://localhost:8080 -duration 10m -qps 50 \
        -mix products/create:5,products/update:10,inventory_levels/update:5

    # Reproducible run for bisecting a backend regression
    loadgen -target http://localhost:8080 -seed 42 -duration 2m

    # Inspect generated payloads without a running backend
    loadgen -dry-run -v

    # List the topics the backend subscribes to
    loadgen -list-topics
`, runner.DefaultWebhookPath)
}

func main() {
	flag.Parse()

	// Handle version flag
	if showVersion {
		printVersion()
		os.Exit(0)
	}

	if listTopics {
		printTopicList()
		os.Exit(0)
	}

	mix, err := parseMixFlag()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -mix: %v\n", err)
		os.Exit(1)
	}

	if dryRun {
		if err := printDeliveryPlan(mix); err != nil {
			fmt.Fprintf(os.Stderr, "Error building delivery plan: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if targetURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -target flag is required")
		fmt.Fprintln(os.Stderr, "")
		printUsage()
		os.Exit(1)
	}

	if secret == "" {
		secret = os.Getenv("CSYNC_SHOPIFY_WEBHOOK_SECRET")
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "Warning: no signing secret configured, deliveries will be unsigned")
	}

	r, err := runner.New(runner.Config{
		TargetURL:   targetURL,
		WebhookPath: webhookPath,
		Secret:      secret,
		QPS:         qps,
		Burst:       burst,
		Workers:     workers,
		Duration:    duration,
		Timeout:     timeout,
		Warmup:      warmup,
		Seed:        seed,
		Mix:         mix,
		Verbose:     verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating runner: %v\n", err)
		os.Exit(1)
	}

	if err := r.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error running load test: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("loadgen version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

func parseMixFlag() ([]generator.TopicWeight, error) {
	if mixSpec == "" {
		return nil, nil
	}
	return generator.ParseMix(mixSpec)
}

func printTopicList() {
	defaults := make(map[string]int)
	for _, tw := range generator.DefaultMix() {
		defaults[tw.Topic] = tw.Weight
	}

	fmt.Println("Supported webhook topics:")
	for _, topic := range generator.AllTopics() {
		fmt.Printf("  %-26s default weight %d\n", topic, defaults[topic])
	}
}

// printDeliveryPlan shows the effective run settings and, when verbose, one
// sample payload per topic. Nothing is sent.
func printDeliveryPlan(mix []generator.TopicWeight) error {
	poolCfg := pool.DefaultConfig()
	poolCfg.SweepInterval = 0
	p := pool.New(poolCfg)
	defer p.Close()

	g, err := generator.New(seed, p, mix)
	if err != nil {
		return err
	}

	effective := g.Mix()
	total := 0
	for _, tw := range effective {
		total += tw.Weight
	}

	fmt.Println("Delivery plan:")
	fmt.Printf("  Target:   %s%s\n", orPlaceholder(targetURL), webhookPath)
	fmt.Printf("  Duration: %v at %.1f deliveries/s (%d workers)\n", duration, qps, workers)
	fmt.Printf("  Warmup:   %d products/create deliveries\n", warmup)
	fmt.Println("  Mix:")
	for _, tw := range effective {
		fmt.Printf("    %-26s %5.1f%%\n", tw.Topic, float64(tw.Weight)/float64(total)*100)
	}

	if verbose {
		fmt.Println("\nSample payloads:")
		for _, tw := range effective {
			evt, err := g.Build(tw.Topic)
			if err != nil {
				return err
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, evt.Body, "  ", "  "); err != nil {
				return err
			}
			fmt.Printf("\n  %s\n  %s\n", tw.Topic, pretty.String())
		}
	}
	return nil
}

func orPlaceholder(s string) string {
	if s == "" {
		return "<target not set>"
	}
	return s
}
