// Package runner orchestrates a webhook load run end to end: it probes the
// target, seeds the parameter pool with catalog traffic, then posts generated
// deliveries at a controlled rate until the duration elapses.
package runner

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/channelsync/tools/loadgen/internal/generator"
	"github.com/channelsync/tools/loadgen/internal/loadctrl"
	"github.com/channelsync/tools/loadgen/internal/pool"
)

// DefaultWebhookPath is where the sync backend mounts its Shopify receiver.
const DefaultWebhookPath = "/api/v1/webhooks/shopify"

// Delivery headers the backend authenticates and deduplicates with.
const (
	headerTopic     = "X-Shopify-Topic"
	headerHmac      = "X-Shopify-Hmac-Sha256"
	headerWebhookID = "X-Shopify-Webhook-Id"
)

// Config controls one load run.
type Config struct {
	// TargetURL is the base URL of the sync backend, e.g. http://localhost:8080.
	TargetURL string
	// WebhookPath is the delivery path appended to TargetURL.
	WebhookPath string
	// Secret signs each delivery the way Shopify does. Empty sends unsigned
	// deliveries, which the backend only accepts with verification disabled.
	Secret string

	QPS      float64
	Burst    int
	Workers  int
	Duration time.Duration
	Timeout  time.Duration

	// Warmup is the number of products/create deliveries sent before the
	// timed run so update, delete and order traffic has identifiers to
	// reference from the first second.
	Warmup int
	// Seed reproduces the same entity sequence across runs. 0 randomizes.
	Seed uint64
	// Mix overrides the generator's default topic mix.
	Mix []generator.TopicWeight

	Verbose bool
}

func (c *Config) applyDefaults() {
	if c.WebhookPath == "" {
		c.WebhookPath = DefaultWebhookPath
	}
	if c.QPS <= 0 {
		c.QPS = 10
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Duration <= 0 {
		c.Duration = time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Stats holds overall delivery statistics.
type Stats struct {
	TotalDeliveries   int64
	SuccessDeliveries int64
	FailedDeliveries  int64
	TotalLatency      int64 // nanoseconds
}

// Runner sends generated webhook deliveries at a controlled rate.
type Runner struct {
	cfg     Config
	client  *http.Client
	pool    *pool.Pool
	gen     *generator.Generator
	limiter *loadctrl.TokenBucketLimiter

	// State
	running   atomic.Bool
	startTime time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup

	// Statistics
	stats   Stats
	topicMu sync.Mutex
	byTopic map[string]int64
}

// New creates a runner wired to a fresh parameter pool and generator.
func New(cfg Config) (*Runner, error) {
	cfg.applyDefaults()
	if cfg.TargetURL == "" {
		return nil, fmt.Errorf("runner: target URL is required")
	}

	poolCfg := pool.DefaultConfig()
	poolCfg.Shards = 32
	poolCfg.MaxPerType = 10000
	paramPool := pool.New(poolCfg)

	gen, err := generator.New(cfg.Seed, paramPool, cfg.Mix)
	if err != nil {
		paramPool.Close()
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	return &Runner{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        200,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		pool:    paramPool,
		gen:     gen,
		limiter: loadctrl.NewTokenBucketLimiter(cfg.QPS, cfg.Burst),
		stopCh:  make(chan struct{}),
		byTopic: make(map[string]int64),
	}, nil
}

// Run executes the load run.
func (r *Runner) Run(ctx context.Context) error {
	if r.running.Swap(true) {
		return fmt.Errorf("runner is already running")
	}
	defer r.running.Store(false)

	r.startTime = time.Now()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	r.printBanner()

	// Phase 1: Connectivity
	fmt.Println("\n[Phase 1] Probing target...")
	if err := r.probe(ctx); err != nil {
		r.pool.Close()
		return fmt.Errorf("target unreachable: %w", err)
	}
	fmt.Println("  ✓ Target reachable")

	// Phase 2: Warmup
	fmt.Println("\n[Phase 2] Warmup...")
	if err := r.warmup(ctx); err != nil {
		fmt.Printf("  ⚠ Warmup completed with errors: %v\n", err)
	} else {
		fmt.Println("  ✓ Warmup complete")
	}
	r.printPoolStatus()

	// Phase 3: Load
	fmt.Println("\n[Phase 3] Running load test...")
	fmt.Printf("  Duration: %v\n", r.cfg.Duration)
	fmt.Printf("  Target QPS: %.1f\n", r.cfg.QPS)
	fmt.Println()

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.runWorker(ctx)
	}

	// Progress reporting
	r.wg.Add(1)
	go r.runProgressReporter(ctx)

	// Wait for completion or interrupt
	select {
	case <-ctx.Done():
		fmt.Println("\n  Test duration reached")
	case sig := <-sigCh:
		fmt.Printf("\n  Received signal: %v, stopping...\n", sig)
		cancel()
	}

	close(r.stopCh)
	r.wg.Wait()
	r.pool.Close()

	r.printFinalReport()

	return nil
}

// probe checks the target answers HTTP at all. Any status code counts; the
// backend serves /health without authentication.
func (r *Runner) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.TargetURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// warmup seeds the parameter pool with catalog entities.
func (r *Runner) warmup(ctx context.Context) error {
	if r.cfg.Warmup == 0 {
		return nil
	}

	fmt.Printf("  Seeding catalog with %d products/create deliveries\n", r.cfg.Warmup)

	sent := 0
	for i := 0; i < r.cfg.Warmup; i++ {
		evt, err := r.gen.ProductCreate()
		if err != nil {
			return err
		}
		if r.deliver(ctx, evt) == nil {
			sent++
		}
	}
	if sent < r.cfg.Warmup {
		return fmt.Errorf("%d of %d seed deliveries failed", r.cfg.Warmup-sent, r.cfg.Warmup)
	}
	return nil
}

// runWorker is one delivery loop. Each iteration waits for a rate token,
// builds the next delivery and posts it.
func (r *Runner) runWorker(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		default:
			if err := r.limiter.Acquire(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}

			evt, err := r.gen.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				atomic.AddInt64(&r.stats.TotalDeliveries, 1)
				atomic.AddInt64(&r.stats.FailedDeliveries, 1)
				continue
			}

			r.deliver(ctx, evt)
		}
	}
}

// deliver posts one delivery with the headers Shopify sends. Returns nil
// when the backend acknowledged it.
func (r *Runner) deliver(ctx context.Context, evt generator.Event) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.cfg.TargetURL+r.cfg.WebhookPath, bytes.NewReader(evt.Body))
	if err != nil {
		r.record(evt.Topic, time.Since(start), false)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerTopic, evt.Topic)
	req.Header.Set(headerWebhookID, evt.EventID)
	if r.cfg.Secret != "" {
		req.Header.Set(headerHmac, r.sign(evt.Body))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.record(evt.Topic, time.Since(start), false)
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 400
	r.record(evt.Topic, time.Since(start), success)
	if !success {
		if r.cfg.Verbose {
			fmt.Printf("  ✗ %s returned %d\n", evt.Topic, resp.StatusCode)
		}
		return fmt.Errorf("%s returned status %d", evt.Topic, resp.StatusCode)
	}
	return nil
}

// record updates delivery statistics.
func (r *Runner) record(topic string, latency time.Duration, success bool) {
	atomic.AddInt64(&r.stats.TotalDeliveries, 1)
	atomic.AddInt64(&r.stats.TotalLatency, int64(latency))
	if success {
		atomic.AddInt64(&r.stats.SuccessDeliveries, 1)
	} else {
		atomic.AddInt64(&r.stats.FailedDeliveries, 1)
	}

	r.topicMu.Lock()
	r.byTopic[topic]++
	r.topicMu.Unlock()
}

// sign computes the delivery signature: base64(HMAC-SHA256(body, secret)).
func (r *Runner) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(r.cfg.Secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Snapshot returns the current statistics.
func (r *Runner) Snapshot() Stats {
	return Stats{
		TotalDeliveries:   atomic.LoadInt64(&r.stats.TotalDeliveries),
		SuccessDeliveries: atomic.LoadInt64(&r.stats.SuccessDeliveries),
		FailedDeliveries:  atomic.LoadInt64(&r.stats.FailedDeliveries),
		TotalLatency:      atomic.LoadInt64(&r.stats.TotalLatency),
	}
}

// TopicCounts returns per-topic delivery counts.
func (r *Runner) TopicCounts() map[string]int64 {
	r.topicMu.Lock()
	defer r.topicMu.Unlock()

	out := make(map[string]int64, len(r.byTopic))
	for k, v := range r.byTopic {
		out[k] = v
	}
	return out
}

// runProgressReporter reports progress periodically.
func (r *Runner) runProgressReporter(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printBanner prints the run banner.
func (r *Runner) printBanner() {
	fmt.Println("╔════════════════════════════════════════════════════════════╗")
	fmt.Printf("║  %-58s ║\n", "Webhook Load Generator")
	fmt.Println("╠════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Target:    %-48s ║\n", truncate(r.cfg.TargetURL, 48))
	fmt.Printf("║  Duration:  %-48s ║\n", r.cfg.Duration)
	fmt.Printf("║  QPS:       %-48.1f ║\n", r.cfg.QPS)
	fmt.Printf("║  Workers:   %-48d ║\n", r.cfg.Workers)
	fmt.Println("╚════════════════════════════════════════════════════════════╝")
}

// printPoolStatus prints how many recycled identifiers are available.
func (r *Runner) printPoolStatus() {
	types := r.pool.Types()

	total := 0
	counts := make(map[pool.SemanticType]int, len(types))
	for _, st := range types {
		n := r.pool.Count(st)
		counts[st] = n
		total += n
	}
	fmt.Printf("  Pool status: %d total values across %d types\n", total, len(types))

	if r.cfg.Verbose {
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
		for _, st := range types {
			fmt.Printf("    - %s: %d\n", st, counts[st])
		}
	}
}

// printProgress prints current progress.
func (r *Runner) printProgress() {
	elapsed := time.Since(r.startTime)
	total := atomic.LoadInt64(&r.stats.TotalDeliveries)
	success := atomic.LoadInt64(&r.stats.SuccessDeliveries)
	totalLatency := atomic.LoadInt64(&r.stats.TotalLatency)

	successRate := float64(0)
	if total > 0 {
		successRate = float64(success) / float64(total) * 100
	}

	qps := float64(total) / elapsed.Seconds()

	var avgLatency time.Duration
	if total > 0 {
		avgLatency = time.Duration(totalLatency / total)
	}

	fmt.Printf("  [%s] Deliveries: %d | QPS: %.1f | Success: %.1f%% | Avg: %s\n",
		elapsed.Round(time.Second), total, qps, successRate, avgLatency.Round(time.Microsecond))
}

// printFinalReport prints the final delivery report.
func (r *Runner) printFinalReport() {
	elapsed := time.Since(r.startTime)
	s := r.Snapshot()

	var avgLatency time.Duration
	if s.TotalDeliveries > 0 {
		avgLatency = time.Duration(s.TotalLatency / s.TotalDeliveries)
	}

	successRate := float64(0)
	if s.TotalDeliveries > 0 {
		successRate = float64(s.SuccessDeliveries) / float64(s.TotalDeliveries) * 100
	}

	qps := float64(s.TotalDeliveries) / elapsed.Seconds()

	byTopic := r.TopicCounts()

	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  WEBHOOK DELIVERY RESULTS                  ║")
	fmt.Println("╠════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Duration:       %-42s ║\n", elapsed.Round(time.Second))
	fmt.Printf("║  Deliveries:     %-42d ║\n", s.TotalDeliveries)
	fmt.Printf("║  Successful:     %-42d ║\n", s.SuccessDeliveries)
	fmt.Printf("║  Failed:         %-42d ║\n", s.FailedDeliveries)
	fmt.Printf("║  QPS:            %-42.2f ║\n", qps)
	fmt.Printf("║  Success Rate:   %-41.2f%% ║\n", successRate)
	fmt.Printf("║  Avg Latency:    %-42s ║\n", avgLatency.Round(time.Microsecond))
	fmt.Println("╠════════════════════════════════════════════════════════════╣")
	for _, topic := range generator.AllTopics() {
		if n, ok := byTopic[topic]; ok {
			fmt.Printf("║  %-24s %-33d ║\n", topic, n)
		}
	}
	fmt.Println("╚════════════════════════════════════════════════════════════╝")
}

// truncate truncates a string to max length.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
