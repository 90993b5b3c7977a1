package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/heirloom-backend/internal/domain"
	"github.com/yungbote/heirloom-backend/internal/platform/envutil"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	aggregateOps      *CounterVec
	aggregateLatency  *HistogramVec
	aggregateConflict *CounterVec
	aggregateRetry    *CounterVec

	scanRuns       *CounterVec
	scanLatency    *HistogramVec
	scanPairs      *CounterVec
	candidateRows  *CounterVec
	candidateDepth *GaugeVec
	mergeOutcomes  *CounterVec

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

// Counter is an unlabeled CounterVec.
type Counter = CounterVec

func NewCounter(name, help string) *Counter {
	return NewCounterVec(name, help, nil)
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	n := envutil.Int("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if n <= 0 {
		n = 10
	}
	return time.Duration(n) * time.Second
}

// Init returns the process-wide metrics, or nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered metrics set. Tests use it directly.
func New() *Metrics {
	durations := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("hl_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"hl_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			durations,
		),
		apiInflight: NewGauge("hl_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("hl_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("hl_api_requests_error_total", "Total API requests answered with 5xx."),

		aggregateOps:      NewCounterVec("hl_aggregate_operations_total", "Aggregate write operations by name/status.", []string{"operation", "status"}),
		aggregateLatency:  NewHistogramVec("hl_aggregate_operation_duration_seconds", "Aggregate write latency by name/status.", []string{"operation", "status"}, durations),
		aggregateConflict: NewCounterVec("hl_aggregate_conflicts_total", "Aggregate conflicts by operation.", []string{"operation"}),
		aggregateRetry:    NewCounterVec("hl_aggregate_retries_total", "Aggregate retries by operation.", []string{"operation"}),

		scanRuns:       NewCounterVec("hl_dedupe_scans_total", "Duplicate scans by mode/status.", []string{"mode", "status"}),
		scanLatency:    NewHistogramVec("hl_dedupe_scan_duration_seconds", "Duplicate scan latency by mode.", []string{"mode"}, durations),
		scanPairs:      NewCounterVec("hl_dedupe_scan_pairs_total", "Pairs considered by a scan, by outcome.", []string{"outcome"}),
		candidateRows:  NewCounterVec("hl_dedupe_candidate_writes_total", "Candidate rows written by scans, by action.", []string{"action"}),
		candidateDepth: NewGaugeVec("hl_dedupe_candidates", "Stored duplicate candidates by status.", []string{"status"}),
		mergeOutcomes:  NewCounterVec("hl_dedupe_merges_total", "Merge attempts by outcome.", []string{"outcome"}),

		pgStats:   NewGaugeVec("hl_db_pool", "Database pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("hl_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("hl_redis_ping_seconds", "Latency of the last redis ping."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflict, m.aggregateRetry,
		m.scanRuns, m.scanLatency, m.scanPairs, m.candidateRows, m.candidateDepth, m.mergeOutcomes,
		m.pgStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(name, status)
	m.aggregateLatency.Observe(dur.Seconds(), name, status)
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflict.Inc(name)
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetry.Inc(name)
}

// ObserveScan records one family scan. mode is "full" or "incremental".
func (m *Metrics) ObserveScan(mode, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.scanRuns.Inc(mode, status)
	m.scanLatency.Observe(dur.Seconds(), mode)
}

func (m *Metrics) AddScanPairs(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.scanPairs.Add(float64(n), outcome)
}

func (m *Metrics) AddCandidateWrites(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.candidateRows.Add(float64(n), action)
}

func (m *Metrics) IncMergeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.mergeOutcomes.Inc(outcome)
}

// ScanPairs returns the running pair count for one scan outcome.
func (m *Metrics) ScanPairs(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.scanPairs.Value(outcome)
}

func (m *Metrics) MergeOutcomes(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.mergeOutcomes.Value(outcome)
}

func (m *Metrics) AggregateConflicts(name string) float64 {
	if m == nil {
		return 0
	}
	return m.aggregateConflict.Value(name)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings the lock backend's client; it never closes the client.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// StartCandidateCollector samples candidate counts per status across all families.
func (m *Metrics) StartCandidateCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	statuses := []string{types.CandidateStatusPending, types.CandidateStatusDismissed, types.CandidateStatusMerged}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.sampleCandidates(ctx, db, statuses); err != nil && log != nil {
					log.Warn("metrics: candidate count query failed", "error", err)
				}
			}
		}
	}()
}

func (m *Metrics) sampleCandidates(ctx context.Context, db *gorm.DB, statuses []string) error {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&types.DuplicateCandidate{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range statuses {
		m.candidateDepth.Set(0, s)
	}
	for _, row := range rows {
		status := strings.TrimSpace(row.Status)
		if status == "" {
			status = "unknown"
		}
		m.candidateDepth.Set(float64(row.Count), status)
	}
	return nil
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	return len(status) == 3 && status[0] == '5'
}
