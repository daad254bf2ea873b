// Package worker implements the buffered worker pool that writes per-match
// features to ClickHouse off the request path:
// - Load shedding when the queue is full
// - Batch inserts, flushed by size or interval
// - Graceful shutdown that drains the queue
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/postleo/riftinsights/internal/models"
)

// Prometheus metrics
var (
	featuresQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftsage_features_queued_total",
		Help: "Total number of feature records queued for writing",
	})

	featuresWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftsage_features_written_total",
		Help: "Total number of feature records written to ClickHouse",
	})

	featuresFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftsage_features_failed_total",
		Help: "Total number of feature records in failed batches",
	})

	featuresShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftsage_features_load_shed_total",
		Help: "Total number of feature records dropped because the queue was full or stopped",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riftsage_worker_queue_depth",
		Help: "Current depth of the feature queue",
	})

	batchWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riftsage_batch_write_duration_seconds",
		Help:    "Duration of feature batch writes",
		Buckets: prometheus.DefBuckets,
	})
)

// BatchWriter persists a batch of feature records.
type BatchWriter interface {
	WriteBatch(ctx context.Context, records []models.MatchFeatures) error
}

// Job is one queued feature record.
type Job struct {
	Features models.MatchFeatures
	Queued   time.Time
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
	Writer        BatchWriter
	Logger        *zap.Logger
}

// Pool batches feature records and hands them to a BatchWriter.
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger

	// closeMu guards jobQueue against sends after Stop.
	closeMu sync.RWMutex
	closed  bool
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop closes the queue and waits for workers to write what is left.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")

	p.closeMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
	p.closeMu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Info("Worker pool stopped")
}

// Enqueue adds a record without blocking. It returns false when the queue is
// full or the pool is stopped.
func (p *Pool) Enqueue(f models.MatchFeatures) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		featuresShed.Inc()
		return false
	}

	select {
	case p.jobQueue <- Job{Features: f, Queued: time.Now()}:
		featuresQueued.Inc()
		return true
	default:
		p.logger.Warnw("Feature queue full, dropping record", "matchID", f.MatchID)
		featuresShed.Inc()
		return false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker drains the queue in batches until it is closed.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]Job, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		if err := p.processBatch(batch); err != nil {
			p.logger.Errorw("Batch write failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			featuresFailed.Add(float64(len(batch)))
		} else {
			p.logger.Debugw("Batch written", "worker", id, "batchSize", len(batch), "duration", time.Since(start))
			featuresWritten.Add(float64(len(batch)))
		}
		batchWriteDuration.Observe(time.Since(start).Seconds())

		batch = batch[:0]
	}

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, job)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

// processBatch writes one batch. The write gets its own timeout so the final
// flush during Stop still runs after the parent context is gone.
func (p *Pool) processBatch(batch []Job) error {
	records := make([]models.MatchFeatures, len(batch))
	for i, job := range batch {
		records[i] = job.Features
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.WriteTimeout)
	defer cancel()
	return p.config.Writer.WriteBatch(ctx, records)
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
