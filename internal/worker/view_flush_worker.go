package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/telemetry"
)

// ViewBuffer is the source of pending view counts
type ViewBuffer interface {
	// Drain removes and returns up to batchSize pending counts keyed by event id
	Drain(ctx context.Context, batchSize int) (map[string]int64, error)
	// Restore puts a count back for a later flush
	Restore(ctx context.Context, eventID string, delta int64) error
}

// ViewFlushWorkerConfig holds configuration for the view flush worker
type ViewFlushWorkerConfig struct {
	FlushInterval time.Duration
	BatchSize     int
}

// DefaultViewFlushWorkerConfig returns default configuration
func DefaultViewFlushWorkerConfig() *ViewFlushWorkerConfig {
	return &ViewFlushWorkerConfig{
		FlushInterval: 5 * time.Second,
		BatchSize:     500,
	}
}

// ViewFlushWorkerStats holds runtime statistics
type ViewFlushWorkerStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalFlushed     int64     `json:"total_flushed"`
	TotalFailed      int64     `json:"total_failed"`
	LastFlushTime    time.Time `json:"last_flush_time"`
	LastFlushedCount int       `json:"last_flushed_count"`
}

// ViewFlushWorker periodically moves buffered view counts into the events table
type ViewFlushWorker struct {
	buffer ViewBuffer
	events repository.EventRepository
	config *ViewFlushWorkerConfig
	log    *logger.Logger

	flushDuration *telemetry.Histogram

	mu               sync.Mutex
	running          bool
	stopCh           chan struct{}
	doneCh           chan struct{}
	totalFlushed     int64
	totalFailed      int64
	lastFlushTime    time.Time
	lastFlushedCount int
}

// NewViewFlushWorker creates a new ViewFlushWorker
func NewViewFlushWorker(buffer ViewBuffer, events repository.EventRepository, log *logger.Logger, config *ViewFlushWorkerConfig) *ViewFlushWorker {
	if config == nil {
		config = DefaultViewFlushWorkerConfig()
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if log == nil {
		log = logger.NewNop()
	}

	w := &ViewFlushWorker{
		buffer: buffer,
		events: events,
		config: config,
		log:    log.Named("view-flush"),
	}

	hist, err := telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "view_flush_duration_seconds",
		Description: "Time spent flushing buffered views",
		Unit:        "s",
	}, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5)
	if err != nil {
		w.log.Warn("failed to create flush histogram", zap.Error(err))
	}
	w.flushDuration = hist
	return w
}

// Start runs the flush loop until Stop is called or ctx is done
func (w *ViewFlushWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx)
	w.log.Info("view flush worker started",
		zap.Duration("interval", w.config.FlushInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)
}

func (w *ViewFlushWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Flush(ctx)
		case <-w.stopCh:
			// final flush on a fresh context, the parent may be cancelled
			w.Flush(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			w.Flush(context.WithoutCancel(ctx))
			return
		}
	}
}

// Stop stops the worker after a final flush
func (w *ViewFlushWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.log.Info("view flush worker stopped")
}

// Flush drains one batch and applies it. It returns the number of events updated.
func (w *ViewFlushWorker) Flush(ctx context.Context) int {
	start := time.Now()

	pending, err := w.buffer.Drain(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("failed to drain view buffer", zap.Error(err))
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	flushed := 0
	var failed int64
	for eventID, delta := range pending {
		if err := w.events.IncrementViewCount(ctx, eventID, delta); err != nil {
			failed++
			w.log.Warn("failed to apply view count, restoring",
				zap.String("event_id", eventID),
				zap.Int64("delta", delta),
				zap.Error(err),
			)
			if rerr := w.buffer.Restore(ctx, eventID, delta); rerr != nil {
				w.log.Error("failed to restore view count",
					zap.String("event_id", eventID),
					zap.Int64("delta", delta),
					zap.Error(rerr),
				)
			}
			continue
		}
		flushed++
	}

	if w.flushDuration != nil {
		w.flushDuration.Record(ctx, time.Since(start).Seconds())
	}

	w.mu.Lock()
	w.totalFlushed += int64(flushed)
	w.totalFailed += failed
	w.lastFlushTime = time.Now()
	w.lastFlushedCount = flushed
	w.mu.Unlock()

	w.log.Debug("flushed view counts", zap.Int("events", flushed), zap.Int64("failed", failed))
	return flushed
}

// GetStats returns current worker statistics
func (w *ViewFlushWorker) GetStats() ViewFlushWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ViewFlushWorkerStats{
		IsRunning:        w.running,
		TotalFlushed:     w.totalFlushed,
		TotalFailed:      w.totalFailed,
		LastFlushTime:    w.lastFlushTime,
		LastFlushedCount: w.lastFlushedCount,
	}
}
