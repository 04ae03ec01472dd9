package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

const (
	bufferSize    = 10_000
	flushInterval = time.Second
	flushBatch    = 500
	drainTimeout  = 2 * time.Second
)

// ClickHouseWriter writes generation events to ClickHouse asynchronously.
// Write() is non-blocking: events are buffered and batch-inserted in a background goroutine.
type ClickHouseWriter struct {
	conn    driver.Conn
	buffer  chan *GenerationEvent
	done    chan struct{}
	flushed chan struct{} // closed by flushLoop when it returns
	logger  *zap.Logger
}

// NewClickHouseWriter connects, creates the events table if needed, and starts the flush loop.
func NewClickHouseWriter(dsn string, logger *zap.Logger) (*ClickHouseWriter, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("NewClickHouseWriter: %w", err)
	}
	// ClickHouse Cloud serves the native protocol over TLS on 9440.
	if opts.TLS == nil && opts.Protocol == clickhouse.Native && isSecurePort(opts.Addr) {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("NewClickHouseWriter: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("NewClickHouseWriter: %w", err)
	}
	if err := conn.Exec(ctx, createEventsTable); err != nil {
		return nil, fmt.Errorf("NewClickHouseWriter: %w", err)
	}

	w := &ClickHouseWriter{
		conn:    conn,
		buffer:  make(chan *GenerationEvent, bufferSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		logger:  logger,
	}

	go w.flushLoop()
	return w, nil
}

const createEventsTable = `
	CREATE TABLE IF NOT EXISTS generation_events (
		request_id      String,
		timestamp       DateTime64(3),
		tool            LowCardinality(String),
		client_hash     String,
		outcome         LowCardinality(String),
		status_code     UInt16,
		upstream_status UInt16,
		model           LowCardinality(String),
		output_bytes    UInt32,
		latency_ms      Float32
	) ENGINE = MergeTree
	ORDER BY (tool, timestamp)`

func isSecurePort(addrs []string) bool {
	for _, a := range addrs {
		if strings.HasSuffix(a, ":9440") {
			return true
		}
	}
	return false
}

// Write queues an event for async insertion.
// Non-blocking: drops the event if the buffer is full.
func (w *ClickHouseWriter) Write(event *GenerationEvent) {
	select {
	case w.buffer <- event:
	default:
		w.logger.Warn("clickhouse buffer full, dropping event",
			zap.String("request_id", event.RequestID),
		)
	}
}

// Close signals the flush loop to drain remaining events, waits for it to
// finish (up to drainTimeout), and closes the connection. Safe to call once.
func (w *ClickHouseWriter) Close() {
	close(w.done)
	<-w.flushed
	if err := w.conn.Close(); err != nil {
		w.logger.Warn("clickhouse close failed", zap.Error(err))
	}
}

func (w *ClickHouseWriter) flushLoop() {
	defer close(w.flushed)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*GenerationEvent, 0, flushBatch)

	for {
		select {
		case event := <-w.buffer:
			batch = append(batch, event)
			if len(batch) >= flushBatch {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-w.done:
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
		drainLoop:
			for {
				select {
				case event := <-w.buffer:
					batch = append(batch, event)
				case <-drainCtx.Done():
					break drainLoop
				default:
					break drainLoop
				}
			}
			if len(batch) > 0 {
				w.flush(batch)
			}
			return
		}
	}
}

func (w *ClickHouseWriter) flush(events []*GenerationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := w.conn.PrepareBatch(ctx, `
		INSERT INTO generation_events (
			request_id, timestamp, tool, client_hash, outcome,
			status_code, upstream_status, model, output_bytes, latency_ms
		)
	`)
	if err != nil {
		w.logger.Error("clickhouse prepare batch failed", zap.Error(err))
		return
	}

	for _, e := range events {
		if err := batch.Append(
			e.RequestID,
			e.Timestamp,
			e.Tool,
			e.ClientHash,
			e.Outcome,
			e.StatusCode,
			e.UpstreamStatus,
			e.Model,
			e.OutputBytes,
			e.LatencyMs,
		); err != nil {
			w.logger.Error("clickhouse append event failed",
				zap.String("request_id", e.RequestID),
				zap.Error(err),
			)
		}
	}

	if err := batch.Send(); err != nil {
		w.logger.Error("clickhouse batch send failed",
			zap.Int("batch_size", len(events)),
			zap.Error(err),
		)
	}
}

// LogWriter is the default EventWriter when no ClickHouse DSN is configured.
// It logs events as structured JSON via zap.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter creates a LogWriter that outputs events to the given logger.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Write(event *GenerationEvent) {
	w.logger.Info("generation_event",
		zap.String("request_id", event.RequestID),
		zap.String("tool", event.Tool),
		zap.String("client_hash", event.ClientHash),
		zap.String("outcome", event.Outcome),
		zap.Uint16("status_code", event.StatusCode),
		zap.Uint16("upstream_status", event.UpstreamStatus),
		zap.String("model", event.Model),
		zap.Uint32("output_bytes", event.OutputBytes),
		zap.Float32("latency_ms", event.LatencyMs),
	)
}

func (w *LogWriter) Close() {}
