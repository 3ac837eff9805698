// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package batch buffers ended spans and flushes them to an exporter either
// on a fixed schedule, once a size threshold is reached, or on demand via
// ForceFlush/Shutdown. It is judgeval's analogue of dd-trace-go's traceWriter:
// a bounded queue plus a single background worker goroutine.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JudgmentLabs/judgeval-go/internal/export"
	"github.com/JudgmentLabs/judgeval-go/internal/log"
	"github.com/JudgmentLabs/judgeval-go/judgment"
)

// Defaults per spec.md §6.
const (
	DefaultMaxQueueSize      = 2048
	DefaultBatchSize         = 512
	DefaultScheduledDelay    = 5 * time.Second
	DefaultExportTimeout     = 30 * time.Second
)

// Config configures a Processor.
type Config struct {
	Exporter       export.Exporter
	MaxQueueSize   int
	BatchSize      int
	ScheduledDelay time.Duration
	ExportTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = DefaultMaxQueueSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ScheduledDelay <= 0 {
		c.ScheduledDelay = DefaultScheduledDelay
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = DefaultExportTimeout
	}
	return c
}

// Processor is the batch span processor (component F): a bounded FIFO queue
// drained on a ticker, by the flush-request channel, or once BatchSize spans
// have accumulated — whichever comes first.
type Processor struct {
	cfg Config

	mu      sync.Mutex
	queue   []*judgment.Span
	dropped atomic.Int64

	flushReq  chan chan error
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewProcessor starts the background flush loop and returns the Processor.
func NewProcessor(cfg Config) *Processor {
	cfg = cfg.withDefaults()
	p := &Processor{
		cfg:      cfg,
		queue:    make([]*judgment.Span, 0, cfg.BatchSize),
		flushReq: make(chan chan error),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go p.loop()
	return p
}

// Enqueue adds an ended span to the queue. If the queue is already at
// capacity, span itself is dropped and the drop counter is incremented; the
// queue is left untouched.
func (p *Processor) Enqueue(span *judgment.Span) {
	p.mu.Lock()
	if len(p.queue) >= p.cfg.MaxQueueSize {
		p.mu.Unlock()
		p.dropped.Add(1)
		return
	}
	p.queue = append(p.queue, span)
	full := len(p.queue) >= p.cfg.BatchSize
	p.mu.Unlock()

	if full {
		select {
		case p.flushReq <- nil:
		default:
		}
	}
}

// Dropped returns the number of spans dropped so far due to queue overflow.
func (p *Processor) Dropped() int64 { return p.dropped.Load() }

func (p *Processor) loop() {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.cfg.ScheduledDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.drain(context.Background())
		case reply := <-p.flushReq:
			err := p.drain(context.Background())
			if reply != nil {
				reply <- err
			}
		case <-p.stopCh:
			p.drain(context.Background())
			return
		}
	}
}

// drain exports every span currently queued, in batches of at most
// BatchSize, returning the first error encountered (later batches still run
// so a single bad batch does not block the rest of the queue).
func (p *Processor) drain(ctx context.Context) error {
	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return nil
	}
	pending := p.queue
	p.queue = make([]*judgment.Span, 0, p.cfg.BatchSize)
	p.mu.Unlock()

	var firstErr error
	for len(pending) > 0 {
		n := p.cfg.BatchSize
		if n > len(pending) {
			n = len(pending)
		}
		batch := pending[:n]
		pending = pending[n:]

		exportCtx, cancel := context.WithTimeout(ctx, p.cfg.ExportTimeout)
		err := p.cfg.Exporter.Export(exportCtx, batch)
		cancel()
		if err != nil {
			log.Error("judgment: export failed for %d spans: %v", len(batch), err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ForceFlush blocks until every currently queued span has been exported (or
// the context is done), returning the first export error encountered.
func (p *Processor) ForceFlush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case p.flushReq <- reply:
	case <-p.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown force-flushes remaining spans and stops the background loop.
// Shutdown is idempotent and safe to call more than once.
func (p *Processor) Shutdown(ctx context.Context) error {
	err := p.ForceFlush(ctx)
	p.stopOnce.Do(func() { close(p.stopCh) })
	select {
	case <-p.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
