package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrobolivia/farm-platform/internal/api/metrics"
	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	persistTimeout = 5 * time.Second
)

// AuditDispatcher is the write side of the audit pipeline. Record is
// fire-and-forget: events go into a fixed set of worker channels, sharded
// by actor so one principal's events stay ordered, and are persisted off
// the request path. A full buffer drops the event rather than block a
// login, and a failed insert is logged locally, never re-audited.
type AuditDispatcher struct {
	workers []chan domain.AuditEvent
	done    chan struct{}
	repo    ports.AuditRepository
	log     zerolog.Logger

	dropped atomic.Uint64
	closed  atomic.Bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewAuditDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan domain.AuditEvent, numWorkers),
		done:    make(chan struct{}),
		repo:    repo,
		log:     log.With().Str("component", "audit").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

// Start launches the worker goroutines. Workers drain their channels
// until Close is called.
func (d *AuditDispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Record enqueues an event without ever blocking the caller. Events
// recorded after Close, or while the shard's buffer is full, are counted
// as dropped. The send races against shutdown via the done channel, so
// Record is safe to call concurrently with Close.
func (d *AuditDispatcher) Record(event domain.AuditEvent) {
	if d.closed.Load() {
		d.dropped.Add(1)
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	metrics.AuditEventsTotal.WithLabelValues(event.Kind).Inc()

	select {
	case d.workers[d.shardIndex(event)] <- event:
	case <-d.done:
		d.dropped.Add(1)
	default:
		d.dropped.Add(1)
		metrics.AuditEventsDropped.Inc()
	}
}

// Dropped returns the number of events lost to full buffers or shutdown.
func (d *AuditDispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting events and drains what is already queued. The
// worker channels are never closed; workers exit through the done
// channel once their buffers are empty.
func (d *AuditDispatcher) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	close(d.done)
	d.wg.Wait()
	if d.cancel != nil {
		d.cancel()
	}
}

// shardIndex maps an event deterministically to a worker, keyed on the
// actor (falling back to origin IP for anonymous events).
func (d *AuditDispatcher) shardIndex(event domain.AuditEvent) int {
	key := event.UserID
	if key == "" {
		key = event.IP
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(d.workers)
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case event := <-ch:
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.persist(ctx, id, event)
		case <-d.done:
			for {
				select {
				case event := <-ch:
					d.persist(ctx, id, event)
				default:
					metrics.AuditQueueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

func (d *AuditDispatcher) persist(ctx context.Context, workerID int, event domain.AuditEvent) {
	start := time.Now()
	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := d.repo.Insert(insertCtx, &event); err != nil {
		// Swallowed on purpose: audit durability must never become a
		// user-facing failure, and re-auditing the failure would recurse.
		d.log.Error().Err(err).
			Str("kind", event.Kind).
			Int("worker_id", workerID).
			Msg("audit event persistence failed")
		return
	}
	metrics.AuditPersistDuration.Observe(time.Since(start).Seconds())
}
