// Package replenish runs stock refills outside the request path. Orders hand
// the products they touched to a Dispatcher after commit. Workers then call
// a Refiller, each task in its own transaction and with its own deadline.
package replenish

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cimillas/order-ledger/internal/clock"
	"github.com/cimillas/order-ledger/internal/domain"
	"github.com/cimillas/order-ledger/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultWorkers     = 2
	defaultQueueSize   = 256
	defaultTaskTimeout = 10 * time.Second
)

var ErrPoolClosed = errors.New("replenish pool closed")

type Refiller interface {
	Refill(ctx context.Context, productID int64) (domain.Refill, error)
}

// Task asks for one product's stock to be checked.
type Task struct {
	ProductID  int64     `json:"product_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Pool is an in-process Dispatcher backed by a bounded queue and a fixed set
// of workers. Tasks that do not fit in the queue are dropped.
type Pool struct {
	refiller Refiller
	logger   *zap.Logger
	clock    clock.Clock

	workers     int
	taskTimeout time.Duration
	tasks       chan Task
	inflight    singleflight.Group

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped   atomic.Int64
	completed atomic.Int64
}

type PoolOption func(*Pool)

func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.tasks = make(chan Task, n)
		}
	}
}

// WithTaskTimeout bounds a single refill, including its lock wait.
func WithTaskTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.taskTimeout = d
		}
	}
}

func WithClock(c clock.Clock) PoolOption {
	return func(p *Pool) {
		if c != nil {
			p.clock = c
		}
	}
}

// NewPool starts the workers. Call Close to stop them.
func NewPool(refiller Refiller, logger *zap.Logger, opts ...PoolOption) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		refiller:    refiller,
		logger:      logger,
		clock:       clock.NewSystem(),
		workers:     defaultWorkers,
		taskTimeout: defaultTaskTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tasks == nil {
		p.tasks = make(chan Task, defaultQueueSize)
	}

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.work()
	}
	return p
}

// Dispatch queues one task per product without blocking. It never fails the
// caller; tasks that cannot be queued are logged and dropped.
func (p *Pool) Dispatch(ctx context.Context, productIDs []int64) {
	now := p.clock.Now()
	requestID := logging.RequestID(ctx)
	for _, id := range productIDs {
		task := Task{ProductID: id, EnqueuedAt: now, RequestID: requestID}
		if !p.offer(task) {
			p.dropped.Add(1)
			p.logger.Warn("replenish task dropped",
				zap.Int64("product_id", id),
				zap.String("request_id", requestID),
			)
		}
	}
}

// Handle queues task, waiting for room until ctx is done. It serves queue
// consumers that prefer backpressure to dropping.
func (p *Pool) Handle(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) offer(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Dropped reports how many tasks were discarded because the queue was full
// or the pool was closed.
func (p *Pool) Dropped() int64 {
	return p.dropped.Load()
}

// Completed reports how many tasks reached the refiller.
func (p *Pool) Completed() int64 {
	return p.completed.Load()
}

// Close stops accepting tasks and waits for queued ones to finish or for ctx
// to end, whichever comes first.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	logger := p.logger.With(
		zap.Int64("product_id", task.ProductID),
		zap.Duration("queue_lag", p.clock.Now().Sub(task.EnqueuedAt)),
	)
	if task.RequestID != "" {
		logger = logger.With(zap.String("request_id", task.RequestID))
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("replenish task panicked", zap.Any("panic", r))
		}
	}()

	// Concurrent tasks for one product share a single refill. A refill that
	// started before the task was queued may have read stock from before the
	// order behind the task committed, so the task checks again on its own.
	key := strconv.FormatInt(task.ProductID, 10)
	v, err, shared := p.inflight.Do(key, func() (any, error) {
		started := p.clock.Now()
		refill, err := p.refill(task.ProductID)
		return flight{refill: refill, started: started}, err
	})
	result, _ := v.(flight)
	refill := result.refill
	if shared && err == nil && result.started.Before(task.EnqueuedAt) {
		refill, err = p.refill(task.ProductID)
		shared = false
	}
	p.completed.Add(1)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			logger.Warn("replenish skipped: product gone", zap.Error(err))
			return
		}
		logger.Error("replenish failed", zap.Error(err))
		return
	}

	if refill.Refilled {
		logger.Info("stock replenished",
			zap.Int("stock_before", refill.StockBefore),
			zap.Int("stock_after", refill.StockAfter),
			zap.Bool("shared", shared),
		)
		return
	}
	logger.Debug("replenish check done", zap.Int("stock", refill.StockAfter), zap.Bool("shared", shared))
}

type flight struct {
	refill  domain.Refill
	started time.Time
}

func (p *Pool) refill(productID int64) (domain.Refill, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.taskTimeout)
	defer cancel()
	return p.refiller.Refill(ctx, productID)
}
