package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/pricing"
	"golang.org/x/sync/errgroup"
)

// ErrNoOwner is reported when an expired listing carries no owner to notify.
var ErrNoOwner = errors.New("listing has no owner")

// ErrSideEffectPanic wraps a panic raised by a retirement side effect.
var ErrSideEffectPanic = errors.New("side effect panicked")

// Retirement is the outcome of retiring one listing. The three side effects are
// independent; any subset of them may have failed.
type Retirement struct {
	Listing     Listing
	DeleteErr   error
	NotifyErr   error
	UncacheErr  error
	CompletedAt time.Time
}

// Succeeded reports whether every side effect went through.
func (r Retirement) Succeeded() bool {
	return r.DeleteErr == nil && r.NotifyErr == nil && r.UncacheErr == nil
}

// Observer is told about every finished retirement.
type Observer interface {
	ObserveRetirement(r Retirement)
}

// RetirerConfig tunes the worker pool.
type RetirerConfig struct {
	Workers     int
	QueueSize   int
	CallTimeout time.Duration
}

// RetirerStats is a snapshot of retirement counters.
type RetirerStats struct {
	Enqueued  int64 `json:"enqueued"`
	Skipped   int64 `json:"skipped"`
	Dropped   int64 `json:"dropped"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Retirer consumes expired listings from a bounded queue and retires them in the
// background: delete, notify the owner, drop from the recommendation cache.
// Nothing is retried here; a listing whose delete failed is seen again on the next read.
type Retirer struct {
	backend  Backend
	calc     *pricing.Calculator
	cfg      RetirerConfig
	observer Observer

	queue chan Listing

	mu      sync.Mutex
	pending map[string]struct{}
	stopped bool

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc

	enqueued  atomic.Int64
	skipped   atomic.Int64
	dropped   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewRetirer builds a Retirer. observer may be nil.
func NewRetirer(backend Backend, calc *pricing.Calculator, cfg RetirerConfig, observer Observer) *Retirer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Retirer{
		backend:  backend,
		calc:     calc,
		cfg:      cfg,
		observer: observer,
		queue:    make(chan Listing, cfg.QueueSize),
		pending:  make(map[string]struct{}),
	}
}

// Start launches the workers. They run until ctx is cancelled or Stop is called.
func (r *Retirer) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		ctx, r.cancel = context.WithCancel(ctx)
		for i := 0; i < r.cfg.Workers; i++ {
			r.wg.Add(1)
			go r.work(ctx)
		}
		logger.Info("Retirer: started %d workers (queue %d)", r.cfg.Workers, r.cfg.QueueSize)
	})
}

// Stop cancels the workers and waits for in-flight retirements to return.
// Listings still queued are discarded.
func (r *Retirer) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()

		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
		logger.Info("Retirer: stopped")
	})
}

// Enqueue schedules l for retirement. It never blocks; it returns false when the
// listing is already pending, the queue is full, or the retirer is stopped.
func (r *Retirer) Enqueue(l Listing) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		r.dropped.Add(1)
		return false
	}
	if _, ok := r.pending[l.ID]; ok {
		r.skipped.Add(1)
		return false
	}

	select {
	case r.queue <- l:
		r.pending[l.ID] = struct{}{}
		r.enqueued.Add(1)
		return true
	default:
		r.dropped.Add(1)
		logger.Error("Retirer: queue full, dropping listing %s until next read", l.ID)
		return false
	}
}

// Stats returns the current counters.
func (r *Retirer) Stats() RetirerStats {
	return RetirerStats{
		Enqueued:  r.enqueued.Load(),
		Skipped:   r.skipped.Load(),
		Dropped:   r.dropped.Load(),
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
	}
}

func (r *Retirer) work(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case l := <-r.queue:
			r.handle(ctx, l)
		}
	}
}

func (r *Retirer) handle(ctx context.Context, l Listing) {
	defer r.release(l.ID)
	defer func() {
		if rec := recover(); rec != nil {
			r.failed.Add(1)
			logger.Error("Retirer: panic while retiring listing %s: %v", l.ID, rec)
		}
	}()

	res := r.Retire(ctx, l)
	if res.Succeeded() {
		r.succeeded.Add(1)
		logger.Info("Retirer: listing %s retired (owner %s, %d intervals)", l.ID, l.OwnerID, l.Quote.Intervals)
	} else {
		r.failed.Add(1)
	}

	if r.observer != nil {
		r.observer.ObserveRetirement(res)
	}
}

func (r *Retirer) release(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

// Retire runs the three side effects for l concurrently and waits for all of them.
// Each failure is logged on its own and never undoes the others.
func (r *Retirer) Retire(ctx context.Context, l Listing) Retirement {
	res := Retirement{Listing: l}
	notice := Notice{
		OwnerID:   l.OwnerID,
		ListingID: l.ID,
		Title:     RemovalTitle,
		Message:   RemovalMessage(l.CropName, r.calc.ElapsedHours(l.Quote.Intervals)),
		Severity:  SeverityWarning,
	}

	var g errgroup.Group
	g.Go(func() error {
		res.DeleteErr = r.call(ctx, "delete listing", l.ID, func(ctx context.Context) error {
			return r.backend.DeleteListing(ctx, l.ID)
		})
		return res.DeleteErr
	})
	g.Go(func() error {
		res.NotifyErr = r.call(ctx, "notify owner", l.ID, func(ctx context.Context) error {
			if l.OwnerID == "" {
				return ErrNoOwner
			}
			return r.backend.CreateNotification(ctx, notice)
		})
		return res.NotifyErr
	})
	g.Go(func() error {
		res.UncacheErr = r.call(ctx, "remove from recommendations", l.ID, func(ctx context.Context) error {
			return r.backend.RemoveFromRecommendationCache(ctx, l.ID)
		})
		return res.UncacheErr
	})
	_ = g.Wait()

	res.CompletedAt = r.calc.Now()
	return res
}

// call runs one side effect. A panic in fn becomes that step's error.
func (r *Retirer) call(ctx context.Context, step, listingID string, fn func(context.Context) error) (err error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: %w: %v", step, ErrSideEffectPanic, rec)
			logger.Error("Retirer: listing %s: %v", listingID, err)
		}
	}()

	if err = fn(callCtx); err != nil {
		err = fmt.Errorf("%s: %w", step, err)
		logger.Error("Retirer: listing %s: %v", listingID, err)
		return err
	}
	return nil
}
