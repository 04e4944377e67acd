package lifecycle

import (
	"context"
	"sync"

	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/pricing"
)

// Dispatcher accepts expired listings for background retirement.
type Dispatcher interface {
	Enqueue(l Listing) bool
}

// Gate decides which listings are still sellable.
// Every read path that shows listings to a consumer goes through the same Gate.
type Gate struct {
	calc     *pricing.Calculator
	dispatch Dispatcher
}

// NewGate wires a calculator and a retirement dispatcher. A nil dispatcher only filters.
func NewGate(calc *pricing.Calculator, dispatch Dispatcher) *Gate {
	return &Gate{calc: calc, dispatch: dispatch}
}

// Calculator returns the gate's calculator.
func (g *Gate) Calculator() *pricing.Calculator {
	return g.calc
}

// Filter prices every listing against a single "now" and returns the live ones in
// their original order. Expired listings are handed to the dispatcher without waiting.
func (g *Gate) Filter(listings []Listing) []Listing {
	now := g.calc.Now()
	live := make([]Listing, 0, len(listings))

	for _, l := range listings {
		l.Quote = g.calc.QuoteAt(l.PricingInput(), now)
		if l.Quote.Live() {
			live = append(live, l)
			continue
		}
		if g.dispatch != nil {
			g.dispatch.Enqueue(l)
		}
	}

	return live
}

// Read runs fetch and filters the result. A failed fetch yields an empty, non-nil slice.
func (g *Gate) Read(ctx context.Context, source string, fetch func(context.Context) ([]Listing, error)) []Listing {
	listings, err := fetch(ctx)
	if err != nil {
		logger.Error("Gate: %s read failed: %v", source, err)
		return []Listing{}
	}
	return g.Filter(listings)
}

// Collector is a Dispatcher that keeps expired listings for the caller to retire
// itself, as one-shot sweeps do.
type Collector struct {
	mu       sync.Mutex
	listings []Listing
}

// Enqueue records l.
func (c *Collector) Enqueue(l Listing) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings = append(c.listings, l)
	return true
}

// Drain returns the recorded listings and resets the collector.
func (c *Collector) Drain() []Listing {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.listings
	c.listings = nil
	return out
}
