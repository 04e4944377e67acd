/**
 * @description
 * Time-decayed consumer pricing for listings.
 * A listing's consumer price is its base price plus commission, reduced by a fixed
 * factor for every full decay interval elapsed since the listing was created.
 *
 * @dependencies
 * - github.com/shopspring/decimal: exact money arithmetic
 *
 * @notes
 * - Pure: callers pass "now" explicitly or through an injected Clock.
 * - This package is the only owner of the pricing formula. Any precomputed price
 *   returned by another system is a cache of Quote, never a second source of truth.
 */

package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy describes the decay schedule applied to listing prices.
type Policy struct {
	CommissionMultiplier decimal.Decimal
	DecayInterval        time.Duration
	DecayFactor          decimal.Decimal
}

// Standard is the marketplace policy: 2% commission, 20% off every 20 hours.
var Standard = Policy{
	CommissionMultiplier: decimal.RequireFromString("1.02"),
	DecayInterval:        20 * time.Hour,
	DecayFactor:          decimal.RequireFromString("0.8"),
}

// Past this many intervals no storable price (NUMERIC(12,2)) can round to a non-zero
// value for any decay factor up to 0.95, so the power is not computed.
const maxExactIntervals = 512

// Input is the part of a listing the calculator reads.
type Input struct {
	BasePrice decimal.Decimal
	// CreatedAt is when the listing went live. The zero value means "now".
	CreatedAt time.Time
}

// Quote is the consumer-facing price at a point in time.
type Quote struct {
	EffectivePrice int64 `json:"effective_price"`
	Intervals      int64 `json:"intervals"`
}

// Live reports whether a listing with this quote can still be sold.
func (q Quote) Live() bool {
	return q.EffectivePrice > 0
}

// Clock returns the current time.
type Clock func() time.Time

// Calculator computes quotes under a fixed Policy.
type Calculator struct {
	policy Policy
	now    Clock
}

// NewCalculator returns a Calculator. A nil clock defaults to time.Now.
func NewCalculator(policy Policy, now Clock) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{policy: policy, now: now}
}

// Policy returns the calculator's policy.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Now returns the calculator's notion of the current time.
func (c *Calculator) Now() time.Time {
	return c.now()
}

// Quote prices in at the calculator's current time.
func (c *Calculator) Quote(in Input) Quote {
	return c.QuoteAt(in, c.now())
}

// QuoteAt prices in as of now.
func (c *Calculator) QuoteAt(in Input, now time.Time) Quote {
	intervals := c.Intervals(in.CreatedAt, now)

	base := in.BasePrice
	if base.IsNegative() {
		base = decimal.Zero
	}
	if base.IsZero() || intervals > maxExactIntervals {
		return Quote{EffectivePrice: 0, Intervals: intervals}
	}

	multiplier := c.policy.DecayFactor.Pow(decimal.NewFromInt(intervals))
	price := base.Mul(c.policy.CommissionMultiplier).Mul(multiplier).Round(0)
	if price.IsNegative() {
		price = decimal.Zero
	}

	return Quote{EffectivePrice: price.IntPart(), Intervals: intervals}
}

// Intervals counts the full decay intervals between createdAt and now.
// Future timestamps count as zero elapsed time.
func (c *Calculator) Intervals(createdAt, now time.Time) int64 {
	if createdAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(createdAt)
	if elapsed <= 0 || c.policy.DecayInterval <= 0 {
		return 0
	}
	return int64(elapsed / c.policy.DecayInterval)
}

// ConsumerPrice is the undecayed price with commission, rounded to cents.
func (c *Calculator) ConsumerPrice(base decimal.Decimal) decimal.Decimal {
	if base.IsNegative() {
		return decimal.Zero
	}
	return base.Mul(c.policy.CommissionMultiplier).Round(2)
}

// ElapsedHours is the number of whole hours covered by the given intervals.
func (c *Calculator) ElapsedHours(intervals int64) int64 {
	return intervals * int64(c.policy.DecayInterval/time.Hour)
}
