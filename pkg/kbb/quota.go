package kbb

import "sync"

// HeaderRemainingDay carries the provider's remaining daily call allowance.
const HeaderRemainingDay = "X-RateLimit-Remaining-Day"

// QuotaGauge tracks the remaining daily quota reported by the provider. The
// quota only decreases within a run, so the gauge keeps the minimum value ever
// observed; a later, larger reading (stale header, racing workers) never moves
// it back up. One gauge is shared by every client in a batch run.
type QuotaGauge struct {
	mu        sync.Mutex
	remaining int
	seen      bool
}

// NewQuotaGauge returns a gauge with no observations yet.
func NewQuotaGauge() *QuotaGauge {
	return &QuotaGauge{remaining: -1}
}

// Observe records a quota reading, keeping the minimum.
func (g *QuotaGauge) Observe(remaining int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seen || remaining < g.remaining {
		g.remaining = remaining
		quotaRemaining.Set(float64(remaining))
	}
	g.seen = true
}

// Remaining returns the minimum quota observed, or -1 before any observation.
func (g *QuotaGauge) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining
}

// Exhausted reports whether the provider has signalled zero remaining quota.
func (g *QuotaGauge) Exhausted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen && g.remaining <= 0
}
