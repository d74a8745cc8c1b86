// Package budget implements the Budget & Treasury components (§4.F):
// daily/monthly spend tracking against configured limits, and a
// reserve/release treasury with a conservation invariant.
package budget

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osa-run/osa/internal/bus"
	"github.com/osa-run/osa/internal/observability"
	"github.com/osa-run/osa/pkg/models"
)

// PricingTable maps a provider name to its per-million-token rates;
// "default" is used when a provider has no specific entry, grounded on
// the donor usage package's per-million-token Cost shape.
type PricingTable map[string]Rates

// Rates is per-million-token pricing.
type Rates struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

func (r Rates) estimate(tokensIn, tokensOut int64) float64 {
	return (float64(tokensIn)*r.InputPerMillion + float64(tokensOut)*r.OutputPerMillion) / 1_000_000
}

// Limits configures the guard thresholds (§4.F, §6 OSA_*_BUDGET_USD).
type Limits struct {
	DailyUSD   float64
	MonthlyUSD float64
	PerCallUSD float64
}

const maxLedgerEntries = 10_000

// Budget tracks spend against Limits and emits warning/exceeded events on
// threshold crossing (§4.F). Safe for concurrent use.
type Budget struct {
	mu      sync.Mutex
	pricing PricingTable
	limits  Limits
	ledger  []models.BudgetEntry
	daily   map[string]float64 // date (YYYY-MM-DD) -> spend
	monthly map[string]float64 // month (YYYY-MM) -> spend
	warned  map[string]bool    // "daily:warn:2026-07-30" / "daily:exceed:2026-07-30" -> event already emitted
	bus     *bus.Bus
	metrics *observability.Metrics
}

// New builds a Budget tracker. metrics may be nil.
func New(pricing PricingTable, limits Limits, b *bus.Bus, metrics *observability.Metrics) *Budget {
	if pricing == nil {
		pricing = PricingTable{}
	}
	return &Budget{
		pricing: pricing,
		limits:  limits,
		daily:   map[string]float64{},
		monthly: map[string]float64{},
		warned:  map[string]bool{},
		bus:     b,
		metrics: metrics,
	}
}

func (b *Budget) rates(provider string) Rates {
	if r, ok := b.pricing[provider]; ok {
		return r
	}
	return b.pricing["default"]
}

// RecordCost implements §4.F's `record_cost` operation.
func (b *Budget) RecordCost(provider, model string, tokensIn, tokensOut int64, sessionID string) models.BudgetEntry {
	cost := b.rates(provider).estimate(tokensIn, tokensOut)
	now := time.Now().UTC()

	entry := models.BudgetEntry{
		ID:           uuid.NewString(),
		Provider:     provider,
		Model:        model,
		InputTokens:  tokensIn,
		OutputTokens: tokensOut,
		CostUSD:      cost,
		SessionID:    sessionID,
		Timestamp:    now,
	}

	b.mu.Lock()
	b.ledger = append(b.ledger, entry)
	if len(b.ledger) > maxLedgerEntries {
		b.ledger = b.ledger[len(b.ledger)-maxLedgerEntries:]
	}

	dayKey := now.Format("2006-01-02")
	monthKey := now.Format("2006-01")
	b.daily[dayKey] += cost
	b.monthly[monthKey] += cost
	dailySpend := b.daily[dayKey]
	monthlySpend := b.monthly[monthKey]
	b.mu.Unlock()

	b.metrics.SetBudgetSpend("daily", dailySpend)
	b.metrics.SetBudgetSpend("monthly", monthlySpend)

	b.checkThreshold("daily", dayKey, dailySpend, b.limits.DailyUSD)
	b.checkThreshold("monthly", monthKey, monthlySpend, b.limits.MonthlyUSD)

	if b.bus != nil {
		b.bus.EmitSystem(sessionID, "cost_recorded", map[string]any{"entry": entry})
	}
	return entry
}

// checkThreshold emits budget_warning once per period at the 80% edge,
// and budget_exceeded at the 100% edge (§4.F transition-edge detection).
func (b *Budget) checkThreshold(scope, key string, spend, limit float64) {
	if limit <= 0 || b.bus == nil {
		return
	}
	ratio := spend / limit

	b.mu.Lock()
	warnKey := scope + ":warn:" + key
	exceedKey := scope + ":exceed:" + key
	alreadyWarned := b.warned[warnKey]
	alreadyExceeded := b.warned[exceedKey]
	if ratio >= 0.8 && !alreadyWarned {
		b.warned[warnKey] = true
	}
	if ratio >= 1.0 && !alreadyExceeded {
		b.warned[exceedKey] = true
	}
	b.mu.Unlock()

	if ratio >= 1.0 && !alreadyExceeded {
		b.bus.EmitSystem("", "budget_exceeded", map[string]any{"scope": scope, "spend": spend, "limit": limit})
		return
	}
	if ratio >= 0.8 && !alreadyWarned {
		b.bus.EmitSystem("", "budget_warning", map[string]any{"scope": scope, "spend": spend, "limit": limit})
	}
}

// CheckPerCall reports whether a projected cost would exceed the per-call
// cap, for a caller to refuse the request up front.
func (b *Budget) CheckPerCall(projectedCost float64) bool {
	return b.limits.PerCallUSD > 0 && projectedCost > b.limits.PerCallUSD
}

// Ledger returns a copy of the bounded recent-entries ledger.
func (b *Budget) Ledger() []models.BudgetEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.BudgetEntry, len(b.ledger))
	copy(out, b.ledger)
	return out
}

// DailySpend returns today's accumulated spend.
func (b *Budget) DailySpend() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.daily[time.Now().UTC().Format("2006-01-02")]
}

// MonthlySpend returns this month's accumulated spend.
func (b *Budget) MonthlySpend() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.monthly[time.Now().UTC().Format("2006-01")]
}
