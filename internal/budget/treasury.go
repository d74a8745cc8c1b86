package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osa-run/osa/internal/bus"
	"github.com/osa-run/osa/pkg/models"
)

// TreasuryLimits configures Treasury's guards (§4.F, §6 OSA_TREASURY_*).
type TreasuryLimits struct {
	MinReserve   float64
	MaxSingle    float64
	DailyLimit   float64
	MonthlyLimit float64
}

// reservation is one held amount against a reference id.
type reservation struct {
	ref    string
	amount float64
}

// Treasury maintains balance, reserved funds, and daily/monthly spend
// counters, enforcing §4.F's withdrawal guards and the conservation
// invariant from §8 property 4:
// balance + Σ(pending reserves) − Σ(settled debits) + Σ(credits) = balance_after_last_txn.
type Treasury struct {
	mu           sync.Mutex
	balance      float64
	reserved     float64
	dailySpent   float64
	monthlySpent float64
	dailyResetAt time.Time
	monthResetAt time.Time
	limits       TreasuryLimits
	reservations []reservation
	ledger       []models.TreasuryTransaction
	bus          *bus.Bus
}

// NewTreasury builds a Treasury with the given opening balance.
func NewTreasury(openingBalance float64, limits TreasuryLimits, b *bus.Bus) *Treasury {
	now := time.Now().UTC()
	return &Treasury{
		balance:      openingBalance,
		limits:       limits,
		dailyResetAt: endOfDay(now),
		monthResetAt: endOfMonth(now),
		bus:          b,
	}
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
}

// maybeResetCounters resets daily/monthly spend atomically when their
// reset timer has fired; called under mu by every public operation so
// resets happen "independent of deposit/withdraw" callers (§4.F) but are
// observed lazily rather than via a background goroutine.
func (t *Treasury) maybeResetCounters() {
	now := time.Now().UTC()
	if !now.Before(t.dailyResetAt) {
		t.dailySpent = 0
		t.dailyResetAt = endOfDay(now)
	}
	if !now.Before(t.monthResetAt) {
		t.monthlySpent = 0
		t.monthResetAt = endOfMonth(now)
	}
}

func (t *Treasury) available() float64 {
	return t.balance - t.reserved
}

func (t *Treasury) record(txnType models.TreasuryTxnType, amount float64, desc, ref string) models.TreasuryTransaction {
	txn := models.TreasuryTransaction{
		ID: uuid.NewString(), Type: txnType, AmountUSD: amount, Description: desc,
		ReferenceID: ref, BalanceAfter: t.balance, Timestamp: time.Now().UTC(),
	}
	t.ledger = append(t.ledger, txn)
	return txn
}

// Deposit credits the treasury.
func (t *Treasury) Deposit(amount float64, desc string) models.TreasuryTransaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetCounters()
	t.balance += amount
	return t.record(models.TxnCredit, amount, desc, "")
}

// LimitError names the guard that refused a Withdraw.
type LimitError struct {
	Guard string
}

func (e *LimitError) Error() string { return fmt.Sprintf("treasury: limit exceeded: %s", e.Guard) }

// Withdraw debits the treasury subject to §4.F's four guards, emitting
// treasury_limit_exceeded and returning a *LimitError naming the first
// guard that failed, with no balance change, on any violation.
func (t *Treasury) Withdraw(amount float64, desc, ref string) (models.TreasuryTransaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetCounters()

	var guard string
	switch {
	case t.limits.MaxSingle > 0 && amount > t.limits.MaxSingle:
		guard = "max_single"
	case t.limits.DailyLimit > 0 && t.dailySpent+amount > t.limits.DailyLimit:
		guard = "daily"
	case t.limits.MonthlyLimit > 0 && t.monthlySpent+amount > t.limits.MonthlyLimit:
		guard = "monthly"
	case t.available()-amount < t.limits.MinReserve:
		guard = "min_reserve"
	}

	if guard != "" {
		if t.bus != nil {
			t.bus.EmitSystem("", "treasury_limit_exceeded", map[string]any{"type": guard, "amount": amount})
		}
		return models.TreasuryTransaction{}, &LimitError{Guard: guard}
	}

	t.balance -= amount
	t.dailySpent += amount
	t.monthlySpent += amount
	return t.record(models.TxnDebit, amount, desc, ref), nil
}

// Reserve holds amount against ref without debiting the balance
// (available shrinks; balance does not change until a later Withdraw).
func (t *Treasury) Reserve(amount float64, ref string) models.TreasuryTransaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetCounters()
	t.reserved += amount
	t.reservations = append(t.reservations, reservation{ref: ref, amount: amount})
	return t.record(models.TxnReserve, amount, "reserve", ref)
}

// Release releases the most recent reservation matching ref.
func (t *Treasury) Release(ref string) (models.TreasuryTransaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetCounters()

	for i := len(t.reservations) - 1; i >= 0; i-- {
		if t.reservations[i].ref == ref {
			amount := t.reservations[i].amount
			t.reservations = append(t.reservations[:i], t.reservations[i+1:]...)
			t.reserved -= amount
			return t.record(models.TxnRelease, amount, "release", ref), nil
		}
	}
	return models.TreasuryTransaction{}, fmt.Errorf("treasury: no reservation found for ref %q", ref)
}

// Snapshot is a point-in-time view of the treasury's public state.
type Snapshot struct {
	Balance      float64
	Reserved     float64
	Available    float64
	DailySpent   float64
	MonthlySpent float64
}

// Snapshot returns the treasury's current balance/reserved/spend state.
func (t *Treasury) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetCounters()
	return Snapshot{
		Balance: t.balance, Reserved: t.reserved, Available: t.available(),
		DailySpent: t.dailySpent, MonthlySpent: t.monthlySpent,
	}
}

// Ledger returns a copy of every recorded transaction.
func (t *Treasury) Ledger() []models.TreasuryTransaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.TreasuryTransaction, len(t.ledger))
	copy(out, t.ledger)
	return out
}
