package models

import "time"

// BudgetEntry is one recorded LLM call's cost (§3 "Budget Entry").
type BudgetEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	SessionID    string    `json:"session_id,omitempty"`
}

// TreasuryTxnType enumerates Treasury ledger operations.
type TreasuryTxnType string

const (
	TxnCredit  TreasuryTxnType = "credit"
	TxnDebit   TreasuryTxnType = "debit"
	TxnReserve TreasuryTxnType = "reserve"
	TxnRelease TreasuryTxnType = "release"
)

// TreasuryTransaction is one ledger entry (§3 "Treasury Transaction").
// The conservation invariant (§8 property 4) is enforced by the
// Treasury component, not by this struct; BalanceAfter is recorded at
// append time so it can be audited independently of the live balance.
type TreasuryTransaction struct {
	ID           string          `json:"id"`
	Type         TreasuryTxnType `json:"type"`
	AmountUSD    float64         `json:"amount_usd"`
	Description  string          `json:"description"`
	ReferenceID  string          `json:"reference_id,omitempty"`
	BalanceAfter float64         `json:"balance_after"`
	Timestamp    time.Time       `json:"timestamp"`
}
