package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceObservation is one currency+amount pair extracted from the raw
// provider payload. Ephemeral; produced per sync, never persisted directly.
type BalanceObservation struct {
	CurrencyLabel  string
	Amount         decimal.Decimal
	CashbackAmount *decimal.Decimal
	SourcePath     string
}

// AggregateResult is the reconciled balance figure for one sync run.
// Immutable once produced.
type AggregateResult struct {
	PerCurrencyTotals map[string]decimal.Decimal `json:"per_currency_totals"`
	TotalBalance      decimal.Decimal            `json:"total_balance"`
	GlobalCashback    decimal.Decimal            `json:"cashback"`
	TotalAvailable    decimal.Decimal            `json:"total_available"`
	SplitAmount       decimal.Decimal            `json:"split_amount"`
	NoBalanceFound    bool                       `json:"no_balance_found,omitempty"`
}

// ZeroAggregateResult is what safe mode reports when no prior sync succeeded.
func ZeroAggregateResult() *AggregateResult {
	return &AggregateResult{
		PerCurrencyTotals: map[string]decimal.Decimal{},
		TotalBalance:      decimal.Zero,
		GlobalCashback:    decimal.Zero,
		TotalAvailable:    decimal.Zero,
		SplitAmount:       decimal.Zero,
		NoBalanceFound:    true,
	}
}

// SyncResult is the contract returned to callers of the sync endpoint. The
// dashboard always gets a renderable result; Success is false only when the
// provider credentials are missing from configuration.
type SyncResult struct {
	Success      bool             `json:"success"`
	Balances     *AggregateResult `json:"balances,omitempty"`
	Warning      string           `json:"warning,omitempty"`
	SafeMode     bool             `json:"safe_mode,omitempty"`
	Message      string           `json:"message"`
	Timestamp    string           `json:"timestamp"`
	SyncID       string           `json:"sync_id"`
	EndpointUsed string           `json:"endpoint_used,omitempty"`
	StrategyUsed string           `json:"strategy_used,omitempty"`
}

// ConfigEntry is a keyed "last known good" value written on every successful
// sync and read back by the snapshot manager and the dashboard.
type ConfigEntry struct {
	Key          string          `json:"key"`
	NumericValue decimal.Decimal `json:"numeric_value"`
	Description  string          `json:"description"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LedgerEntry is a single month's aggregated external-income record.
// Exactly one row exists per concept per calendar month.
type LedgerEntry struct {
	ID              int64           `json:"id"`
	Concept         string          `json:"concept"`
	AmountPrimary   decimal.Decimal `json:"amount_primary"`
	AmountSecondary decimal.Decimal `json:"amount_secondary"`
	BillingDate     string          `json:"billing_date"`
	ClientRef       *string         `json:"client_ref"`
}

// Snapshot is an immutable once-per-period freeze of the configuration
// values for historical reporting. No update path exists.
type Snapshot struct {
	ID                   int64           `json:"id"`
	Period               string          `json:"period"`
	Year                 int             `json:"year"`
	Month                int             `json:"month"`
	AccountsBalanceTotal decimal.Decimal `json:"accounts_balance_total"`
	SplitAmount          decimal.Decimal `json:"split_amount"`
	CashbackApproved     decimal.Decimal `json:"cashback_approved"`
	CashbackHold         decimal.Decimal `json:"cashback_hold"`
	SnapshotTakenAt      string          `json:"snapshot_taken_at"`
	Notes                string          `json:"notes"`
}

// SnapshotResult reports the outcome of a snapshot request. Re-running for an
// already-frozen period is a success with AlreadyExists set, not an error.
type SnapshotResult struct {
	Success       bool      `json:"success"`
	Period        string    `json:"period"`
	AlreadyExists bool      `json:"already_exists,omitempty"`
	Snapshot      *Snapshot `json:"snapshot,omitempty"`
	Message       string    `json:"message"`
}
