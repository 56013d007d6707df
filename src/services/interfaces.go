package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/blackledger/backend/src/models"
)

// ProviderResponse is a successful negotiation outcome: the raw body plus
// which endpoint and credential strategy finally worked, for diagnostics.
type ProviderResponse struct {
	Body     []byte
	Endpoint string
	Strategy string
}

// ProviderClient talks to the external balance provider. Failures are
// returned as *ProviderError carrying a classification.
type ProviderClient interface {
	FetchBalances(ctx context.Context) (*ProviderResponse, error)
	FetchApprovedCashback(ctx context.Context) (decimal.Decimal, error)
}

// SyncService runs one end-to-end balance reconciliation.
type SyncService interface {
	SyncBalances(ctx context.Context) (models.SyncResult, error)
}

// LedgerWriter performs the idempotent persistence of computed figures. The
// two upsert operations tolerate each other's failure; a stale value is
// preferable to blocking the rest of the sync.
type LedgerWriter interface {
	UpsertConfig(key string, value decimal.Decimal, description string) error
	UpsertMonthlyLedgerEntry(concept string, amountPrimary decimal.Decimal, billingDate time.Time) error
	GetConfigValue(key string) (decimal.Decimal, bool, error)
	GetConfigEntries() ([]models.ConfigEntry, error)
}

// SnapshotService freezes configuration values into immutable per-period
// records and serves historical reads.
type SnapshotService interface {
	TakeSnapshotForPreviousPeriod() (models.SnapshotResult, error)
	GetSnapshot(period string) (*models.Snapshot, error)
	ListSnapshots() ([]models.Snapshot, error)
}

// NotificationService delivers operational alerts (e.g. rejected provider
// credentials). Delivery is best-effort.
type NotificationService interface {
	SendSyncAlert(subject, body string) error
}
