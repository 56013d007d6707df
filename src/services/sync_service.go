package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/blackledger/backend/src/logger"
	"github.com/username/blackledger/backend/src/models"
	"github.com/username/blackledger/backend/src/parsers"
	"github.com/username/blackledger/backend/src/processors"
)

const lastGoodCacheKey = "sync:last_good_aggregate"

type syncServiceImpl struct {
	provider    ProviderClient
	ledger      LedgerWriter
	notifier    NotificationService
	resultCache *cache.Cache
	apiKey      string
}

func NewSyncService(provider ProviderClient, ledger LedgerWriter, notifier NotificationService, resultCache *cache.Cache, apiKey string) SyncService {
	return &syncServiceImpl{
		provider:    provider,
		ledger:      ledger,
		notifier:    notifier,
		resultCache: resultCache,
		apiKey:      apiKey,
	}
}

// SyncBalances runs a full reconciliation pass: fetch, flatten, aggregate,
// persist. Provider and persistence failures never abort the run; the only
// failing outcome is a missing API key. Everything else degrades to a safe
// result built from the last known good aggregate.
func (s *syncServiceImpl) SyncBalances(ctx context.Context) (models.SyncResult, error) {
	syncID := uuid.New().String()
	log := logger.L.With("sync_id", syncID)
	log.Info("balance sync started")

	if s.apiKey == "" {
		log.Error("balance sync aborted: provider API key is not configured")
		return models.SyncResult{
			Success:   false,
			Balances:  models.ZeroAggregateResult(),
			Warning:   FailureConfigurationMissing,
			Message:   "provider API key is not configured",
			Timestamp: time.Now().Format(time.RFC3339),
			SyncID:    syncID,
		}, ErrConfigurationMissing
	}

	resp, err := s.provider.FetchBalances(ctx)
	if err != nil {
		classification := FailureConnectivity
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			classification = provErr.Classification
		}
		log.Error("balance sync failed to fetch provider balances", "classification", classification, "error", err)
		if classification == FailureAuthentication && s.notifier != nil {
			subject := "Balance sync authentication failure"
			body := fmt.Sprintf("Sync %s could not authenticate against the balance provider: %v", syncID, err)
			if alertErr := s.notifier.SendSyncAlert(subject, body); alertErr != nil {
				log.Error("failed to send sync alert", "error", alertErr)
			}
		}
		return s.safeModeResult(log, syncID, classification), nil
	}

	root, err := parsers.DecodeBalancePayload(bytes.NewReader(resp.Body))
	if err != nil {
		log.Error("balance sync received a malformed provider payload", "endpoint", resp.Endpoint, "error", err)
		return s.safeModeResult(log, syncID, FailureMalformedResponse), nil
	}

	observations := parsers.FlattenBalances(root)
	aggregate := processors.Aggregate(observations, root)

	warning := ""
	if aggregate.NoBalanceFound {
		warning = WarningNoBalanceFound
		log.Warn("balance sync found no positive balances in the provider payload", "endpoint", resp.Endpoint)
	}

	approvedCashback, cashbackErr := s.provider.FetchApprovedCashback(ctx)
	if cashbackErr != nil {
		log.Warn("could not fetch approved cashback, persisting zero", "error", cashbackErr)
		approvedCashback = decimal.Zero
	}

	s.persist(log, &aggregate, approvedCashback)

	s.resultCache.Set(lastGoodCacheKey, aggregate, cache.NoExpiration)

	log.Info("balance sync completed",
		"total_balance", aggregate.TotalBalance.String(),
		"split_amount", aggregate.SplitAmount.String(),
		"endpoint", resp.Endpoint,
		"strategy", resp.Strategy)

	return models.SyncResult{
		Success:      true,
		Balances:     &aggregate,
		Warning:      warning,
		Message:      "balance sync completed",
		Timestamp:    time.Now().Format(time.RFC3339),
		SyncID:       syncID,
		EndpointUsed: resp.Endpoint,
		StrategyUsed: resp.Strategy,
	}, nil
}

// persist writes the aggregate into the configuration table and the monthly
// ledger. Each write failure is logged with the value that could not be
// stored, and the remaining writes still run.
func (s *syncServiceImpl) persist(log *slog.Logger, aggregate *models.AggregateResult, approvedCashback decimal.Decimal) {
	if err := s.ledger.UpsertConfig(ConfigKeyBalanceNet, aggregate.SplitAmount,
		"Net balance share from the latest provider sync"); err != nil {
		log.Error("failed to persist net balance", "value", aggregate.SplitAmount.String(), "error", err)
	}
	if err := s.ledger.UpsertConfig(ConfigKeyCashbackApproved, approvedCashback,
		"Approved cashback reported by the provider subscription endpoint"); err != nil {
		log.Error("failed to persist approved cashback", "value", approvedCashback.String(), "error", err)
	}
	if err := s.ledger.UpsertConfig(ConfigKeyCashbackHold, aggregate.GlobalCashback,
		"Cashback still on hold in the provider account"); err != nil {
		log.Error("failed to persist cashback on hold", "value", aggregate.GlobalCashback.String(), "error", err)
	}
	if err := s.ledger.UpsertMonthlyLedgerEntry(ConceptExternalSplit, aggregate.SplitAmount, time.Now()); err != nil {
		log.Error("failed to persist monthly ledger entry", "concept", ConceptExternalSplit,
			"amount", aggregate.SplitAmount.String(), "error", err)
	}
}

// safeModeResult builds the degraded response served when the provider could
// not be reached or understood. It reuses the last successful aggregate when
// one is cached, otherwise all-zero totals.
func (s *syncServiceImpl) safeModeResult(log *slog.Logger, syncID, classification string) models.SyncResult {
	balances := models.ZeroAggregateResult()
	if cached, found := s.resultCache.Get(lastGoodCacheKey); found {
		if last, ok := cached.(models.AggregateResult); ok {
			balances = &last
			log.Info("serving last known good balances in safe mode", "classification", classification)
		}
	}
	return models.SyncResult{
		Success:   true,
		Balances:  balances,
		Warning:   classification,
		SafeMode:  true,
		Message:   "balance sync degraded to safe mode",
		Timestamp: time.Now().Format(time.RFC3339),
		SyncID:    syncID,
	}
}
