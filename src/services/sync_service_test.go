package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

type fakeProvider struct {
	body        []byte
	fetchErr    error
	cashback    decimal.Decimal
	cashbackErr error
}

func (f *fakeProvider) FetchBalances(ctx context.Context) (*ProviderResponse, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &ProviderResponse{Body: f.body, Endpoint: "https://provider.test/balances", Strategy: "bearer"}, nil
}

func (f *fakeProvider) FetchApprovedCashback(ctx context.Context) (decimal.Decimal, error) {
	return f.cashback, f.cashbackErr
}

type fakeNotifier struct {
	subjects []string
}

func (f *fakeNotifier) SendSyncAlert(subject, body string) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

func newSyncService(t *testing.T, provider ProviderClient, notifier NotificationService) (SyncService, LedgerWriter) {
	t.Helper()
	db := newTestDB(t)
	writer := NewLedgerWriter(db)
	return NewSyncService(provider, writer, notifier, cache.New(time.Hour, time.Hour), "sekret"), writer
}

func TestSyncBalancesMissingAPIKey(t *testing.T) {
	db := newTestDB(t)
	svc := NewSyncService(&fakeProvider{}, NewLedgerWriter(db), nil, cache.New(time.Hour, time.Hour), "")

	result, err := svc.SyncBalances(context.Background())
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
	if result.Success {
		t.Error("expected success=false for a missing API key")
	}
	if result.Warning != FailureConfigurationMissing {
		t.Errorf("expected warning %s, got %s", FailureConfigurationMissing, result.Warning)
	}
}

func TestSyncBalancesEndToEnd(t *testing.T) {
	payload := `{
		"data": [
			{"currency": "USD", "balance": "100"},
			{"currency": "EUR", "balance": 50}
		],
		"meta": {"cashback": "10"}
	}`
	provider := &fakeProvider{body: []byte(payload), cashback: decimal.RequireFromString("12.34")}
	svc, writer := newSyncService(t, provider, nil)

	result, err := svc.SyncBalances(context.Background())
	if err != nil {
		t.Fatalf("SyncBalances failed: %v", err)
	}
	if !result.Success || result.SafeMode {
		t.Fatalf("expected a successful live sync, got %+v", result)
	}
	if result.Warning != "" {
		t.Errorf("expected no warning, got %s", result.Warning)
	}
	if got := result.Balances.TotalBalance.String(); got != "150" {
		t.Errorf("expected total balance 150, got %s", got)
	}
	if got := result.Balances.TotalAvailable.String(); got != "160" {
		t.Errorf("expected total available 160, got %s", got)
	}
	if got := result.Balances.SplitAmount.String(); got != "80" {
		t.Errorf("expected split 80, got %s", got)
	}
	if result.EndpointUsed == "" || result.StrategyUsed == "" {
		t.Error("expected endpoint and strategy to be reported")
	}
	if result.SyncID == "" {
		t.Error("expected a sync id")
	}

	net, found, err := writer.GetConfigValue(ConfigKeyBalanceNet)
	if err != nil || !found {
		t.Fatalf("balance_neto not persisted: found=%v err=%v", found, err)
	}
	if net.String() != "80" {
		t.Errorf("expected persisted net balance 80, got %s", net.String())
	}
	approved, found, _ := writer.GetConfigValue(ConfigKeyCashbackApproved)
	if !found || approved.String() != "12.34" {
		t.Errorf("expected persisted approved cashback 12.34, got found=%v %s", found, approved.String())
	}
	hold, found, _ := writer.GetConfigValue(ConfigKeyCashbackHold)
	if !found || hold.String() != "10" {
		t.Errorf("expected persisted cashback hold 10, got found=%v %s", found, hold.String())
	}
}

func TestSyncBalancesSafeModeClassifications(t *testing.T) {
	classifications := []string{
		FailureAuthentication,
		FailureEndpointNotFound,
		FailureConnectivity,
	}
	for _, classification := range classifications {
		t.Run(classification, func(t *testing.T) {
			provider := &fakeProvider{fetchErr: &ProviderError{Classification: classification, Err: errors.New("boom")}}
			svc, _ := newSyncService(t, provider, nil)

			result, err := svc.SyncBalances(context.Background())
			if err != nil {
				t.Fatalf("safe mode must not surface an error, got %v", err)
			}
			if !result.Success {
				t.Error("safe mode responses still report success")
			}
			if !result.SafeMode {
				t.Error("expected safe_mode=true")
			}
			if result.Warning != classification {
				t.Errorf("expected warning %s, got %s", classification, result.Warning)
			}
			if !result.Balances.TotalAvailable.IsZero() {
				t.Errorf("expected zero totals with no prior sync, got %s", result.Balances.TotalAvailable.String())
			}
		})
	}
}

func TestSyncBalancesMalformedPayload(t *testing.T) {
	provider := &fakeProvider{body: []byte(`{"data": [`)}
	svc, _ := newSyncService(t, provider, nil)

	result, err := svc.SyncBalances(context.Background())
	if err != nil {
		t.Fatalf("malformed payload must not surface an error, got %v", err)
	}
	if !result.SafeMode || result.Warning != FailureMalformedResponse {
		t.Errorf("expected safe mode with %s, got %+v", FailureMalformedResponse, result)
	}
}

func TestSyncBalancesEmptyDataWarnsNoBalanceFound(t *testing.T) {
	provider := &fakeProvider{body: []byte(`{"data": []}`)}
	svc, _ := newSyncService(t, provider, nil)

	result, err := svc.SyncBalances(context.Background())
	if err != nil {
		t.Fatalf("SyncBalances failed: %v", err)
	}
	if !result.Success || result.SafeMode {
		t.Fatalf("an empty payload is still a live sync, got %+v", result)
	}
	if result.Warning != WarningNoBalanceFound {
		t.Errorf("expected warning %s, got %s", WarningNoBalanceFound, result.Warning)
	}
}

func TestSyncBalancesServesLastKnownGood(t *testing.T) {
	payload := `{"data": [{"currency": "USD", "balance": "150"}], "cashback": "10"}`
	provider := &fakeProvider{body: []byte(payload)}
	svc, _ := newSyncService(t, provider, nil)

	if _, err := svc.SyncBalances(context.Background()); err != nil {
		t.Fatalf("priming sync failed: %v", err)
	}

	provider.fetchErr = &ProviderError{Classification: FailureConnectivity, Err: errors.New("timeout")}
	result, err := svc.SyncBalances(context.Background())
	if err != nil {
		t.Fatalf("safe mode sync failed: %v", err)
	}
	if !result.SafeMode {
		t.Fatal("expected safe mode")
	}
	if got := result.Balances.TotalAvailable.String(); got != "160" {
		t.Errorf("expected the last known good total 160, got %s", got)
	}
}

func TestSyncBalancesAuthFailureSendsAlert(t *testing.T) {
	provider := &fakeProvider{fetchErr: &ProviderError{Classification: FailureAuthentication, Err: errors.New("rejected")}}
	notifier := &fakeNotifier{}
	svc, _ := newSyncService(t, provider, notifier)

	if _, err := svc.SyncBalances(context.Background()); err != nil {
		t.Fatalf("SyncBalances failed: %v", err)
	}
	if len(notifier.subjects) != 1 {
		t.Fatalf("expected one alert, got %d", len(notifier.subjects))
	}
}

func TestSyncBalancesCashbackFetchFailurePersistsZero(t *testing.T) {
	provider := &fakeProvider{
		body:        []byte(`{"data": [{"currency": "USD", "balance": "100"}]}`),
		cashbackErr: errors.New("subscription endpoint down"),
	}
	svc, writer := newSyncService(t, provider, nil)

	result, err := svc.SyncBalances(context.Background())
	if err != nil {
		t.Fatalf("SyncBalances failed: %v", err)
	}
	if !result.Success {
		t.Fatal("a cashback fetch failure must not fail the sync")
	}
	approved, found, _ := writer.GetConfigValue(ConfigKeyCashbackApproved)
	if !found || !approved.IsZero() {
		t.Errorf("expected zero approved cashback, got found=%v %s", found, approved.String())
	}
}
