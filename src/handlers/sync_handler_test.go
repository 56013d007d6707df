package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/blackledger/backend/src/models"
	"github.com/username/blackledger/backend/src/services"
)

type stubSyncService struct {
	result models.SyncResult
	err    error
}

func (s *stubSyncService) SyncBalances(ctx context.Context) (models.SyncResult, error) {
	return s.result, s.err
}

type stubLedgerWriter struct {
	entries []models.ConfigEntry
}

func (s *stubLedgerWriter) UpsertConfig(key string, value decimal.Decimal, description string) error {
	return nil
}

func (s *stubLedgerWriter) UpsertMonthlyLedgerEntry(concept string, amountPrimary decimal.Decimal, billingDate time.Time) error {
	return nil
}

func (s *stubLedgerWriter) GetConfigValue(key string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (s *stubLedgerWriter) GetConfigEntries() ([]models.ConfigEntry, error) {
	return s.entries, nil
}

func TestHandleSyncBalancesSuccess(t *testing.T) {
	svc := &stubSyncService{
		result: models.SyncResult{Success: true, Balances: models.ZeroAggregateResult(), SyncID: "abc"},
	}
	handler := NewSyncHandler(svc, &stubLedgerWriter{})

	req := httptest.NewRequest(http.MethodPost, "/api/sync-balances", nil)
	rec := httptest.NewRecorder()
	handler.HandleSyncBalances(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result models.SyncResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !result.Success || result.SyncID != "abc" {
		t.Errorf("unexpected response body: %+v", result)
	}
}

func TestHandleSyncBalancesConfigurationMissing(t *testing.T) {
	svc := &stubSyncService{
		result: models.SyncResult{Success: false, Warning: services.FailureConfigurationMissing},
		err:    services.ErrConfigurationMissing,
	}
	handler := NewSyncHandler(svc, &stubLedgerWriter{})

	req := httptest.NewRequest(http.MethodPost, "/api/sync-balances", nil)
	rec := httptest.NewRecorder()
	handler.HandleSyncBalances(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var result models.SyncResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Success || result.Warning != services.FailureConfigurationMissing {
		t.Errorf("unexpected response body: %+v", result)
	}
}

func TestHandleSyncBalancesSafeModeIsStill200(t *testing.T) {
	svc := &stubSyncService{
		result: models.SyncResult{
			Success:  true,
			SafeMode: true,
			Warning:  services.FailureConnectivity,
			Balances: models.ZeroAggregateResult(),
		},
	}
	handler := NewSyncHandler(svc, &stubLedgerWriter{})

	req := httptest.NewRequest(http.MethodGet, "/api/sync-balances", nil)
	rec := httptest.NewRecorder()
	handler.HandleSyncBalances(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("safe mode responses are 200, got %d", rec.Code)
	}
}

func TestHandleGetCurrentBalances(t *testing.T) {
	writer := &stubLedgerWriter{
		entries: []models.ConfigEntry{
			{Key: "balance_neto", NumericValue: decimal.RequireFromString("877.53")},
			{Key: "cashback_hold", NumericValue: decimal.RequireFromString("10")},
		},
	}
	handler := NewSyncHandler(&stubSyncService{}, writer)

	req := httptest.NewRequest(http.MethodGet, "/api/balances/current", nil)
	rec := httptest.NewRecorder()
	handler.HandleGetCurrentBalances(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Success bool                 `json:"success"`
		Count   int                  `json:"count"`
		Entries []models.ConfigEntry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !body.Success || body.Count != 2 {
		t.Errorf("unexpected body: %+v", body)
	}
}
