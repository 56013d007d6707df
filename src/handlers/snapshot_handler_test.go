package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/username/blackledger/backend/src/logger"
	"github.com/username/blackledger/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

type stubSnapshotService struct {
	takeResult models.SnapshotResult
	takeErr    error
	snapshots  map[string]*models.Snapshot
	list       []models.Snapshot
	listErr    error
}

func (s *stubSnapshotService) TakeSnapshotForPreviousPeriod() (models.SnapshotResult, error) {
	return s.takeResult, s.takeErr
}

func (s *stubSnapshotService) GetSnapshot(period string) (*models.Snapshot, error) {
	return s.snapshots[period], nil
}

func (s *stubSnapshotService) ListSnapshots() ([]models.Snapshot, error) {
	return s.list, s.listErr
}

func TestHandleTakeSnapshotFresh(t *testing.T) {
	svc := &stubSnapshotService{
		takeResult: models.SnapshotResult{Success: true, Period: "12-2025"},
	}
	handler := NewSnapshotHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/snapshots/previous-period", nil)
	rec := httptest.NewRecorder()
	handler.HandleTakeSnapshot(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandleTakeSnapshotAlreadyExists(t *testing.T) {
	svc := &stubSnapshotService{
		takeResult: models.SnapshotResult{Success: true, Period: "12-2025", AlreadyExists: true},
	}
	handler := NewSnapshotHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/snapshots/previous-period", nil)
	rec := httptest.NewRecorder()
	handler.HandleTakeSnapshot(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for an existing snapshot, got %d", rec.Code)
	}
	var result models.SnapshotResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !result.AlreadyExists {
		t.Error("expected already_exists in the response body")
	}
}

func TestHandleTakeSnapshotFailure(t *testing.T) {
	svc := &stubSnapshotService{takeErr: errors.New("database locked")}
	handler := NewSnapshotHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/snapshots/previous-period", nil)
	rec := httptest.NewRecorder()
	handler.HandleTakeSnapshot(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandleGetSnapshotNotFound(t *testing.T) {
	handler := NewSnapshotHandler(&stubSnapshotService{snapshots: map[string]*models.Snapshot{}})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/snapshots/{period}", handler.HandleGetSnapshot)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/01-1999", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleGetSnapshotFound(t *testing.T) {
	snapshot := &models.Snapshot{
		Period:               "12-2025",
		Year:                 2025,
		Month:                12,
		SplitAmount:          decimal.RequireFromString("877.53"),
		AccountsBalanceTotal: decimal.RequireFromString("1755.06"),
	}
	handler := NewSnapshotHandler(&stubSnapshotService{
		snapshots: map[string]*models.Snapshot{"12-2025": snapshot},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/snapshots/{period}", handler.HandleGetSnapshot)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/12-2025", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got models.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Period != "12-2025" {
		t.Errorf("expected period 12-2025, got %s", got.Period)
	}
}

func TestHandleListSnapshots(t *testing.T) {
	handler := NewSnapshotHandler(&stubSnapshotService{
		list: []models.Snapshot{{Period: "01-2026"}, {Period: "12-2025"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots", nil)
	rec := httptest.NewRecorder()
	handler.HandleListSnapshots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Success   bool              `json:"success"`
		Count     int               `json:"count"`
		Snapshots []models.Snapshot `json:"snapshots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !body.Success || body.Count != 2 || len(body.Snapshots) != 2 {
		t.Errorf("unexpected list payload: %+v", body)
	}
}
