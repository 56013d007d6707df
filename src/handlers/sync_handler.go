package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/blackledger/backend/src/logger"
	"github.com/username/blackledger/backend/src/services"
	"github.com/username/blackledger/backend/src/utils"
)

type SyncHandler struct {
	syncService  services.SyncService
	ledgerWriter services.LedgerWriter
}

func NewSyncHandler(syncService services.SyncService, ledgerWriter services.LedgerWriter) *SyncHandler {
	return &SyncHandler{
		syncService:  syncService,
		ledgerWriter: ledgerWriter,
	}
}

// HandleSyncBalances runs a reconciliation pass and returns its result. The
// only failing status is a missing provider key; degraded runs come back 200
// with safe_mode set.
func (h *SyncHandler) HandleSyncBalances(w http.ResponseWriter, r *http.Request) {
	result, err := h.syncService.SyncBalances(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrConfigurationMissing) {
			utils.SendJSON(w, result, http.StatusInternalServerError)
			return
		}
		logger.L.Error("Unexpected sync failure", "error", err)
		utils.SendJSONError(w, "balance sync failed", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

// HandleGetCurrentBalances returns the configuration values written by the
// latest sync, without touching the provider.
func (h *SyncHandler) HandleGetCurrentBalances(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledgerWriter.GetConfigEntries()
	if err != nil {
		logger.L.Error("Failed to read configuration entries", "error", err)
		utils.SendJSONError(w, "failed to read current balances", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"count":   len(entries),
		"entries": entries,
	})
}
