package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/blackledger/backend/src/logger"
	"github.com/username/blackledger/backend/src/services"
	"github.com/username/blackledger/backend/src/utils"
)

type SnapshotHandler struct {
	snapshotService services.SnapshotService
}

func NewSnapshotHandler(snapshotService services.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
	}
}

// HandleTakeSnapshot freezes the previous period. Retaking an existing period
// is reported as success with already_exists set.
func (h *SnapshotHandler) HandleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	result, err := h.snapshotService.TakeSnapshotForPreviousPeriod()
	if err != nil {
		logger.L.Error("Failed to take snapshot", "error", err)
		utils.SendJSONError(w, "failed to take snapshot", http.StatusInternalServerError)
		return
	}
	status := http.StatusCreated
	if result.AlreadyExists {
		status = http.StatusOK
	}
	utils.SendJSON(w, result, status)
}

func (h *SnapshotHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	period := r.PathValue("period")
	if period == "" {
		utils.SendJSONError(w, "period is required", http.StatusBadRequest)
		return
	}
	snapshot, err := h.snapshotService.GetSnapshot(period)
	if err != nil {
		logger.L.Error("Failed to read snapshot", "period", period, "error", err)
		utils.SendJSONError(w, "failed to read snapshot", http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		utils.SendJSONError(w, fmt.Sprintf("no snapshot for period %s", period), http.StatusNotFound)
		return
	}
	utils.SendJSON(w, snapshot, http.StatusOK)
}

func (h *SnapshotHandler) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.snapshotService.ListSnapshots()
	if err != nil {
		logger.L.Error("Failed to list snapshots", "error", err)
		utils.SendJSONError(w, "failed to list snapshots", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
}
