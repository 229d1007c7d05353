package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/insiderfolio/backend/src/logger"
	"github.com/username/insiderfolio/backend/src/models"
	"github.com/username/insiderfolio/backend/src/services"
	"github.com/username/insiderfolio/backend/src/utils"
)

// ReportHandler serves the processed transaction rows and the synthesized
// roll-up rows for a single reporting owner.
type ReportHandler struct {
	service services.RollupService
}

func NewReportHandler(service services.RollupService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) HandleGetProcessedTransactions(w http.ResponseWriter, r *http.Request) {
	ownerCik := r.URL.Query().Get("ownerCik")
	if ownerCik == "" {
		utils.SendJSONError(w, "ownerCik query parameter is required", http.StatusBadRequest)
		return
	}
	logger.L.Debug("Handling GetProcessedTransactions request", "ownerCik", ownerCik)

	rows, err := h.service.GetProcessedTransactions(ownerCik)
	if err != nil {
		logger.L.Error("Error retrieving processed transactions", "ownerCik", ownerCik, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving transactions for owner %s: %v", ownerCik, err), http.StatusInternalServerError)
		return
	}
	h.writeWithETag(w, r, ownerCik, rows)
}

func (h *ReportHandler) HandleGetRollups(w http.ResponseWriter, r *http.Request) {
	ownerCik := r.URL.Query().Get("ownerCik")
	if ownerCik == "" {
		utils.SendJSONError(w, "ownerCik query parameter is required", http.StatusBadRequest)
		return
	}
	logger.L.Debug("Handling GetRollups request", "ownerCik", ownerCik)

	rows, err := h.service.GetRollups(ownerCik)
	if err != nil {
		logger.L.Error("Error retrieving roll-up rows", "ownerCik", ownerCik, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving roll-ups for owner %s: %v", ownerCik, err), http.StatusInternalServerError)
		return
	}
	h.writeWithETag(w, r, ownerCik, rows)
}

func (h *ReportHandler) writeWithETag(w http.ResponseWriter, r *http.Request, ownerCik string, rows []models.Transaction) {
	if rows == nil {
		rows = []models.Transaction{}
	}

	currentETag, etagErr := utils.GenerateETag(rows)
	if etagErr != nil {
		logger.L.Error("Failed to generate ETag for report data", "ownerCik", ownerCik, "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		logger.L.Error("Error generating JSON response for report data", "ownerCik", ownerCik, "error", err)
	}
}
