package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/insiderfolio/backend/src/logger"
	"github.com/username/insiderfolio/backend/src/models"
	"github.com/username/insiderfolio/backend/src/services"
	"github.com/username/insiderfolio/backend/src/utils"
)

// IngestHandler accepts one parsed filing per request and runs it through
// the roll-up engine.
type IngestHandler struct {
	service        services.RollupService
	maxIngestBytes int64
}

func NewIngestHandler(service services.RollupService, maxIngestBytes int64) *IngestHandler {
	return &IngestHandler{service: service, maxIngestBytes: maxIngestBytes}
}

func (h *IngestHandler) HandleIngestFiling(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxIngestBytes)

	var env models.FilingEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		utils.SendJSONError(w, "invalid filing payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.ProcessFiling(env)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Filing processing failed", "accession", env.AccessionNumber, "error", err)
		utils.SendJSONError(w, "filing processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding ingest response", "accession", env.AccessionNumber, "error", err)
	}
}
