package api

import (
	"context"
	"net/http"

	"github.com/okian/kira/internal/domain/model"
)

// TierDependencies defines the interface for tier distribution queries.
type TierDependencies interface {
	GetTierCounts(ctx context.Context) map[model.Tier]int
}

// TierHandler handles tier distribution requests.
type TierHandler struct {
	deps TierDependencies
}

// NewTierHandler creates a new tier handler.
func NewTierHandler(deps TierDependencies) *TierHandler {
	return &TierHandler{deps: deps}
}

// HandleGetTiers handles GET /tiers requests.
func (h *TierHandler) HandleGetTiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.GetTierCounts(r.Context()))
}
