package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/kira/internal/adapters/repository"
	service "github.com/okian/kira/internal/app"
)

// ClaimDependencies defines the interface for airdrop claims.
type ClaimDependencies interface {
	Claim(ctx context.Context, userID, wallet string) (service.ClaimResult, error)
}

// ClaimHandler handles airdrop claim requests.
type ClaimHandler struct {
	deps         ClaimDependencies
	maxBodyBytes int64
}

// NewClaimHandler creates a new claim handler.
func NewClaimHandler(deps ClaimDependencies, maxBodyBytes int64) *ClaimHandler {
	return &ClaimHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

type claimRequest struct {
	UserID string `json:"user_id"`
	Wallet string `json:"wallet"`
}

// HandlePostClaim handles POST /airdrop/claims requests.
func (h *ClaimHandler) HandlePostClaim(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_claim"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req claimRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	res, err := h.deps.Claim(r.Context(), strings.TrimSpace(req.UserID), strings.TrimSpace(req.Wallet))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, service.ErrInvalidWallet):
		writeError(w, http.StatusBadRequest, "invalid_wallet", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNothingToClaim):
		writeError(w, http.StatusConflict, "nothing_to_claim", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrDisbursementFailed):
		writeError(w, http.StatusBadGateway, "disbursement_failed", WrapKind(op, ErrUpstreamFailed, err))
	case errors.Is(err, service.ErrNoDisburser):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
