package market

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nftmx/settlement-engine/internal/model"
	"github.com/nftmx/settlement-engine/internal/token"
)

// DevHandlers operates the in-memory token ledger and asset registry when
// the engine runs without real external collaborators. Mirrors the mint/
// approve/royalty glue a deployment script would run against the real
// services. Mounted only in dev mode.
type DevHandlers struct {
	Ledger   *token.MemoryLedger
	Registry *token.MemoryRegistry
}

type mintTokensRequest struct {
	Account model.Account   `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

type approveTokensRequest struct {
	Owner   model.Account   `json:"owner"`
	Spender model.Account   `json:"spender"`
	Amount  decimal.Decimal `json:"amount"`
}

type mintAssetRequest struct {
	Collection string        `json:"collection"`
	AssetID    string        `json:"asset_id"`
	Owner      model.Account `json:"owner"`
}

type approveAssetRequest struct {
	Collection string        `json:"collection"`
	AssetID    string        `json:"asset_id"`
	Caller     model.Account `json:"caller"`
	Spender    model.Account `json:"spender"`
}

type setRoyaltyRequest struct {
	Collection  string        `json:"collection"`
	Beneficiary model.Account `json:"beneficiary"`
	Bps         int64         `json:"bps"`
}

// MintTokens handles POST /api/v1/dev/tokens/mint.
func (d *DevHandlers) MintTokens(w http.ResponseWriter, r *http.Request) {
	var req mintTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}
	if err := d.Ledger.Mint(req.Account, req.Amount); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveTokens handles POST /api/v1/dev/tokens/approve.
func (d *DevHandlers) ApproveTokens(w http.ResponseWriter, r *http.Request) {
	var req approveTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}
	if err := d.Ledger.Approve(r.Context(), req.Owner, req.Spender, req.Amount); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance handles GET /api/v1/dev/tokens/balance/{account}.
func (d *DevHandlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	account := model.Account(chi.URLParam(r, "account"))
	balance, err := d.Ledger.BalanceOf(r.Context(), account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]decimal.Decimal{"balance": balance})
}

// MintAsset handles POST /api/v1/dev/assets/mint.
func (d *DevHandlers) MintAsset(w http.ResponseWriter, r *http.Request) {
	var req mintAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}
	if err := d.Registry.Mint(req.Collection, req.AssetID, req.Owner); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveAsset handles POST /api/v1/dev/assets/approve.
func (d *DevHandlers) ApproveAsset(w http.ResponseWriter, r *http.Request) {
	var req approveAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}
	if err := d.Registry.Approve(r.Context(), req.Caller, req.Spender, req.Collection, req.AssetID); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetRoyalty handles POST /api/v1/dev/assets/royalty.
func (d *DevHandlers) SetRoyalty(w http.ResponseWriter, r *http.Request) {
	var req setRoyaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}
	if err := d.Registry.SetRoyalty(req.Collection, req.Beneficiary, req.Bps); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
