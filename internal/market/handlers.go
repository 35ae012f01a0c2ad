package market

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nftmx/settlement-engine/internal/model"
	"github.com/nftmx/settlement-engine/internal/policy"
)

// --- Request/Response types ---

// CreateListingRequest is the JSON body for POST /api/v1/listings.
type CreateListingRequest struct {
	Collection string          `json:"collection"`
	AssetID    string          `json:"asset_id"`
	Price      decimal.Decimal `json:"price"`
	Caller     model.Account   `json:"caller"`
}

// BuyRequest is the JSON body for POST /api/v1/buy.
type BuyRequest struct {
	Collection string        `json:"collection"`
	AssetID    string        `json:"asset_id"`
	Caller     model.Account `json:"caller"`
}

// SetFeeRequest is the JSON body for PUT /api/v1/fee.
type SetFeeRequest struct {
	FeeBps    int64         `json:"fee_bps"`
	Recipient model.Account `json:"recipient"`
	Caller    model.Account `json:"caller"`
}

// TransferOwnershipRequest is the JSON body for POST /api/v1/owner.
type TransferOwnershipRequest struct {
	NewOwner model.Account `json:"new_owner"`
	Caller   model.Account `json:"caller"`
}

// ErrorResponse is the JSON error body. Kind names the exact error cause so
// clients can branch without parsing messages.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// --- HTTP Handlers ---

// CreateListing handles POST /api/v1/listings.
func (s *Service) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}
	if req.Collection == "" || req.AssetID == "" || req.Caller.IsZero() {
		writeError(w, http.StatusBadRequest, "BadRequest", "collection, asset_id, and caller are required")
		return
	}

	listing, err := s.List(r.Context(), req.Collection, req.AssetID, req.Price, req.Caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(listing)
}

// GetListing handles GET /api/v1/listings/{collection}/{assetID}.
func (s *Service) GetListing(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	assetID := chi.URLParam(r, "assetID")

	listing, ok, err := s.Get(r.Context(), collection, assetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal", "failed to read listing")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchListing", "no such listing")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listing)
}

// ListListings handles GET /api/v1/listings.
func (s *Service) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.Listings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal", "failed to list listings")
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listings)
}

// CancelListing handles DELETE /api/v1/listings/{collection}/{assetID}.
// The caller is identified by the ?caller= query parameter.
func (s *Service) CancelListing(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	assetID := chi.URLParam(r, "assetID")
	caller := model.Account(r.URL.Query().Get("caller"))

	if caller.IsZero() {
		writeError(w, http.StatusBadRequest, "BadRequest", "caller query parameter is required")
		return
	}

	if err := s.Cancel(r.Context(), collection, assetID, caller); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExecuteBuy handles POST /api/v1/buy.
func (s *Service) ExecuteBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}
	if req.Collection == "" || req.AssetID == "" || req.Caller.IsZero() {
		writeError(w, http.StatusBadRequest, "BadRequest", "collection, asset_id, and caller are required")
		return
	}

	sale, err := s.Buy(r.Context(), req.Collection, req.AssetID, req.Caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sale)
}

// GetFee handles GET /api/v1/fee.
func (s *Service) GetFee(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.FeePolicy())
}

// UpdateFee handles PUT /api/v1/fee.
func (s *Service) UpdateFee(w http.ResponseWriter, r *http.Request) {
	var req SetFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}
	if req.Caller.IsZero() {
		writeError(w, http.StatusBadRequest, "BadRequest", "caller is required")
		return
	}

	fee, err := s.SetFee(r.Context(), req.FeeBps, req.Recipient, req.Caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fee)
}

// HandoverOwnership handles POST /api/v1/owner.
func (s *Service) HandoverOwnership(w http.ResponseWriter, r *http.Request) {
	var req TransferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}

	if err := s.TransferOwnership(req.NewOwner, req.Caller); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSales handles GET /api/v1/sales?collection=... or ?account=...
func (s *Service) GetSales(w http.ResponseWriter, r *http.Request) {
	var (
		sales []model.Sale
		err   error
	)

	switch {
	case r.URL.Query().Get("collection") != "":
		sales, err = s.SalesByCollection(r.Context(), r.URL.Query().Get("collection"))
	case r.URL.Query().Get("account") != "":
		sales, err = s.SalesByAccount(r.Context(), model.Account(r.URL.Query().Get("account")))
	default:
		writeError(w, http.StatusBadRequest, "BadRequest", "collection or account query parameter is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal", "failed to query sales")
		return
	}
	if sales == nil {
		sales = []model.Sale{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sales)
}

// --- Error mapping ---

// errorKind maps a domain error to its wire name and HTTP status.
func errorKind(err error) (string, int) {
	switch {
	case errors.Is(err, ErrInvalidPrice):
		return "InvalidPrice", http.StatusBadRequest
	case errors.Is(err, ErrNotOwnerOrNotApproved):
		return "NotOwnerOrNotApproved", http.StatusForbidden
	case errors.Is(err, ErrAlreadyListed):
		return "AlreadyListed", http.StatusConflict
	case errors.Is(err, ErrNoSuchListing):
		return "NoSuchListing", http.StatusNotFound
	case errors.Is(err, ErrNotSellerOrOwner):
		return "NotSellerOrOwner", http.StatusForbidden
	case errors.Is(err, ErrSellerCannotBuyOwnListing):
		return "SellerCannotBuyOwnListing", http.StatusForbidden
	case errors.Is(err, ErrPaymentFailed):
		return "PaymentFailed", http.StatusPaymentRequired
	case errors.Is(err, ErrAssetNotTransferable):
		return "AssetNotTransferable", http.StatusConflict
	case errors.Is(err, policy.ErrNotOwner):
		return "NotOwner", http.StatusForbidden
	case errors.Is(err, policy.ErrFeeTooHigh):
		return "FeeTooHigh", http.StatusBadRequest
	case errors.Is(err, policy.ErrInvalidRecipient):
		return "InvalidRecipient", http.StatusBadRequest
	case errors.Is(err, policy.ErrInvalidOwner):
		return "InvalidOwner", http.StatusBadRequest
	default:
		return "Internal", http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	kind, status := errorKind(err)
	writeError(w, status, kind, err.Error())
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Kind: kind, Error: message})
}
