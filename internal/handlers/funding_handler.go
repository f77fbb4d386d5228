package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/votearena/backend/internal/services"
)

type FundingHandler struct {
	service   *services.FundingService
	validator *services.ValidationHelper
}

func NewFundingHandler(service *services.FundingService) *FundingHandler {
	return &FundingHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// InitiateFunding issues a single-use payment reference for a wallet top-up
// @Summary Initiate wallet funding
// @Description Generate a cryptographically secure single-use payment reference
// @Tags funding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=int64} true "Funding request"
// @Success 200 {object} object{reference=string,expiresIn=int}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /funding/initiate [post]
func (h *FundingHandler) InitiateFunding(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		log.Printf("[FUNDING] InitiateFunding - Unauthorized: userID missing or invalid")
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount int64 `json:"amount" validate:"required,gt=0"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		log.Printf("[FUNDING] InitiateFunding - Decode error: %v", err)
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[FUNDING] InitiateFunding - Multiple JSON objects detected")
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		log.Printf("[FUNDING] InitiateFunding - Validation error: %v", err)
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	reference, expiresAt, err := h.service.InitiateFunding(r.Context(), userID, req.Amount)
	if err != nil {
		log.Printf("[FUNDING] InitiateFunding - Service error: %v", err)
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrFundingAmountBounds):
			status = http.StatusBadRequest
		case errors.Is(err, services.ErrFundingRateLimited):
			status = http.StatusTooManyRequests
		}
		services.SendErrorResponse(w, err.Error(), status, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"reference": reference,
		"expiresAt": expiresAt,
	})
}

// ConfirmFunding consumes a payment reference and credits the wallet.
// Called by the payment channel's webhook.
// @Summary Confirm wallet funding
// @Description Validate and consume a single-use payment reference, crediting the wallet
// @Tags funding
// @Accept json
// @Produce json
// @Param request body object{reference=string} true "Confirmation request"
// @Success 200 {object} object{reference=services.FundingReference,balance=int64}
// @Failure 400 {object} services.ErrorResponse
// @Router /funding/confirm [post]
func (h *FundingHandler) ConfirmFunding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reference string `json:"reference" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ref, balance, err := h.service.ConfirmFunding(r.Context(), req.Reference)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"reference": ref,
		"balance":   balance,
	})
}

// GetUserReferences lists funding references for the authenticated user
// @Summary Get funding references
// @Description Get all funding references generated by the authenticated user
// @Tags funding
// @Produce json
// @Security BearerAuth
// @Success 200 {array} services.FundingReference
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /funding/references [get]
func (h *FundingHandler) GetUserReferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	refs, err := h.service.GetUserReferences(r.Context(), userID)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(refs)
}

// requestUserID extracts the authenticated user's numeric ID from context.
func requestUserID(r *http.Request) (int, bool) {
	raw, ok := r.Context().Value("userID").(string)
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}
