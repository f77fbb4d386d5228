package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/votearena/backend/internal/services"
)

type ShareHandler struct {
	service   *services.ShareService
	validator *services.ValidationHelper
}

func NewShareHandler(service *services.ShareService) *ShareHandler {
	return &ShareHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GenerateShareLink issues a QR share link for a candidate
// @Summary Generate candidate share link
// @Description Generate a share token, URL and QR code image for a candidate's voting page
// @Tags share
// @Produce json
// @Security BearerAuth
// @Param candidateId path int true "Candidate ID"
// @Success 200 {object} object{token=string,url=string,qrImage=string}
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /candidates/{candidateId}/share [post]
func (h *ShareHandler) GenerateShareLink(w http.ResponseWriter, r *http.Request) {
	candidateID, err := strconv.Atoi(chi.URLParam(r, "candidateId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid candidate id", http.StatusBadRequest, nil)
		return
	}

	token, shareURL, qrImage, err := h.service.GenerateShareLink(r.Context(), candidateID)
	if err != nil {
		if errors.Is(err, services.ErrCandidateNotFound) {
			services.SendDomainError(w, err)
			return
		}
		if errors.Is(err, services.ErrShareUnavailable) {
			services.SendErrorResponse(w, err.Error(), http.StatusServiceUnavailable, nil)
			return
		}
		services.SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"token":   token,
		"url":     shareURL,
		"qrImage": qrImage,
	})
}

// ResolveShareToken resolves a scanned share token
// @Summary Resolve share token
// @Description Resolve a share token to the candidate it points at
// @Tags share
// @Accept json
// @Produce json
// @Param request body object{token=string} true "Share token"
// @Success 200 {object} object{candidateId=int,candidateName=string}
// @Failure 400 {object} services.ErrorResponse
// @Router /share/resolve [post]
func (h *ShareHandler) ResolveShareToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token" validate:"required"`
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

	result, err := h.service.ResolveShareToken(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, services.ErrShareUnavailable) {
			services.SendErrorResponse(w, err.Error(), http.StatusServiceUnavailable, nil)
			return
		}
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    result,
	})
}
