package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playnow/reservas-api/middleware"
	"github.com/playnow/reservas-api/services"
)

type ReviewHandler struct {
	reviewService services.ReviewService
}

func NewReviewHandler(reviewService services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// Create accepts a review from a logged-in user or an anonymous visitor
// who supplied a display name.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateReviewInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var userID *int
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID = &claims.UserID
	}

	review, err := h.reviewService.Create(r.Context(), input, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"review": review}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	review, err := h.reviewService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"review": review}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"reviews": reviews}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete removes a review. The service enforces owner-or-admin.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.reviewService.Delete(r.Context(), id, claims.UserID, claims.Role); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "review eliminada"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
