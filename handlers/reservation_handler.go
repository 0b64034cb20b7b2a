package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playnow/reservas-api/middleware"
	"github.com/playnow/reservas-api/services"
)

type ReservationHandler struct {
	reservationService services.ReservationService
}

func NewReservationHandler(reservationService services.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// Create books a slot for the logged-in user.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.CreateReservationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reservation, err := h.reservationService.Create(r.Context(), input, claims.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"reserva": reservation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateGuest books a slot without an account, keyed on contact data.
func (h *ReservationHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var input services.GuestReservationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reservation, err := h.reservationService.CreateGuest(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"reserva": reservation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Confirm handles the email confirmation link. Public by necessity: the
// link must work for guests without a session.
func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, services.ActionConfirm)
}

// Cancel handles the email cancellation link.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, services.ActionCancel)
}

func (h *ReservationHandler) handleAction(w http.ResponseWriter, r *http.Request, action services.ReservationAction) {
	id, err := reservationIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reservation, err := h.reservationService.HandleAction(r.Context(), id, action)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"reserva": reservation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMine returns the caller's own reservations, newest first.
func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	reservations, err := h.reservationService.ListForUser(r.Context(), claims.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"reservas": reservations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func reservationIDParam(r *http.Request) (int, error) {
	return parseIDParam(chi.URLParam(r, "id"))
}

func parseIDParam(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errInvalidIDParam
	}
	return id, nil
}
