package handlers

import (
	"net/http"

	"github.com/playnow/reservas-api/services"
)

// AdminHandler exposes the reservation management endpoints of the admin
// dashboard. All routes are gated behind the administrador role.
type AdminHandler struct {
	reservationService services.ReservationService
}

func NewAdminHandler(reservationService services.ReservationService) *AdminHandler {
	return &AdminHandler{reservationService: reservationService}
}

// ListAll returns every reservation with the owning account joined in.
func (h *AdminHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.reservationService.ListAllForAdmin(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"reservas": reservations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update applies a partial patch to a reservation.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := reservationIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.AdminUpdateInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reservation, err := h.reservationService.AdminUpdate(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"reserva": reservation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete removes a reservation outright. Cancellations should go through
// the estado field instead, deletion is for bad data.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := reservationIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.reservationService.AdminDelete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "reserva eliminada"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
