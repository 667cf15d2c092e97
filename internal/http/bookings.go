package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/booking"
)

type createBookingRequest struct {
	EventID       string `json:"eventId"`
	Quantity      int    `json:"quantity"`
	PaymentMethod string `json:"paymentMethod"`
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caller, _ := auth.FromContext(r.Context())
	conf, err := h.bookings.CreatePaidBooking(r.Context(), caller, booking.Request{
		EventID:       req.EventID,
		Quantity:      req.Quantity,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeOK(w, http.StatusCreated, "Booking confirmed and payment successful", envelope{
		"booking": conf.Booking,
		"payment": conf.Payment,
	})
}

func (h *Handlers) MyBookings(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	views, err := h.bookings.ListMyBookings(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if views == nil {
		views = []booking.View{}
	}
	writeOK(w, http.StatusOK, "Bookings fetched successfully", envelope{"bookings": views})
}

func (h *Handlers) Invoice(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())

	inv, err := h.bookings.GetInvoice(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+inv.Filename())
	w.WriteHeader(http.StatusOK)
	w.Write(inv.PDF)
}
