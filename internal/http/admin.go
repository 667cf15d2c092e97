package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/domain"
)

func (h *Handlers) AdminEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	caller, _ := auth.FromContext(r.Context())
	events, err := h.catalog.ListAdmin(r.Context(), caller, f, h.now())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Events fetched successfully", envelope{"events": nonNil(events)})
}

func (h *Handlers) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "Event approved", func(caller *auth.Identity, id uuid.UUID) (domain.Event, error) {
		return h.catalog.Approve(r.Context(), caller, id)
	})
}

func (h *Handlers) DisableEvent(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "Event disabled", func(caller *auth.Identity, id uuid.UUID) (domain.Event, error) {
		return h.catalog.Disable(r.Context(), caller, id)
	})
}

func (h *Handlers) EnableEvent(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "Event enabled", func(caller *auth.Identity, id uuid.UUID) (domain.Event, error) {
		return h.catalog.Enable(r.Context(), caller, id)
	})
}

func (h *Handlers) SetEventStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status := domain.EventStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	h.moderate(w, r, "Event status updated", func(caller *auth.Identity, id uuid.UUID) (domain.Event, error) {
		return h.catalog.SetStatus(r.Context(), caller, id, status)
	})
}

func (h *Handlers) moderate(w http.ResponseWriter, r *http.Request, message string, fn func(*auth.Identity, uuid.UUID) (domain.Event, error)) {
	id, err := pathID(r, "id", "Invalid event id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	caller, _ := auth.FromContext(r.Context())
	e, err := fn(caller, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, message, envelope{"event": e})
}
