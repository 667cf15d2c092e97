package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/observability"
)

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, status int, message string, fields envelope) {
	body := envelope{"message": message, "success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"message": message, "success": false})
}

// writeError maps an error kind to its status. Unclassified errors are logged
// and reported as a generic server error.
func writeError(w http.ResponseWriter, r *http.Request, logger observability.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		if !errors.Is(err, domain.ErrTransactionFailed) {
			observability.LoggerFrom(r.Context(), logger).WithError(err).Error("request failed")
		}
		writeMessage(w, status, "Server error")
		return
	}
	writeMessage(w, status, err.Error())
}

func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrInvalidArgument, domain.ErrUnavailable, domain.ErrInsufficientCapacity:
		return http.StatusBadRequest
	case domain.ErrUnauthenticated:
		return http.StatusUnauthorized
	case domain.ErrForbidden:
		return http.StatusForbidden
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
