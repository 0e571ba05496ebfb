package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MarsStirner/ezekiel/internal/auth"
	"github.com/MarsStirner/ezekiel/internal/locks"
)

// handleRPC implements the short-lived REST surface:
// POST /ezekiel/rpc/{command}/{object_id}[?token=HEX].
// acquire forwards to AcquireTemporary, prolong/release require the
// token query parameter and forward to Prolong/Release.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	command := chi.URLParam(r, "command")
	objectID := chi.URLParam(r, "object_id")

	if err := validateCommand(command); err != nil {
		s.recordRPC(command, http.StatusBadRequest, start)
		http.Error(w, "unknown command", http.StatusBadRequest)
		return
	}
	if err := validateObjectID(objectID); err != nil {
		s.recordRPC(command, http.StatusBadRequest, start)
		http.Error(w, "invalid object_id", http.StatusBadRequest)
		return
	}

	principal, ok := auth.FromRequest(r, s.auth)
	if !ok {
		s.recordRPC(command, http.StatusForbidden, start)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var payload any
	switch command {
	case "acquire":
		lock, err := s.manager.AcquireTemporary(objectID, principal)
		if err != nil {
			payload = errorPayload(objectID, err)
		} else {
			payload = lockToJSON(lock)
		}
	case "prolong":
		token, terr := locks.ParseToken(r.URL.Query().Get("token"))
		if terr != nil {
			payload = notFoundToJSON(&locks.NotFoundError{ObjectID: objectID})
			break
		}
		lock, err := s.manager.Prolong(objectID, token)
		if err != nil {
			payload = errorPayload(objectID, err)
		} else {
			payload = lockToJSON(lock)
		}
	case "release":
		token, terr := locks.ParseToken(r.URL.Query().Get("token"))
		if terr != nil {
			payload = notFoundToJSON(&locks.NotFoundError{ObjectID: objectID})
			break
		}
		_, err := s.manager.Release(objectID, token)
		if err != nil {
			payload = errorPayload(objectID, err)
		} else {
			payload = releasedJSON{Success: true, ObjectID: objectID}
		}
	default:
		// Unreachable: validateCommand already restricted the set.
		payload = notFoundToJSON(&locks.NotFoundError{ObjectID: objectID})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("rpc response encode failed", "error", err)
	}
	s.recordRPC(command, http.StatusOK, start)
}

func (s *Server) recordRPC(command string, status int, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordHTTPRequest(command, httpStatusLabel(status), time.Since(start))
}

func httpStatusLabel(status int) string {
	switch status {
	case http.StatusOK:
		return "200"
	case http.StatusBadRequest:
		return "400"
	case http.StatusForbidden:
		return "403"
	case http.StatusNotFound:
		return "404"
	default:
		return "500"
	}
}
