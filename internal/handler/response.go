package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quotadrop/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Handler] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// statusFor сопоставляет доменную ошибку со стабильным HTTP-статусом и кодом
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrLinkNotFound):
		return http.StatusNotFound, "link_not_found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrExpired):
		return http.StatusForbidden, "expired"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusForbidden, "quota_exceeded"
	case errors.Is(err, domain.ErrContention):
		return http.StatusConflict, "contention"
	case errors.Is(err, domain.ErrInvalidLimit), errors.Is(err, domain.ErrEmptyUpload):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrIngestionIncomplete):
		return http.StatusServiceUnavailable, "ingestion_incomplete"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeError(w, status, code, message)
}
