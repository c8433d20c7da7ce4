package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
)

func readJSON(body io.Reader, dest any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeAPIError maps a core operation failure onto an HTTP response. Internal
// errors get logged with their cause and masked from the client.
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		status := apiErr.Status()
		if status == http.StatusInternalServerError {
			log.Printf("internal error: %v", err)
			writeError(w, status, "internal error")
			return
		}
		writeError(w, status, apiErr.message)
		return
	}
	log.Printf("internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
