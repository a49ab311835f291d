package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/driftline/backend/pkg/debug"
)

// Envelope is the JSON shape every API response uses
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RespondWithError sends a failure envelope with the given status code and message
func RespondWithError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Envelope{Success: false, Error: message})
}

// RespondWithData sends a success envelope with the given status code and payload
func RespondWithData(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, Envelope{Success: true, Data: data})
}

// RespondWithErrorPayload sends a failure envelope carrying structured
// detail alongside the message, such as remaining attempt counts.
func RespondWithErrorPayload(w http.ResponseWriter, code int, message string, data interface{}) {
	writeJSON(w, code, Envelope{Success: false, Error: message, Data: data})
}

// RespondWithSuccess sends an empty success envelope
func RespondWithSuccess(w http.ResponseWriter, code int) {
	writeJSON(w, code, Envelope{Success: true})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Error("Failed to encode JSON response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// GetQueryParam gets a query parameter from the request
func GetQueryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// GetBoolQueryParam gets a boolean query parameter from the request
func GetBoolQueryParam(r *http.Request, key string) bool {
	value := r.URL.Query().Get(key)
	return value == "true" || value == "1" || value == "yes"
}
