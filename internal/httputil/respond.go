// Package httputil writes the JSON envelopes shared by handlers and
// middleware.
package httputil

import (
	"encoding/json"
	"net/http"

	errs "github.com/inkwell-labs/blog_service/internal/errors"
)

// ErrorEnvelope is the uniform error body.
type ErrorEnvelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding a marshalable value cannot fail after the header is written.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope with the given status and message.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorEnvelope{Success: false, StatusCode: status, Message: message})
}

// WriteServiceError maps err to the error envelope. Untyped errors become a
// generic 500 so internal detail never leaks.
func WriteServiceError(w http.ResponseWriter, err error) {
	if se := errs.GetServiceError(err); se != nil {
		WriteError(w, se.HTTPStatus, se.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}
