package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/clinsys/authgate/auth"
)

// envelope is the uniform response shape.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// writeError maps a classified error to its HTTP status. Unclassified
// errors surface as 500 with a generic message; their cause stays in the
// logs.
func writeError(w http.ResponseWriter, err error) {
	ae := auth.AsError(err)
	writeJSON(w, ae.Kind.HTTPStatus(), envelope{Success: false, Error: ae.Error()})
}

// decodeBody parses an optional JSON request body into dst. An empty body
// is not an error; malformed JSON is.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return auth.ValidationError("invalid JSON body")
	}
	return nil
}
