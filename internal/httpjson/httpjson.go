// Package httpjson writes and reads the JSON bodies of the HTTP API.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"resitrack/backend/internal/apperr"
)

// maxBody caps request bodies; every request of this API is a small form.
const maxBody = 1 << 20

var ErrInvalidJSON = fmt.Errorf("invalid json: %w", apperr.ErrValidation)

type APIError struct {
	Error string `json:"error"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Read decodes exactly one JSON object and rejects unknown fields.
func Read(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrInvalidJSON)
	}
	return nil
}

func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, APIError{Error: msg})
}
