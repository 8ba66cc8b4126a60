package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1_048_576

// Response wraps every successful payload
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// ErrorResponse is written for every failed request
type ErrorResponse struct {
	Error string              `json:"error"`
	Code  apperrors.ErrorCode `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, &ErrorResponse{Error: message})
}

// writeAppError maps err onto its HTTP status. Errors that are not
// AppErrors are reported as internal without their text.
func writeAppError(w http.ResponseWriter, err error) error {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		return writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
	return writeJSON(w, apperrors.StatusCode(err), &ErrorResponse{Error: appErr.Message, Code: appErr.Code})
}

// readJSON decodes an optional body. An empty body leaves data untouched.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(data); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
