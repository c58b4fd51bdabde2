package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"todoapi/database"
	"todoapi/logger"
	"todoapi/utils"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Detail string             `json:"detail"`
	Errors []utils.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeValidation(w http.ResponseWriter, errs ...utils.FieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "Validation failed", Errors: errs})
}

// writeDBError maps a database error to a response. notFound is the detail sent
// for database.ErrNotFound.
func writeDBError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, database.ErrInvalidReference):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, database.ErrConflict):
		writeError(w, http.StatusConflict, "Resource already exists")
	default:
		logger.ErrorContext(r.Context(), "database error", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
// It writes the 422 response itself and reports false when the body is rejected.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.WarnContext(r.Context(), "invalid request body", "error", err)
		writeValidation(w, utils.FieldError{Field: "body", Message: "must be a valid JSON object"})
		return false
	}
	if errs := utils.ValidateStruct(dst); len(errs) > 0 {
		writeValidation(w, errs...)
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter, writing a 422 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	return parseID(w, chi.URLParam(r, name), name)
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		writeValidation(w, utils.FieldError{Field: name, Message: "field is required"})
		return 0, false
	}
	return parseID(w, raw, name)
}

func parseID(w http.ResponseWriter, raw, name string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeValidation(w, utils.FieldError{Field: name, Message: "must be a positive integer"})
		return 0, false
	}
	return id, true
}
