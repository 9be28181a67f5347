package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"sitesafety/internal/dto"
	"sitesafety/internal/logger"
	"sitesafety/internal/pipeline"
	"sitesafety/internal/repository"
	"sitesafety/internal/service"
	"sitesafety/internal/service/storage"
)

// allowMethod answers 405 unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError maps a domain error to its status code.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	resp := dto.ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var (
		loadErr *pipeline.ModelLoadError
		infErr  *pipeline.InferenceError
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &loadErr):
		status = http.StatusServiceUnavailable
		resp.Remediation = loadErr.Remediation()
	case errors.As(err, &infErr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrUnsupportedType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrBusy), errors.Is(err, service.ErrWrongMode):
		status = http.StatusConflict
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &maxErr):
		status = http.StatusRequestEntityTooLarge
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	}
	writeJSON(w, logger, status, resp)
}

func badRequest(w http.ResponseWriter, logger *logger.Logger, message string) {
	writeJSON(w, logger, http.StatusBadRequest, dto.ErrorResponse{Error: message})
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
