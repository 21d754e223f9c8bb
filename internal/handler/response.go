package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"jewelflow/internal/model"
	"jewelflow/pkg/apierror"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError renders err as a DRF-style body: {"detail": ..., "code": ...}
// plus one key per invalid field.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := model.NewErrorResponse("A server error occurred.", "server_error", nil)

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body = model.NewErrorResponse(apiErr.Message, apiErr.Code, apiErr.Fields)
	case errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
		body = model.NewErrorResponse("Authentication credentials were not provided.", "not_authenticated", nil)
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
		body = model.NewErrorResponse("You do not have permission to perform this action.", "permission_denied", nil)
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
		body = model.NewErrorResponse("Invalid input.", "invalid", nil)
	default:
		slog.Error("unhandled error in writeError", "error", err)
	}

	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.New("parse_error", "JSON parse error - empty body", "", http.StatusBadRequest)
		}
		return apierror.New("parse_error", fmt.Sprintf("JSON parse error - %v", err), "", http.StatusBadRequest)
	}
	return nil
}

func categoryID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.New("not_found", "Not found.", "", http.StatusNotFound)
	}
	return id, nil
}
