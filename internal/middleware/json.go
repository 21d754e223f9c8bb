package middleware

import (
	"encoding/json"
	"net/http"

	"jewelflow/internal/model"
)

func writeDetail(w http.ResponseWriter, status int, detail string, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.NewErrorResponse(detail, code, nil))
}
