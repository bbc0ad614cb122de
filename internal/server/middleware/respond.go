package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iudanet/studysync/pkg/api"
)

// writeError отвечает api.ErrorResponse, как и handlers
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
