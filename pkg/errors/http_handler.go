package errors

import (
	"encoding/json"
	"net/http"
)

// WriteError renders err as a JSON error body. Unknown errors are reported as
// internal errors without leaking their text.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())

	message := appErr.Message
	details := appErr.Details
	if appErr.Code == CodeInternal {
		details = nil
	}

	return json.NewEncoder(w).Encode(ErrorResponse{
		Code:      appErr.Code,
		Message:   message,
		Retryable: appErr.Retryable(),
		Details:   details,
	})
}
