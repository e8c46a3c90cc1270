package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Success              bool   `json:"success"`
	Message              string `json:"message"`
	Error                string `json:"error,omitempty"`
	PasswordRequirements any    `json:"passwordRequirements,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Success: false, Message: message})
}

// RespondWithErr renders err using its mapped status and public message.
func RespondWithErr(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Success: false, Message: PublicMessage(err)}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		resp.Error = apiErr.Detail
		resp.PasswordRequirements = apiErr.Payload
	}
	RespondWithJSON(w, HTTPStatusFromError(err), resp)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"message":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
