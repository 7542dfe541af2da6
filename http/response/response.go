package response

import (
	"encoding/json"
	"log"
	"net/http"

	"intellicourse/utils"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Data    interface{}        `json:"data,omitempty"`
	Errors  []utils.FieldError `json:"errors,omitempty"`
}

// Success sends a success response with given status code, message, and data
func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	SendJSON(w, statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response with given status code and message
func Error(w http.ResponseWriter, statusCode int, message string) {
	SendJSON(w, statusCode, APIResponse{
		Success: false,
		Message: message,
	})
}

// ValidationError sends a 400 carrying every field-level error.
func ValidationError(w http.ResponseWriter, fieldErrors []utils.FieldError) {
	SendJSON(w, http.StatusBadRequest, APIResponse{
		Success: false,
		Message: "Invalid payment data",
		Errors:  fieldErrors,
	})
}

// SendJSON encodes and sends a JSON response
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}
