package handlers

import (
	"net/http"
	"os"
	"time"

	"intellicourse/http/response"
)

var startTime = time.Now()

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(startTime).Round(time.Second).String(),
		"environment": env,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
