package api

import (
	"net/http"

	"wrapreel/internal/blueprint"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// envelope is the body of every JSON response. Exactly one of Data and
// Error is set.
type envelope struct {
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	TraceID string    `json:"trace_id"`
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Data: data, TraceID: traceIDFromContext(c)})
}

func writeError(c *gin.Context, status int, code, message string, retryable bool, details map[string]any) {
	c.JSON(status, envelope{
		Error: &APIError{
			Code:      code,
			Message:   message,
			Retryable: retryable,
			Details:   details,
		},
		TraceID: traceIDFromContext(c),
	})
}

func writeUnauthorized(c *gin.Context) {
	writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", false, nil)
}

// writeNotReady refuses a render or strict compile, listing what is missing.
func writeNotReady(c *gin.Context, v blueprint.Validation) {
	writeError(c, http.StatusUnprocessableEntity, "BLUEPRINT_NOT_READY", "Blueprint is not ready to render", false, map[string]any{
		"errors": v.Errors,
	})
}
