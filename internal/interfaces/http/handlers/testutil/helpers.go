package testutil

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"vulntrack/internal/shared/constants"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// SetSubject simulates the auth middleware.
func SetSubject(c *gin.Context, subject string) {
	c.Set(constants.ContextKeySubject, subject)
}

// ParseResponse parses the JSON response body into the target struct.
func ParseResponse(w *httptest.ResponseRecorder, target interface{}) error {
	return json.Unmarshal(w.Body.Bytes(), target)
}

// APIResponse mirrors utils.APIResponse for test assertions.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ErrorInfo mirrors utils.ErrorInfo for test assertions.
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Details string `json:"details,omitempty"`
}
