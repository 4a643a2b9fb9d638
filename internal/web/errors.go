package web

// errors.go provides unified error responses for the trigger API.
//
// Every error is logged with its technical text and the request id, then
// returned as JSON carrying the message, action and code from core.MapError.
// The HTTP status is derived from the code so that callers which retry on
// 5xx (storage notification pushes, schedulers) only retry transient errors.

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/listingclean/internal/core"
	"github.com/JonMunkholm/listingclean/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusByCode overrides the status implied by a code's family.
var statusByCode = map[string]int{
	"FILE001": http.StatusRequestEntityTooLarge,
	"FILE004": http.StatusNotFound,
	"STO001":  http.StatusNotFound,
	"STO002":  http.StatusInternalServerError,
	"STO003":  http.StatusInternalServerError,
	"RUN001":  http.StatusServiceUnavailable,
	"RUN002":  http.StatusServiceUnavailable,
	"RUN003":  http.StatusGatewayTimeout,
	"RUN004":  http.StatusBadRequest,
	"RUN005":  http.StatusBadRequest,
	"WH003":   http.StatusUnprocessableEntity,
}

// statusFor maps a support code to an HTTP status. Bad input is 4xx;
// storage and warehouse failures are 502 so they are retried.
func statusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "SCH"), strings.HasPrefix(code, "COL"), strings.HasPrefix(code, "FILE"):
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(code, "STO"), strings.HasPrefix(code, "WH"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its mapped message as JSON.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	status := statusFor(userMsg.Code)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}
