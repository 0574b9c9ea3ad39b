package server

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wippyai/postal/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Phase     string `json:"phase,omitempty"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps an operation error onto an HTTP status. Only errors found
// in the request itself are the caller's fault; undecodable libpostal output
// is a server error.
func statusFor(err error) int {
	switch {
	case errors.IsArgument(err), errors.IsEncoding(err) && phaseOf(err) == errors.PhaseValidate:
		return http.StatusBadRequest
	case errors.KindOf(err) == errors.KindNotInitialized:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func phaseOf(err error) errors.Phase {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Phase
	}
	return ""
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		Code:      "internal",
		RequestID: getRequestID(c),
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		resp.Code = string(e.Kind)
		resp.Phase = string(e.Phase)
		resp.Path = strings.Join(e.Path, ".")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// badRequest reports a malformed body or path parameter.
func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:     err.Error(),
		Code:      "invalid_request",
		RequestID: getRequestID(c),
	})
}
