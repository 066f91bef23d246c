package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/ml-services/pkg/errors"
)

// errorCodeHeader carries the machine-readable failure code next to the
// {"detail": ...} body.
const errorCodeHeader = "X-Error-Code"

// HTTPError is a failed request as the error middleware renders it.
type HTTPError struct {
	Status int
	Code   string
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Detail
}

// Unwrap exposes the cause.
func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func forbidden() *HTTPError {
	return &HTTPError{Status: http.StatusForbidden, Code: "unauthorized", Detail: "Unauthorized"}
}

// badRequest maps a binding or service failure to a 400. The application
// error code wins over fallback when err carries one.
func badRequest(fallback string, err error) *HTTPError {
	code := fallback
	if appCode := apperrors.CodeOf(err); appCode != "" {
		code = appCode
	}
	return &HTTPError{Status: http.StatusBadRequest, Code: code, Detail: errMessage(err), Err: err}
}

func asHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return badRequest("request_failed", err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func writeError(c *gin.Context, err *HTTPError) {
	detail := err.Detail
	if detail == "" {
		detail = http.StatusText(err.Status)
	}
	c.Header(errorCodeHeader, err.Code)
	c.JSON(err.Status, gin.H{"detail": detail})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
