package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/views"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr shapes err by its kind. Unclassified errors are 500 and their
// message is not echoed.
func RespondErr(c *gin.Context, err error) {
	if ae, ok := apierr.As(err); ok {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= 500 {
			_ = c.Error(err)
			RespondError(c, status, codeOr(ae.Code, string(ae.Kind)), errors.New(http.StatusText(status)))
			return
		}
		RespondError(c, status, codeOr(ae.Code, string(ae.Kind)), ae)
		return
	}
	_ = c.Error(err)
	RespondError(c, http.StatusInternalServerError, "internal", errors.New(http.StatusText(http.StatusInternalServerError)))
}

// RespondRead is RespondErr for reads: an access denial on id answers 200
// with the restricted shape.
func RespondRead(c *gin.Context, id uint, err error) {
	if apierr.IsKind(err, apierr.KindAccessDenied) {
		c.JSON(http.StatusOK, views.Restricted(id))
		return
	}
	RespondErr(c, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func codeOr(code, fallback string) string {
	if code != "" {
		return code
	}
	return fallback
}
