package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rollbar/rollbar-go"

	"candrive/internal/drive"
)

// fail writes the JSON error response matching err.
func (s *Server) fail(c *gin.Context, err error) {
	var verr *drive.ValidationError
	var conflict *drive.ConflictError
	switch {
	case errors.As(err, &verr):
		fields := verr.Fields
		if fields == nil {
			fields = map[string]string{}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "fields": fields})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":       conflict.Error(),
			"street":      conflict.Street,
			"reserved_by": conflict.HeldBy,
		})
	case errors.Is(err, drive.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, drive.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
	case errors.Is(err, drive.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to change this reservation"})
	case errors.Is(err, drive.ErrUnavailable):
		slog.Warn("datastore unavailable", "path", c.FullPath(), "error", err)
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard temporarily unavailable, retry shortly"})
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		if s.cfg.ReportErrors {
			rollbar.RequestError(rollbar.ERR, c.Request, err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bindError turns a gin binding failure into a ValidationError.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &drive.ValidationError{Message: "invalid request body: " + err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	var msgs []string
	for _, fe := range verrs {
		msg := fieldMessage(fe)
		fields[fe.Field()] = msg
		msgs = append(msgs, fe.Field()+" "+msg)
	}
	return &drive.ValidationError{Message: strings.Join(msgs, "; "), Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "grade":
		return "must be 9, 10, 11 or 12"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return "is invalid"
	}
}
