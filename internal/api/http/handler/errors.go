package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/agent-registry/internal/identity"
	"github.com/EternisAI/agent-registry/internal/ownership"
	"github.com/EternisAI/agent-registry/internal/usage"
)

var ErrTooManyEntries = errors.New("too many entries")

// statusFor maps registry errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ownership.ErrRecordNotFound),
		errors.Is(err, usage.ErrRecordNotFound),
		errors.Is(err, usage.ErrReferencedRecordNotFound),
		errors.Is(err, identity.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ownership.ErrNotOwner),
		errors.Is(err, ownership.ErrNotAdmin),
		errors.Is(err, ownership.ErrCreationRestricted),
		errors.Is(err, usage.ErrNotOwnershipOwner),
		errors.Is(err, usage.ErrNotAuthorized),
		errors.Is(err, usage.ErrNotAdmin):
		return http.StatusForbidden

	case errors.Is(err, identity.ErrDuplicateIdentifier),
		errors.Is(err, ownership.ErrLinkAlreadyConfigured),
		errors.Is(err, ownership.ErrAlreadyPaused),
		errors.Is(err, ownership.ErrNotPaused),
		errors.Is(err, usage.ErrLinkAlreadyConfigured),
		errors.Is(err, usage.ErrLinkNotConfigured):
		return http.StatusConflict

	case errors.Is(err, ownership.ErrRegistryPaused):
		return http.StatusLocked

	case errors.Is(err, ErrTooManyEntries),
		errors.Is(err, identity.ErrEmptyIdentifier),
		errors.Is(err, ownership.ErrMetadataArityMismatch),
		errors.Is(err, ownership.ErrInvalidHolder),
		errors.Is(err, ownership.ErrInvalidOperator),
		errors.Is(err, ownership.ErrInvalidLink),
		errors.Is(err, usage.ErrInvalidQuantity),
		errors.Is(err, usage.ErrQuantityOverflow),
		errors.Is(err, usage.ErrInsufficientBalance),
		errors.Is(err, usage.ErrInvalidHolder),
		errors.Is(err, usage.ErrInvalidOperator),
		errors.Is(err, usage.ErrInvalidLink):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status. Unexpected errors are logged
// and hidden from the client.
func respondError(c *gin.Context, err error, msg string, attrs ...any) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(msg, append([]any{"error", err}, attrs...)...)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	slog.Debug(msg, append([]any{"error", err, "status", status}, attrs...)...)
	c.JSON(status, gin.H{"error": err.Error()})
}
