package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/service"
)

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var unseen *domain.UnseenCategoryError
	var mismatch *domain.EncoderModelMismatchError
	var insufficient *domain.InsufficientHistoryError
	var schema *domain.SchemaViolationError

	switch {
	case errors.Is(err, service.ErrUnknownProduct):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoSnapshot):
		status = http.StatusServiceUnavailable
	case errors.As(err, &unseen), errors.As(err, &insufficient):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &mismatch):
		status = http.StatusConflict
	case errors.As(err, &schema):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
