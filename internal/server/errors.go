package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sverrirab/generic-rest/internal/schema"
	"github.com/sverrirab/generic-rest/internal/store"
)

const (
	msgUnauthorized = "The server could not verify that you are authorized to access the URL requested. " +
		"You either supplied the wrong credentials (e.g. a bad password), or your browser doesn't understand " +
		"how to supply the credentials required."
	msgNotFound         = "The requested URL was not found on the server."
	msgMethodNotAllowed = "The method is not allowed for the requested URL."
	msgInternal         = "The server encountered an internal error and was unable to complete your request."
)

// abortWithMessage writes the error body used for every failure.
func abortWithMessage(c *gin.Context, status int, message any) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// handleError maps a store or validation error onto a response.
func handleError(c *gin.Context, err error) {
	var verrs schema.ValidationErrors
	if errors.As(err, &verrs) {
		slog.Debug("invalid request body", "path", c.Request.URL.Path, "error", err)
		abortWithMessage(c, http.StatusBadRequest, verrs.ByField())
		return
	}

	var serr *store.Error
	if errors.As(err, &serr) {
		switch serr.Kind {
		case store.KindNotFound:
			abortWithMessage(c, http.StatusNotFound, serr.Message)
			return
		case store.KindUnauthorized:
			abortWithMessage(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
	}

	if ctxErr := c.Request.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		// Client went away; nobody reads this response.
		c.Abort()
		return
	}

	slog.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path,
		"request_id", c.GetString(requestIDKey), "error", err)
	abortWithMessage(c, http.StatusInternalServerError, msgInternal)
}
