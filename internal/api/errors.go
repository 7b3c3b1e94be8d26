package api

import (
	"context"
	"errors"
	"net/http"

	"produce-ledger/internal/service"
	"produce-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorMapping turns a service error into a status, a stable code and a user message
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{service.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT", "Invalid request"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password"},
	{service.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN", "You are not allowed to modify this order"},
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Not found"},
	{service.ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN", "Username already exists"},
	{service.ErrStaleRowConflict, http.StatusConflict, "CONFLICT", "The record changed while it was being updated, please retry"},
	{service.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "The record store is unavailable, please retry later"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "TIMEOUT", "The request timed out, please retry later"},
}

// respondError writes the error body and logs server-side failures
func respondError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "INTERNAL", "Internal server error"
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, code, message = m.status, m.code, m.message
			break
		}
	}

	if status >= http.StatusInternalServerError {
		util.Named("api").Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":   message,
		"code":    code,
		"details": err.Error(),
	})
}

// respondBadRequest reports a malformed request body
func respondBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"code":    "INVALID_INPUT",
		"details": err.Error(),
	})
}
