package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/store"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	OK      bool           `json:"ok"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// writeError maps err to a status code and writes it.
func (h *Handler) writeError(c *gin.Context, err error) {
	if bizErr, ok := contract.AsError(err); ok {
		status := http.StatusUnprocessableEntity
		if bizErr.Code == contract.CodeInvalidRequest {
			status = http.StatusBadRequest
		}
		c.JSON(status, errorBody{Code: string(bizErr.Code), Message: bizErr.Message, Details: bizErr.Details})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody{Code: "NotFound", Message: err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, errorBody{Code: "ConflictError", Message: "the contract was changed by someone else, please retry"})
	default:
		h.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Code: "InternalError", Message: "internal server error"})
	}
}

// badRequest reports malformed input.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{Code: string(contract.CodeInvalidRequest), Message: message})
}
