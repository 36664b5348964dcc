package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/mw"
)

// GetContract returns the contract projection.
func (h *Handler) GetContract(c *gin.Context) {
	view, err := h.life.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListSuspensions returns the contract's suspension history.
func (h *Handler) ListSuspensions(c *gin.Context) {
	history, err := h.life.ListSuspensions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if history == nil {
		history = []contract.Suspension{}
	}
	c.JSON(http.StatusOK, gin.H{"suspensions": history})
}

// ListClientContracts returns every contract of a client.
func (h *Handler) ListClientContracts(c *gin.Context) {
	views, err := h.life.ListClientContracts(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": views})
}

// ScheduleSuspension handles POST /api/contracts/:id/suspensions.
func (h *Handler) ScheduleSuspension(c *gin.Context) {
	var req contract.SuspensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.life.ScheduleSuspension(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.invalidate(res.Contract.ID, res.Contract.ClientID)
	c.JSON(http.StatusCreated, res)
}

type stopSuspensionRequest struct {
	AsOf calendar.Date `json:"asOf"`
}

// StopSuspension handles POST /api/contracts/:id/suspensions/:suspension_id/stop.
// The body is optional; without asOf the suspension stops today.
func (h *Handler) StopSuspension(c *gin.Context) {
	var req stopSuspensionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}

	res, err := h.life.StopSuspension(c.Request.Context(), c.Param("id"), c.Param("suspension_id"), req.AsOf)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.invalidate(res.Contract.ID, res.Contract.ClientID)
	c.JSON(http.StatusOK, res)
}

// CancelContract handles POST /api/contracts/:id/cancel.
func (h *Handler) CancelContract(c *gin.Context) {
	var req contract.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.life.CancelContract(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.invalidate(res.Contract.ID, res.Contract.ClientID)
	c.JSON(http.StatusOK, res)
}

// invalidate drops cached reads of the contract and its owner.
func (h *Handler) invalidate(contractID, clientID string) {
	if h.cache == nil {
		return
	}
	mw.Invalidate(h.cache, contractPaths(contractID, clientID)...)
}

// contractPaths are the cached GET routes that show a contract.
func contractPaths(contractID, clientID string) []string {
	paths := []string{"/api/contracts/" + contractID}
	if clientID != "" {
		paths = append(paths, "/api/clients/"+clientID)
	}
	return paths
}

// InvalidateContract returns a hook that drops responses's cached views of a
// contract changed outside a request, e.g. by the sweeper.
func InvalidateContract(responses *cache.Cache) func(contract.Instance) {
	return func(c contract.Instance) {
		mw.Invalidate(responses, contractPaths(c.ID, c.ClientID)...)
	}
}
