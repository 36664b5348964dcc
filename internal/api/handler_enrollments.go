package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gym-contracts-backend/internal/eligibility"
	"gym-contracts-backend/internal/parse"
)

type validateEnrollmentRequest struct {
	Sessions []eligibility.Session `json:"sessions"`
	Kind     string                `json:"kind"`
}

// ValidateEnrollment handles POST /api/clients/:client_id/enrollments/validate.
// A rejection is a 200 with ok=false; only malformed input and boundary
// failures are HTTP errors.
func (h *Handler) ValidateEnrollment(c *gin.Context) {
	var req validateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	kind, err := parse.EnrollmentKind(req.Kind)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	// Experimental enrollments need no contract, so they need no sessions to check.
	if len(req.Sessions) == 0 && kind != eligibility.KindExperimental {
		badRequest(c, "at least one session is required")
		return
	}

	dec, err := h.life.ValidateEnrollment(c.Request.Context(), eligibility.Request{
		ClientID: c.Param("client_id"),
		Sessions: req.Sessions,
		Kind:     kind,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dec)
}
