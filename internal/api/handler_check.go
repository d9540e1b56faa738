package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"checkin-backend/internal/mw"
)

// PostCheckIn handles POST /api/checkin/:card.
func (h *Handler) PostCheckIn(c *gin.Context) {
	identity, ok := mw.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	cardNo, err := strconv.Atoi(c.Param("card"))
	if err != nil || cardNo <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid card number"})
		return
	}

	result, err := h.svc.CheckIn(c.Request.Context(), identity.ID, cardNo)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PostCheckOut handles POST /api/checkout.
func (h *Handler) PostCheckOut(c *gin.Context) {
	identity, ok := mw.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	result, err := h.svc.CheckOut(c.Request.Context(), identity.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PostForceCheckOut handles POST /api/admin/checkout/:person_id.
func (h *Handler) PostForceCheckOut(c *gin.Context) {
	identity, ok := mw.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	targetID, err := strconv.ParseInt(c.Param("person_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	result, err := h.svc.ForceCheckOut(c.Request.Context(), identity.ID, targetID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
