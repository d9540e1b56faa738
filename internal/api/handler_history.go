package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"checkin-backend/internal/mw"
)

// GetHistory handles GET /api/history/:login (admin only). Query params:
// page, page_size.
func (h *Handler) GetHistory(c *gin.Context) {
	identity, ok := mw.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	events, total, err := h.svc.History(c.Request.Context(), identity.ID, c.Param("login"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"page":   page,
		"events": events,
	})
}

// GetUsages handles GET /api/usages?from=YYYY-MM-DD&to=YYYY-MM-DD, the
// caller's per-day occupancy totals.
func (h *Handler) GetUsages(c *gin.Context) {
	identity, ok := mw.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' date, use YYYY-MM-DD"})
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' date, use YYYY-MM-DD"})
		return
	}

	usages, err := h.svc.UsageSummary(c.Request.Context(), identity.ID, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usages": usages})
}
