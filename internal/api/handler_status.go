package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-backend/internal/mw"
)

// GetStatus handles GET /api/status, the caller's occupancy snapshot.
func (h *Handler) GetStatus(c *gin.Context) {
	identity, ok := mw.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	result, err := h.svc.Status(c.Request.Context(), identity.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetClusters handles GET /api/clusters, the per-cluster occupant counts.
func (h *Handler) GetClusters(c *gin.Context) {
	counts, err := h.svc.OccupancySnapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
