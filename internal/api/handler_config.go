package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-backend/internal/checkin"
	"checkin-backend/internal/model"
	"checkin-backend/internal/mw"
)

// configResponse is the read shape of the administrative config.
type configResponse struct {
	Env     string `json:"env"`
	OpenAt  string `json:"open_at"`
	CloseAt string `json:"close_at"`
	MaxEast int    `json:"max_east"`
	MaxWest int    `json:"max_west"`
}

func toConfigResponse(cfg *model.AccessConfig) configResponse {
	return configResponse{
		Env:     cfg.Env,
		OpenAt:  cfg.OpenAt,
		CloseAt: cfg.CloseAt,
		MaxEast: cfg.MaxEast,
		MaxWest: cfg.MaxWest,
	}
}

// GetConfig handles GET /api/config, today's effective capacity and window.
func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.svc.TodayConfig(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toConfigResponse(cfg))
}

// PutConfig handles PUT /api/config (admin only), the administrative
// maintenance path for capacity and window values.
func (h *Handler) PutConfig(c *gin.Context) {
	identity, ok := mw.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	var update checkin.ConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	cfg, err := h.svc.UpdateConfig(c.Request.Context(), identity.ID, update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toConfigResponse(cfg))
}
