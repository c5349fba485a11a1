package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/bank-tracker/internal/services"
)

type PriceHandler struct {
	cache       *services.PriceCache
	snapshots   *services.SnapshotService
	autoReprice bool
}

func NewPriceHandler(cache *services.PriceCache, snapshots *services.SnapshotService, autoReprice bool) *PriceHandler {
	return &PriceHandler{
		cache:       cache,
		snapshots:   snapshots,
		autoReprice: autoReprice,
	}
}

// GetPriceStatus reports the age of the cached price table and the snapshot policy
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	status := h.cache.Status(c.Request.Context())
	status.CooldownWindow = h.snapshots.Gate().Window()
	if h.autoReprice {
		status.AutoRepriceEvery = h.snapshots.Interval()
	}
	c.JSON(http.StatusOK, status)
}
