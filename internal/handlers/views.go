package handlers

import (
	"net/http"
	"strconv"

	"benchmark_dashboard/internal/alert"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusAccepted = "accepted"

	errLoadSnapshot    = "failed to load last snapshot"
	errLoadJournal     = "failed to load journal"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...any) {
	if h.log != nil && err != nil {
		fields := append([]any{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    statusOK,
		"connected": h.services.Status().Connected,
	})
}

// @Summary      Full synchronized view
// @Description  Every collection plus the store version.
// @Tags         views
// @Produce      json
// @Success      200  {object}  models.View
// @Router       /api/v1/state [get]
func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.View())
}

// @Summary      List devices
// @Tags         views
// @Produce      json
// @Param        online  query     bool  false  "Only devices whose status is online"
// @Success      200     {object}  map[string]interface{}  "count, devices"
// @Failure      400     {object}  map[string]string
// @Router       /api/v1/devices [get]
func (h *Handler) getDevices(c *gin.Context) {
	onlineOnly := false
	if qs := c.Query("online"); qs != "" {
		v, err := strconv.ParseBool(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'online'; use true or false"})
			return
		}
		onlineOnly = v
	}
	devices := h.services.Devices(onlineOnly)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(devices),
		"devices": devices,
	})
}

// @Summary      List game configurations
// @Tags         views
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, games"
// @Router       /api/v1/games [get]
func (h *Handler) getGames(c *gin.Context) {
	games := h.services.Games()
	c.JSON(http.StatusOK, gin.H{
		"count": len(games),
		"games": games,
	})
}

// @Summary      Active runs and history
// @Tags         views
// @Produce      json
// @Success      200  {object}  service.RunsView
// @Router       /api/v1/runs [get]
func (h *Handler) getRuns(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Runs())
}

// @Summary      Paired devices
// @Tags         views
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, devices"
// @Router       /api/v1/paired [get]
func (h *Handler) getPaired(c *gin.Context) {
	paired := h.services.Paired()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(paired),
		"devices": paired,
	})
}

// @Summary      Error notifications
// @Description  Newest first, at most ten.
// @Tags         views
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, notifications"
// @Router       /api/v1/notifications [get]
func (h *Handler) getNotifications(c *gin.Context) {
	n := h.services.Notifications()
	c.JSON(http.StatusOK, gin.H{
		"count":         len(n),
		"notifications": n,
	})
}

// @Summary      Connectivity and backend health
// @Tags         views
// @Produce      json
// @Success      200  {object}  service.StatusView
// @Router       /api/v1/status [get]
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Status())
}

// @Summary      Operator alerts
// @Description  Newest first. With 'after', only alerts with a greater id, oldest first.
// @Tags         views
// @Produce      json
// @Param        after  query     int  false  "Last alert id already seen"
// @Success      200    {object}  map[string]interface{}  "count, alerts"
// @Failure      400    {object}  map[string]string
// @Router       /api/v1/alerts [get]
func (h *Handler) getAlerts(c *gin.Context) {
	alerts := h.services.Recent()
	if qs := c.Query("after"); qs != "" {
		after, err := strconv.ParseUint(qs, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'after'; use an alert id"})
			return
		}
		alerts = h.services.Since(after)
	}
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// @Summary      Last persisted view
// @Description  Post-mortem copy written by the background snapshotter.
// @Tags         views
// @Produce      json
// @Success      200  {object}  models.View
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/snapshot/last [get]
func (h *Handler) getLastSnapshot(c *gin.Context) {
	v, ok, err := h.services.Last(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadSnapshot, "snapshot_load_failed", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot saved yet"})
		return
	}
	c.JSON(http.StatusOK, v)
}
