package handlers

import (
	"errors"
	"net/http"

	"benchmark_dashboard/internal/gateway"
	"benchmark_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// Request DTOs. Command effects arrive through the push stream, so responses
// only acknowledge that the backend accepted the command.
type pairRequest struct {
	DeviceID string `json:"device_id" binding:"required" example:"sut-7f3a"`
	Nickname string `json:"nickname,omitempty" example:"bench-rig-2"`
}

type nicknameRequest struct {
	Nickname string `json:"nickname" binding:"required" example:"bench-rig-2"`
}

// Validation of the selection is left to the command layer so the operator
// sees the same alert as any other client.
type startRunsRequest struct {
	SutIP      string   `json:"sut_ip" example:"10.0.0.5"`
	Games      []string `json:"games" example:"cs2,f1_24"`
	Iterations int      `json:"iterations" example:"3"`
}

type startRunRequest struct {
	SutIP      string `json:"sut_ip" example:"10.0.0.5"`
	GameName   string `json:"game_name" example:"cs2"`
	Iterations int    `json:"iterations" example:"3"`
}

// commandStatus maps a command failure onto an HTTP status.
func commandStatus(err error) int {
	if errors.Is(err, service.ErrInvalidParams) || errors.Is(err, gateway.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	var ce *gateway.CommandError
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(ce, gateway.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(ce, gateway.ErrUnreachable):
		return http.StatusBadGateway
	case errors.Is(ce, gateway.ErrRejected):
		if ce.StatusCode >= 400 && ce.StatusCode < 500 {
			return http.StatusConflict
		}
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

// commandMessage prefers the operator-facing reason carried by the gateway.
func commandMessage(err error) string {
	var ce *gateway.CommandError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return err.Error()
}

func (h *Handler) commandFailed(c *gin.Context, name string, err error) {
	code := commandStatus(err)
	if h.log != nil {
		if code == http.StatusBadRequest {
			h.log.Infow("command_rejected_locally", "command", name, "err", err)
		} else {
			h.log.Warnw("command_failed", "command", name, "operator_id", operatorID(c), "err", err)
		}
	}
	c.JSON(code, gin.H{"error": commandMessage(err)})
}

func (h *Handler) accepted(c *gin.Context, name string, extra gin.H) {
	if h.log != nil {
		h.log.Infow("command_accepted", "command", name, "operator_id", operatorID(c))
	}
	resp := gin.H{"status": statusAccepted}
	for k, v := range extra {
		resp[k] = v
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Pair SUT
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        body  body      pairRequest  true  "Device to pair"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      504   {object}  map[string]string
// @Router       /api/v1/commands/pair [post]
// @Security     BearerAuth
func (h *Handler) pairDevice(c *gin.Context) {
	var req pairRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	err := h.services.Pair(c.Request.Context(), service.PairParams{DeviceID: req.DeviceID, Nickname: req.Nickname})
	if err != nil {
		h.commandFailed(c, gateway.CmdPair, err)
		return
	}
	h.accepted(c, gateway.CmdPair, gin.H{"device_id": req.DeviceID})
}

// @Summary      Unpair SUT
// @Tags         commands
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      504  {object}  map[string]string
// @Router       /api/v1/commands/unpair/{id} [post]
// @Security     BearerAuth
func (h *Handler) unpairDevice(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Unpair(c.Request.Context(), id); err != nil {
		h.commandFailed(c, gateway.CmdUnpair, err)
		return
	}
	h.accepted(c, gateway.CmdUnpair, gin.H{"device_id": id})
}

// @Summary      Rename paired SUT
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Device id"
// @Param        body  body      nicknameRequest  true  "New nickname"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/commands/nickname/{id} [put]
// @Security     BearerAuth
func (h *Handler) renameDevice(c *gin.Context) {
	var req nicknameRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	id := c.Param("id")
	if err := h.services.Rename(c.Request.Context(), id, req.Nickname); err != nil {
		h.commandFailed(c, gateway.CmdRename, err)
		return
	}
	h.accepted(c, gateway.CmdRename, gin.H{"device_id": id, "nickname": req.Nickname})
}

// @Summary      Trigger network scan
// @Tags         commands
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/commands/scan [post]
// @Security     BearerAuth
func (h *Handler) scanNetwork(c *gin.Context) {
	if err := h.services.ScanNetwork(c.Request.Context()); err != nil {
		h.commandFailed(c, gateway.CmdScanNetwork, err)
		return
	}
	h.accepted(c, gateway.CmdScanNetwork, nil)
}

// @Summary      Start automation runs
// @Description  One run per game on the same SUT. A partial start answers 207 with the per-game result.
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        body  body      startRunsRequest  true  "Selection"
// @Success      200   {object}  benchmark_dashboard.StartRunsResult
// @Success      207   {object}  map[string]interface{}  "error, result"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/v1/commands/runs [post]
// @Security     BearerAuth
func (h *Handler) startRuns(c *gin.Context) {
	var req startRunsRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	res, err := h.services.StartRuns(c.Request.Context(), service.StartRunParams{
		SutIP:      req.SutIP,
		Games:      req.Games,
		Iterations: req.Iterations,
	})
	if err == nil {
		if h.log != nil {
			h.log.Infow("command_accepted", "command", gateway.CmdStartRuns, "operator_id", operatorID(c), "started", res.Started)
		}
		c.JSON(http.StatusOK, res)
		return
	}

	code := commandStatus(err)
	if res.Started > 0 {
		code = http.StatusMultiStatus
	}
	if h.log != nil {
		h.log.Warnw("command_failed", "command", gateway.CmdStartRuns, "operator_id", operatorID(c),
			"started", res.Started, "requested", res.Requested, "err", err)
	}
	c.JSON(code, gin.H{"error": commandMessage(err), "result": res})
}

// @Summary      Start one automation run
// @Description  Only an explicit success status from the backend counts as started.
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        body  body      startRunRequest  true  "Run"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/commands/run [post]
// @Security     BearerAuth
func (h *Handler) startRun(c *gin.Context) {
	var req startRunRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	runID, err := h.services.StartRun(c.Request.Context(), service.SingleRunParams{
		SutIP:      req.SutIP,
		GameName:   req.GameName,
		Iterations: req.Iterations,
	})
	if err != nil {
		h.commandFailed(c, gateway.CmdStartRun, err)
		return
	}
	h.accepted(c, gateway.CmdStartRun, gin.H{"run_id": runID})
}

// @Summary      Stop run
// @Tags         commands
// @Produce      json
// @Param        id   path      string  true  "Run id"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/commands/runs/{id}/stop [post]
// @Security     BearerAuth
func (h *Handler) stopRun(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.StopRun(c.Request.Context(), id); err != nil {
		h.commandFailed(c, gateway.CmdStopRun, err)
		return
	}
	h.accepted(c, gateway.CmdStopRun, gin.H{"run_id": id})
}

// @Summary      Reload game configurations
// @Tags         commands
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/commands/games/reload [post]
// @Security     BearerAuth
func (h *Handler) reloadGames(c *gin.Context) {
	if err := h.services.ReloadGameConfigs(c.Request.Context()); err != nil {
		h.commandFailed(c, gateway.CmdReloadGames, err)
		return
	}
	h.accepted(c, gateway.CmdReloadGames, nil)
}

// @Summary      Device history
// @Tags         commands
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  map[string]interface{}  "count, history"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/commands/history/{id} [get]
// @Security     BearerAuth
func (h *Handler) deviceHistory(c *gin.Context) {
	history, err := h.services.DeviceHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.commandFailed(c, gateway.QueryHistory, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(history),
		"history": history,
	})
}
