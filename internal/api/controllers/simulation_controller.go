package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twinvision/backend/internal/services"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// SimulationController handles HTTP requests for the simulation session
type SimulationController struct {
	simulationService *services.SimulationService
	logger            *utils.Logger
}

// NewSimulationController creates a new simulation controller
func NewSimulationController(simulationService *services.SimulationService, logger *utils.Logger) *SimulationController {
	return &SimulationController{
		simulationService: simulationService,
		logger:            logger.Named("simulation_controller"),
	}
}

// RegisterRoutes registers the simulation routes
func (c *SimulationController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/state", c.GetState)
	router.POST("/start", c.Start)
	router.POST("/stop", c.Stop)
	router.POST("/reset", c.Reset)
	router.POST("/step", c.Step)
	router.GET("/history", c.GetHistory)
	router.GET("/alerts", c.GetAlerts)
	router.PUT("/replay", c.SetReplay)
	router.GET("/prediction", c.GetPrediction)

	// Machine routes
	router.GET("/machines", c.ListMachines)
	router.PUT("/machines/:id/speed", c.SetSpeed)
	router.POST("/machines/:id/predict", c.PredictMachine)
}

// SetSpeedRequest defines the request body for changing a machine's speed
type SetSpeedRequest struct {
	Speed *float64 `json:"speed" binding:"required"`
}

// ReplayRequest selects a history entry; a null or missing index returns to live mode
type ReplayRequest struct {
	Index *int `json:"index" binding:"omitempty,gte=0"`
}

// GetState returns the displayed snapshot
// @Summary Get simulation state
// @Description Returns the live snapshot, or the selected history entry in replay mode
// @Tags simulation
// @Produce json
// @Success 200 {object} simulation.Snapshot
// @Router /simulation/state [get]
func (c *SimulationController) GetState(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.simulationService.View())
}

// Start sets the simulation running
// @Summary Start the simulation
// @Tags simulation
// @Produce json
// @Success 200 {object} simulation.Snapshot
// @Failure 503 {object} utils.ErrorResponse
// @Router /simulation/start [post]
func (c *SimulationController) Start(ctx *gin.Context) {
	if err := c.simulationService.Start(); err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}
	ctx.JSON(http.StatusOK, c.simulationService.View())
}

// Stop halts the simulation
// @Summary Stop the simulation
// @Tags simulation
// @Produce json
// @Success 200 {object} simulation.Snapshot
// @Router /simulation/stop [post]
func (c *SimulationController) Stop(ctx *gin.Context) {
	c.simulationService.Stop()
	ctx.JSON(http.StatusOK, c.simulationService.View())
}

// Reset restores the initial state
// @Summary Reset the simulation
// @Description Restores the initial readings and clears alerts, history, replay and prediction
// @Tags simulation
// @Produce json
// @Success 200 {object} simulation.Snapshot
// @Router /simulation/reset [post]
func (c *SimulationController) Reset(ctx *gin.Context) {
	c.simulationService.Reset()
	ctx.JSON(http.StatusOK, c.simulationService.View())
}

// Step advances exactly one tick
// @Summary Advance one tick
// @Tags simulation
// @Produce json
// @Success 200 {object} simulation.TickEvent
// @Router /simulation/step [post]
func (c *SimulationController) Step(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.simulationService.Step())
}

// ListMachines returns the machine registry with live readings
// @Summary List machines
// @Tags simulation
// @Produce json
// @Success 200 {array} simulation.Machine
// @Router /simulation/machines [get]
func (c *SimulationController) ListMachines(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.simulationService.Machines())
}

// SetSpeed changes one machine's speed
// @Summary Set machine speed
// @Description Sets a machine's speed while the simulation runs; the value is clamped to [0, 4000]
// @Tags simulation
// @Accept json
// @Produce json
// @Param id path string true "Machine ID"
// @Param request body SetSpeedRequest true "Speed"
// @Success 200 {object} simulation.Machine
// @Failure 400 {object} utils.ValidationErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /simulation/machines/{id}/speed [put]
func (c *SimulationController) SetSpeed(ctx *gin.Context) {
	var req SetSpeedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	machine, err := c.simulationService.SetSpeed(ctx.Param("id"), *req.Speed)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, machine)
}

// GetHistory returns the snapshot log
// @Summary Get history
// @Description Returns the recorded snapshots, oldest first
// @Tags simulation
// @Produce json
// @Success 200 {array} simulation.HistoryEntry
// @Router /simulation/history [get]
func (c *SimulationController) GetHistory(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.simulationService.History())
}

// GetAlerts returns the live alert list
// @Summary Get live alerts
// @Tags simulation
// @Produce json
// @Success 200 {array} simulation.Alert
// @Router /simulation/alerts [get]
func (c *SimulationController) GetAlerts(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.simulationService.Alerts())
}

// SetReplay enters, moves or leaves replay mode
// @Summary Select replay entry
// @Tags simulation
// @Accept json
// @Produce json
// @Param request body ReplayRequest true "History index, null for live mode"
// @Success 200 {object} simulation.Snapshot
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /simulation/replay [put]
func (c *SimulationController) SetReplay(ctx *gin.Context) {
	var req ReplayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	if err := c.simulationService.SetReplayIndex(req.Index); err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, c.simulationService.View())
}

// PredictMachine requests a failure prediction from a machine's live readings
// @Summary Predict machine failure
// @Tags simulation
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {object} prediction.Prediction
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 500 {object} PredictionErrorResponse
// @Router /simulation/machines/{id}/predict [post]
func (c *SimulationController) PredictMachine(ctx *gin.Context) {
	machineID := ctx.Param("id")

	result, err := c.simulationService.Predict(ctx.Request.Context(), machineID)
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, result)
	case errors.Is(err, utils.ErrNotFound), errors.Is(err, utils.ErrConflict):
		utils.HandleError(ctx, err, c.logger)
	default:
		c.logger.Error("Machine prediction failed", zap.String("machine_id", machineID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, PredictionErrorResponse{
			Message: "Prediction failed",
			Error:   err.Error(),
		})
	}
}

// GetPrediction returns the pending flag and the current prediction
// @Summary Get prediction state
// @Tags simulation
// @Produce json
// @Success 200 {object} prediction.State
// @Router /simulation/prediction [get]
func (c *SimulationController) GetPrediction(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.simulationService.PredictionState())
}
