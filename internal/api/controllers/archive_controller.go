package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twinvision/backend/internal/services"
	"github.com/twinvision/backend/internal/utils"
)

// ArchiveController serves archived alerts and prediction attempts
type ArchiveController struct {
	archiveService *services.ArchiveService
	logger         *utils.Logger
}

// NewArchiveController creates a new archive controller
func NewArchiveController(archiveService *services.ArchiveService, logger *utils.Logger) *ArchiveController {
	return &ArchiveController{
		archiveService: archiveService,
		logger:         logger.Named("archive_controller"),
	}
}

// RegisterRoutes registers the archive routes
func (c *ArchiveController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/alerts", c.ListAlerts)
	router.GET("/predictions", c.ListPredictions)
}

// ListAlerts returns archived alerts, newest first
// @Summary List archived alerts
// @Tags archive
// @Produce json
// @Param machine_id query string false "Machine ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} utils.Page
// @Failure 500 {object} utils.ErrorResponse
// @Router /archive/alerts [get]
func (c *ArchiveController) ListAlerts(ctx *gin.Context) {
	page, err := c.archiveService.ListAlerts(ctx.Query("machine_id"), utils.PageFromContext(ctx))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// ListPredictions returns archived prediction attempts, newest first
// @Summary List archived predictions
// @Tags archive
// @Produce json
// @Param machine_id query string false "Machine ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} utils.Page
// @Failure 500 {object} utils.ErrorResponse
// @Router /archive/predictions [get]
func (c *ArchiveController) ListPredictions(ctx *gin.Context) {
	page, err := c.archiveService.ListPredictions(ctx.Query("machine_id"), utils.PageFromContext(ctx))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}
	ctx.JSON(http.StatusOK, page)
}
