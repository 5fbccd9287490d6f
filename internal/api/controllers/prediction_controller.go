package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/services"
	"github.com/twinvision/backend/internal/utils"
)

// PredictionErrorResponse is the body of a failed prediction request
type PredictionErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// PredictionController proxies stateless prediction requests to the hosted model
type PredictionController struct {
	predictionService *services.PredictionService
	logger            *utils.Logger
	now               func() time.Time
}

// NewPredictionController creates a new prediction controller
func NewPredictionController(predictionService *services.PredictionService, logger *utils.Logger) *PredictionController {
	return &PredictionController{
		predictionService: predictionService,
		logger:            logger.Named("prediction_controller"),
		now:               time.Now,
	}
}

// RegisterRoutes registers the prediction routes
func (c *PredictionController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/predict", c.Predict)
}

// Predict handles a prediction request
// @Summary Predict machine failure
// @Description Sends temperature, load and speed to the hosted model and returns its structured reply
// @Tags prediction
// @Accept json
// @Produce json
// @Param request body prediction.Request true "Machine readings"
// @Success 200 {object} prediction.Prediction
// @Failure 400 {object} PredictionErrorResponse
// @Failure 500 {object} PredictionErrorResponse
// @Router /predict [post]
func (c *PredictionController) Predict(ctx *gin.Context) {
	body, err := ctx.GetRawData()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, PredictionErrorResponse{
			Message: "Invalid prediction request",
			Error:   err.Error(),
		})
		return
	}

	in, err := prediction.ParseRequest(body, c.now())
	if err != nil {
		ctx.JSON(http.StatusBadRequest, PredictionErrorResponse{
			Message: "Invalid prediction request",
			Error:   err.Error(),
		})
		return
	}

	result, err := c.predictionService.Predict(ctx.Request.Context(), in)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, PredictionErrorResponse{
			Message: "Prediction failed",
			Error:   err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, result)
}
