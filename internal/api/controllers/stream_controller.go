package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/twinvision/backend/internal/services"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// StreamController upgrades clients to the live event stream
type StreamController struct {
	streamService *services.StreamService
	upgrader      websocket.Upgrader
	logger        *utils.Logger
}

// NewStreamController creates a new stream controller
func NewStreamController(streamService *services.StreamService, logger *utils.Logger) *StreamController {
	return &StreamController{
		streamService: streamService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard may be served from another origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Named("stream_controller"),
	}
}

// RegisterRoutes registers the stream route
func (c *StreamController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stream", c.Stream)
}

// Stream upgrades the connection to a websocket
// @Summary Live event stream
// @Description WebSocket stream of tick snapshots, alerts, control changes and prediction events
// @Tags simulation
// @Router /simulation/stream [get]
func (c *StreamController) Stream(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		c.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c.streamService.RegisterClient(conn)
	c.logger.Debug("Stream client connected", zap.String("remote", conn.RemoteAddr().String()))
}
