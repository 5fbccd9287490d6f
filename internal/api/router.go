package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/twinvision/backend/internal/api/controllers"
	"github.com/twinvision/backend/internal/api/middleware"
	"github.com/twinvision/backend/internal/config"
	"github.com/twinvision/backend/internal/services"
	"github.com/twinvision/backend/internal/utils"
)

// Router manages the API routes and controllers
type Router struct {
	engine               *gin.Engine
	logger               *utils.Logger
	config               *config.Config
	serviceProvider      *services.ServiceProvider
	apiV1                *gin.RouterGroup
	simulationController *controllers.SimulationController
	predictionController *controllers.PredictionController
	streamController     *controllers.StreamController
	archiveController    *controllers.ArchiveController
}

// NewRouter creates a new Router instance
func NewRouter(
	config *config.Config,
	logger *utils.Logger,
	serviceProvider *services.ServiceProvider,
) *Router {
	// Set Gin mode based on environment
	if config.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger and recovery middleware
	engine.Use(gin.Recovery())
	engine.Use(middleware.LoggingMiddleware(logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Origin"}
	engine.Use(cors.New(corsConfig))

	return &Router{
		engine:          engine,
		logger:          logger.Named("router"),
		config:          config,
		serviceProvider: serviceProvider,
	}
}

// SetupRoutes configures all API routes
func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"clients": r.serviceProvider.GetStreamService().ClientCount(),
		})
	})

	// Stateless prediction proxy used by the dashboard
	r.predictionController = controllers.NewPredictionController(r.serviceProvider.GetPredictionService(), r.logger)
	r.predictionController.RegisterRoutes(r.engine.Group("/api"))

	// API version group - session routes are under /api/v1
	r.apiV1 = r.engine.Group("/api/v1")

	simulationRoutes := r.apiV1.Group("/simulation")
	r.simulationController = controllers.NewSimulationController(r.serviceProvider.GetSimulationService(), r.logger)
	r.simulationController.RegisterRoutes(simulationRoutes)
	r.streamController = controllers.NewStreamController(r.serviceProvider.GetStreamService(), r.logger)
	r.streamController.RegisterRoutes(simulationRoutes)

	// Archive routes only exist when the archive database is enabled
	if archiveService := r.serviceProvider.GetArchiveService(); archiveService != nil {
		r.archiveController = controllers.NewArchiveController(archiveService, r.logger)
		r.archiveController.RegisterRoutes(r.apiV1.Group("/archive"))
	}

	// Add Swagger documentation if not in production
	if !r.config.Server.IsProduction() {
		r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.logger.Info("API routes setup completed")
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
