package main

import (
	"log"
	"time"

	"iot-fleet-backend/internal/config"
	"iot-fleet-backend/internal/database"
	"iot-fleet-backend/internal/deploy"
	"iot-fleet-backend/internal/handler"
	"iot-fleet-backend/internal/kv"
	"iot-fleet-backend/internal/middleware"
	"iot-fleet-backend/internal/repository"
	"iot-fleet-backend/internal/service"
	"iot-fleet-backend/internal/tail"
	"iot-fleet-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log.Println("Configuration loaded successfully")

	// 2. Initialize JWT utilities with config
	utils.InitJWT(cfg.JWT.AccessSecret, cfg.JWT.AccessTokenExpiry)

	// 3. Initialize database connection
	db := database.Connect(cfg)

	// 4. Initialize repositories and stores
	deviceRepo := repository.NewDeviceRepo(db)
	buildLogRepo := repository.NewBuildLogRepo(db)
	apiKeyRepo := repository.NewAPIKeyRepo(db)
	auditRepo := repository.NewAuditRepo(db)
	ephemeral := kv.NewGormStore(db)

	// 5. Initialize collaborators
	resolver := deploy.NewFilesystemResolver(cfg.Deploy.Root)
	provisioner := service.NewMosquittoProvisioner(cfg.Deploy.MQTTPasswordFile)

	// 6. Initialize services
	registrationService := service.NewRegistrationService(
		deviceRepo, apiKeyRepo, auditRepo, resolver, provisioner,
		cfg.Ephemeral.ConflictRetries,
	)
	ottService := service.NewOTTService(ephemeral, cfg.Ephemeral.OTTExpiry)
	firmwareService := service.NewFirmwareService(
		deviceRepo, apiKeyRepo, auditRepo, resolver, ephemeral, ottService,
		cfg.Deploy.Platforms, cfg.Ephemeral.OTTRedeemedExpiry,
	)
	buildLogService := service.NewBuildLogService(buildLogRepo, resolver, cfg.Ephemeral.ConflictRetries)

	// 7. Initialize the tail registry
	tails := tail.NewRegistry(buildLogRepo, buildLogService.LogFilePath, 250*time.Millisecond)

	// 8. Setup Gin mode and router
	gin.SetMode(cfg.Server.GinMode)
	r := gin.Default()

	// Apply CORS middleware
	r.Use(middleware.CORS(cfg))

	// 9. Register handlers
	deviceHandler := handler.NewDeviceHandler(registrationService, firmwareService)
	buildLogHandler := handler.NewBuildLogHandler(buildLogService, tails)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyRepo, auditRepo)
	auditHandler := handler.NewAuditHandler(auditRepo)

	// 10. Define routes
	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"status":  "healthy",
			"service": "iot-fleet-backend",
		})
	})

	// Device routes (API-key authenticated inside the services)
	device := r.Group("/device")
	{
		device.POST("/register", deviceHandler.Register)
		device.POST("/firmware", deviceHandler.Firmware)
		device.GET("/firmware/ott", deviceHandler.OTTUpdate)
	}

	// Operator routes (JWT authenticated)
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.PUT("/device", deviceHandler.Edit)
		api.GET("/build/logs", buildLogHandler.List)
		api.POST("/build/log", buildLogHandler.Append)
		api.GET("/build/log/:build_id", buildLogHandler.Fetch)
		api.GET("/build/log/:build_id/tail", buildLogHandler.Tail)
		api.POST("/apikeys", apiKeyHandler.Create)
		api.GET("/apikeys", apiKeyHandler.List)
		api.DELETE("/apikeys", apiKeyHandler.Revoke)
		api.GET("/audit", auditHandler.Fetch)
	}

	// 11. Start the server
	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
