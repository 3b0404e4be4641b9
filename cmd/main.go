package main

import (
	"access_service/internal/config"
	"access_service/internal/database/mongo"
	"access_service/internal/events"
	"access_service/internal/handlers"
	"access_service/internal/service"
	"access_service/pkg/discovery"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/evolvia", "log", "access_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func rabbitURI() string {
	cfg := config.ServiceConfig
	if cfg.RabbitMQUser == "" || cfg.RabbitMQPort == "" {
		return ""
	}
	return fmt.Sprintf("amqp://%s:%s@rabbitmq:%s/", cfg.RabbitMQUser, cfg.RabbitMQPassword, cfg.RabbitMQPort)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	publisher, err := events.NewEventPublisher(rabbitURI())
	if err != nil {
		log.Printf("Warning: event publisher unavailable: %v", err)
		publisher, _ = events.NewEventPublisher("")
	}
	defer publisher.Close()

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	if uri := rabbitURI(); uri != "" {
		consumer, err := events.NewEventConsumer(uri)
		if err != nil {
			log.Printf("Warning: event consumer unavailable: %v", err)
		} else {
			defer consumer.Close()
			if err := consumer.Start(consumerCtx); err != nil {
				log.Printf("Warning: event consumer failed to start: %v", err)
			}
		}
	}

	auditService := service.NewAuditService(publisher)
	accessService := service.NewAccessService(auditService)
	levelService := service.NewLevelService(auditService)
	userService := service.NewUserService(auditService)
	permissionService := service.NewPermissionService()
	jwtService := service.NewJWTService()

	app := fiber.New(fiber.Config{})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(200).SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.NewAccessHandler(accessService, auditService, jwtService).RegisterRoutes(app)
	handlers.NewLevelHandler(levelService, auditService, jwtService).RegisterRoutes(app)
	handlers.NewUserHandler(userService, jwtService).RegisterRoutes(app)
	handlers.NewPermissionHandler(permissionService).RegisterRoutes(app)

	if err := discovery.ServiceDiscovery.Register(); err != nil {
		log.Printf("Warning: Consul registration failed: %v", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", config.ServiceConfig.Port)
		if err := app.Listen(":" + config.ServiceConfig.Port); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	if err := discovery.ServiceDiscovery.Deregister(); err != nil {
		log.Printf("Error deregistering from Consul: %v", err)
	}

	consumerCancel()

	if err := app.Shutdown(); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	mongo.DisconnectMongo()

	<-doneChan
	log.Println("Server exited, goodbye!")
}
