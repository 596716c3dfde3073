package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/cat-engine/internal/config"
	"github.com/yourusername/cat-engine/internal/handler"
	"github.com/yourusername/cat-engine/internal/middleware"
	pgRepo "github.com/yourusername/cat-engine/internal/repository/postgres"
	redisRepo "github.com/yourusername/cat-engine/internal/repository/redis"
	"github.com/yourusername/cat-engine/internal/service"
	"github.com/yourusername/cat-engine/internal/service/catengine"
	"github.com/yourusername/cat-engine/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}

	// Инициализируем репозитории
	poolRepo := pgRepo.NewPoolRepo(db)
	itemRepo := pgRepo.NewItemRepo(db)
	sessionRepo := pgRepo.NewSessionRepo(db)
	reportRepo := pgRepo.NewReportRepo(db)

	exposureStore, err := redisRepo.NewExposureStore(redisClient)
	if err != nil {
		log.Printf("Failed to create exposure store: %v", err)
		os.Exit(1)
	}

	// Конфигурация адаптивного движка: умолчания, поверх — настройки из конфига
	engineCfg := catengine.DefaultConfig()
	if cfg.Engine.MaxExposureRate > 0 {
		engineCfg.MaxExposureRate = cfg.Engine.MaxExposureRate
	}
	if cfg.Engine.TopicPenaltyWeight > 0 {
		engineCfg.TopicPenaltyWeight = cfg.Engine.TopicPenaltyWeight
	}
	if cfg.Engine.ExposurePenaltyWeight > 0 {
		engineCfg.ExposurePenaltyWeight = cfg.Engine.ExposurePenaltyWeight
	}
	if cfg.Engine.DefaultMaxQuestions > 0 {
		engineCfg.DefaultSession.MaxQuestions = cfg.Engine.DefaultMaxQuestions
	}
	if cfg.Engine.DefaultMinQuestions > 0 {
		engineCfg.DefaultSession.MinQuestions = cfg.Engine.DefaultMinQuestions
	}
	if cfg.Engine.DefaultSETarget > 0 {
		engineCfg.DefaultSession.SETarget = cfg.Engine.DefaultSETarget
	}

	engine := catengine.NewEngine(engineCfg, &catengine.Dependencies{
		ItemRepo: itemRepo,
		Exposure: exposureStore,
		RefDist:  catengine.StandardNormal{},
	})

	// Инициализируем сервисы
	itemService := service.NewItemService(itemRepo, poolRepo)
	sessionService := service.NewSessionService(engine, poolRepo, sessionRepo, itemRepo)
	reportService := service.NewReportService(engine, sessionRepo, itemRepo, reportRepo)

	// Инициализируем обработчики
	itemHandler := handler.NewItemHandler(itemService)
	sessionHandler := handler.NewSessionHandler(sessionService, reportService)

	isProduction := os.Getenv("GIN_MODE") == "release"

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		// Production: не доверять прокси-заголовкам
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		// Development: доверяем localhost
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8000", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		pools := api.Group("/pools")
		{
			pools.POST("", itemHandler.CreatePool)
			pools.GET("", itemHandler.ListPools)

			poolWithID := pools.Group("/:id")
			poolWithID.Use(middleware.ExtractUintParam("id", "poolID"))
			{
				poolWithID.GET("", itemHandler.GetPool)
				poolWithID.POST("/items/import", itemHandler.ImportItems)
			}
		}

		items := api.Group("/items")
		{
			items.POST("", itemHandler.CreateItem)

			itemWithID := items.Group("/:id")
			itemWithID.Use(middleware.ExtractUintParam("id", "itemID"))
			{
				itemWithID.GET("", itemHandler.GetItem)
				itemWithID.PUT("", itemHandler.UpdateItem)
				itemWithID.DELETE("", itemHandler.RetireItem)
			}
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.StartSession)

			sessionWithID := sessions.Group("/:id")
			sessionWithID.Use(middleware.ExtractUUIDParam("id", "sessionID"))
			{
				sessionWithID.GET("", sessionHandler.GetSession)
				sessionWithID.POST("/responses", sessionHandler.SubmitResponse)
				sessionWithID.POST("/abandon", sessionHandler.AbandonSession)
				sessionWithID.GET("/report", sessionHandler.GetReport)
			}
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ждём сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
