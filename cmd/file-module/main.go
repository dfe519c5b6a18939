// Точка входа File Module — модуля файлового pipeline платформы тендеров.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/tenderhub/file-module/internal/api/handlers"
	"github.com/tenderhub/file-module/internal/api/middleware"
	"github.com/tenderhub/file-module/internal/config"
	"github.com/tenderhub/file-module/internal/database"
	"github.com/tenderhub/file-module/internal/objstore"
	"github.com/tenderhub/file-module/internal/repository"
	"github.com/tenderhub/file-module/internal/server"
	"github.com/tenderhub/file-module/internal/service"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("File Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("s3_endpoint", cfg.S3Endpoint),
		slog.String("s3_bucket", cfg.S3Bucket),
	)

	ctx := context.Background()

	// --- Инициализация компонентов ---

	// 1. Миграции схемы БД
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка применения миграций", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Пул подключений PostgreSQL
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 3. Объектное хранилище (S3-совместимое)
	store, err := objstore.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации объектного хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Репозитории и кэш метаданных
	fileRepo := repository.NewFileRepository(pool)
	tenderRepo := repository.NewTenderRepository(pool)
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)

	// 5. Сервисы
	uploadSvc := service.NewUploadService(cfg, store, fileRepo, cache, logger)
	fileSvc := service.NewFileService(store, fileRepo, cache, logger)
	tenderSvc := service.NewTenderService(tenderRepo, fileRepo, store, logger)

	// 6. Фоновая сверка хранилища и метаданных
	var reconcileSvc *service.ReconcileService
	if cfg.ReconcileInterval > 0 {
		reconcileSvc = service.NewReconcileService(store, fileRepo, cfg.ReconcileInterval, logger)
		reconcileSvc.Start(ctx)
	} else {
		logger.Info("Фоновая сверка отключена (FM_RECONCILE_INTERVAL=0)")
	}

	// 7. topologymetrics — мониторинг зависимостей.
	// SQL checker работает через адаптер stdlib поверх существующего pgxpool.
	db := stdlib.OpenDBFromPool(pool)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthParams{
		ServiceID:     "file-module",
		Group:         cfg.DephealthGroup,
		DB:            db,
		PGConnURL:     cfg.DatabaseDSN(),
		S3URL:         cfg.S3Endpoint,
		S3HealthPath:  cfg.S3HealthPath,
		JWKSURL:       cfg.JWKSURL,
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
			dephealthSvc = nil
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 8. JWT middleware
	var authMiddleware func(http.Handler) http.Handler
	jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
		JWKSURL:         cfg.JWKSURL,
		CACertPath:      cfg.JWKSCACertPath,
		Issuer:          cfg.JWTIssuer,
		ClientTimeout:   cfg.JWKSClientTimeout,
		RefreshInterval: cfg.JWKSRefreshInterval,
		JWTLeeway:       cfg.JWTLeeway,
	}, logger)
	if err != nil {
		// JWKS недоступен — запускаем без аутентификации (для разработки)
		logger.Warn("JWT JWKS недоступен, запуск без аутентификации",
			slog.String("jwks_url", cfg.JWKSURL),
			slog.String("error", err.Error()),
		)
	} else {
		authMiddleware = jwtAuth.Middleware()
		logger.Info("JWT аутентификация настроена",
			slog.String("jwks_url", cfg.JWKSURL),
		)
	}

	// 9. Handlers
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		store,
		handlers.NewHTTPChecker(cfg.JWKSURL, cfg.JWKSClientTimeout),
	)
	apiHandler := handlers.NewAPIHandler(cfg, healthHandler, uploadSvc, fileSvc, tenderSvc, logger)

	// 10. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, authMiddleware)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	if reconcileSvc != nil {
		reconcileSvc.Stop()
	}
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("File Module остановлен")
}
