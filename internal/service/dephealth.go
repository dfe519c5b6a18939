// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// File Module мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - Объектное хранилище — HTTP checker к health endpoint MinIO (critical)
//   - Провайдер идентификации — HTTP checker к JWKS endpoint (critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// DephealthParams — параметры мониторинга зависимостей.
type DephealthParams struct {
	// ServiceID — имя вершины графа текущего приложения (e.g. "file-module")
	ServiceID string
	// Group — имя группы в метриках (FM_DEPHEALTH_GROUP)
	Group string
	// DB — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PGConnURL — URL подключения к PostgreSQL (для лейблов, не для подключения)
	PGConnURL string
	// S3URL — endpoint объектного хранилища
	S3URL string
	// S3HealthPath — health path MinIO (FM_S3_HEALTH_PATH)
	S3HealthPath string
	// JWKSURL — URL JWKS endpoint провайдера идентификации
	JWKSURL string
	// CheckInterval — интервал проверки зависимостей
	CheckInterval time.Duration
	// IsEntry — при true добавляет лейбл isentry=yes ко всем зависимостям
	IsEntry bool
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Использует connection pool mode для PostgreSQL: проверка выполняется
// через существующий *sql.DB (адаптер pgxpool), что позволяет обнаружить
// исчерпание пула соединений.
func NewDephealthService(params DephealthParams, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(params, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	params DephealthParams,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(params, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(
	params DephealthParams,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	withEntry := func(opts []dephealth.DependencyOption) []dephealth.DependencyOption {
		if params.IsEntry {
			return append(opts, dephealth.WithLabel("isentry", "yes"))
		}
		return opts
	}

	// Опции зависимости PostgreSQL
	pgDepOpts := withEntry([]dephealth.DependencyOption{
		dephealth.FromURL(params.PGConnURL),
		dephealth.CheckInterval(params.CheckInterval),
		dephealth.Critical(true),
	})

	// Опции зависимости объектного хранилища (MinIO liveness)
	s3DepOpts := withEntry([]dephealth.DependencyOption{
		dephealth.FromURL(params.S3URL),
		dephealth.WithHTTPHealthPath(params.S3HealthPath),
		dephealth.CheckInterval(params.CheckInterval),
		dephealth.Critical(true),
	})

	// Опции зависимости провайдера идентификации (JWKS endpoint)
	jwksDepOpts := withEntry([]dephealth.DependencyOption{
		dephealth.FromURL(params.JWKSURL),
		dephealth.CheckInterval(params.CheckInterval),
		dephealth.Critical(true),
	})

	opts := make([]dephealth.Option, 0, 4+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		// PostgreSQL — connection pool mode через существующий pgxpool
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(params.DB)), pgDepOpts...),
		// Объектное хранилище — HTTP checker к MinIO health endpoint
		dephealth.HTTP("object-storage", s3DepOpts...),
		// Провайдер идентификации — HTTP checker к JWKS endpoint
		dephealth.HTTP("identity-provider", jwksDepOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(params.ServiceID, params.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (PostgreSQL + S3 + JWKS)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
