// reconcile.go — сервис фоновой сверки бакета с таблицей files.
//
// Reconciliation сравнивает ключи объектов в S3 с путями в PostgreSQL:
//   - orphaned_object: объект в бакете без записи метаданных
//     (запись метаданных при загрузке не удалась, объект остался)
//   - missing_object: запись метаданных без объекта в бакете
//     (объект удалён в обход API)
//
// Сервис только считает и логирует расхождения, ничего не удаляя:
// решение об очистке принимает оператор по метрикам.
//
// Запускается как горутина с периодическим тикером (FM_RECONCILE_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tenderhub/file-module/internal/repository"
)

// Prometheus метрики Reconciliation
var (
	// reconcileRunsTotal — количество запусков reconciliation.
	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fm_reconcile_runs_total",
		Help: "Общее количество запусков сверки бакета с таблицей files",
	})

	// reconcileIssues — количество расхождений по типу (последний запуск).
	reconcileIssues = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fm_reconcile_issues",
		Help: "Количество расхождений бакета и таблицы files по типу",
	}, []string{"type"})

	// reconcileDurationSeconds — длительность выполнения reconciliation.
	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fm_reconcile_duration_seconds",
		Help:    "Длительность сверки бакета с таблицей files в секундах",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})
)

// ReconcileResult — итог одного цикла сверки.
type ReconcileResult struct {
	// StartedAt — время начала сверки
	StartedAt time.Time
	// CompletedAt — время завершения
	CompletedAt time.Time
	// ObjectsChecked — количество объектов в бакете
	ObjectsChecked int
	// RecordsChecked — количество записей в таблице files
	RecordsChecked int
	// OrphanedObjects — ключи объектов без метаданных
	OrphanedObjects []string
	// MissingObjects — пути записей без объектов
	MissingObjects []string
}

// ReconcileService — сервис фоновой сверки хранилища и метаданных.
type ReconcileService struct {
	store    ObjectStore
	files    repository.FileRepository
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool
	cancel    context.CancelFunc
}

// NewReconcileService создаёт сервис reconciliation.
func NewReconcileService(
	store ObjectStore,
	files repository.FileRepository,
	interval time.Duration,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		store:    store,
		files:    files,
		interval: interval,
		logger:   logger.With(slog.String("component", "reconcile")),
	}
}

// Start запускает фоновую горутину reconciliation с периодическим тикером.
func (rs *ReconcileService) Start(ctx context.Context) {
	rsCtx, cancel := context.WithCancel(ctx)
	rs.cancel = cancel

	go rs.run(rsCtx)

	rs.logger.Info("Сверка хранилища запущена",
		slog.String("interval", rs.interval.String()),
	)
}

// Stop останавливает фоновой процесс reconciliation.
func (rs *ReconcileService) Stop() {
	if rs.cancel != nil {
		rs.cancel()
	}
	rs.logger.Info("Сверка хранилища остановлена")
}

// run — основной цикл фоновой горутины.
func (rs *ReconcileService) run(ctx context.Context) {
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rs.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл сверки.
// Потокобезопасен: если сверка уже выполняется, возвращает nil, true.
//
// Возвращает:
//   - *ReconcileResult — результат сверки
//   - bool — true если сверка уже выполнялась (skipped)
func (rs *ReconcileService) RunOnce(ctx context.Context) (*ReconcileResult, bool) {
	rs.mu.Lock()
	if rs.inProcess {
		rs.mu.Unlock()
		rs.logger.Warn("Сверка уже выполняется, пропуск")
		return nil, true
	}
	rs.inProcess = true
	rs.mu.Unlock()

	defer func() {
		rs.mu.Lock()
		rs.inProcess = false
		rs.mu.Unlock()
	}()

	startedAt := time.Now().UTC()
	rs.logger.Info("Сверка начата")

	keys, err := rs.store.ListKeys(ctx)
	if err != nil {
		rs.logger.Error("Ошибка листинга бакета при сверке",
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	paths, err := rs.files.ListAllPaths(ctx)
	if err != nil {
		rs.logger.Error("Ошибка выборки путей при сверке",
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	result := diffBucketAndRegistry(keys, paths)
	result.StartedAt = startedAt
	result.CompletedAt = time.Now().UTC()
	duration := result.CompletedAt.Sub(startedAt)

	// Обновляем Prometheus метрики
	reconcileRunsTotal.Inc()
	reconcileDurationSeconds.Observe(duration.Seconds())
	reconcileIssues.WithLabelValues("orphaned_object").Set(float64(len(result.OrphanedObjects)))
	reconcileIssues.WithLabelValues("missing_object").Set(float64(len(result.MissingObjects)))

	for _, key := range result.OrphanedObjects {
		rs.logger.Warn("Объект без записи метаданных",
			slog.String("key", key),
		)
	}
	for _, p := range result.MissingObjects {
		rs.logger.Warn("Запись метаданных без объекта",
			slog.String("file_path", p),
		)
	}

	rs.logger.Info("Сверка завершена",
		slog.Int("objects_checked", result.ObjectsChecked),
		slog.Int("records_checked", result.RecordsChecked),
		slog.Int("orphaned_objects", len(result.OrphanedObjects)),
		slog.Int("missing_objects", len(result.MissingObjects)),
		slog.Duration("duration", duration),
	)

	return result, false
}

// diffBucketAndRegistry сравнивает ключи бакета с путями таблицы files.
func diffBucketAndRegistry(keys, paths []string) *ReconcileResult {
	result := &ReconcileResult{
		ObjectsChecked: len(keys),
		RecordsChecked: len(paths),
	}

	inRegistry := make(map[string]bool, len(paths))
	for _, p := range paths {
		inRegistry[p] = true
	}

	inBucket := make(map[string]bool, len(keys))
	for _, key := range keys {
		inBucket[key] = true
		if !inRegistry[key] {
			result.OrphanedObjects = append(result.OrphanedObjects, key)
		}
	}

	for _, p := range paths {
		if !inBucket[p] {
			result.MissingObjects = append(result.MissingObjects, p)
		}
	}

	return result
}
