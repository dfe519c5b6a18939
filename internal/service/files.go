// files.go — сервис выдачи, удаления и подписи URL файлов.
// Контроль доступа: документы тендеров (tender_doc) публичны,
// остальные файлы видны и управляемы только владельцем.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tenderhub/file-module/internal/domain/model"
	"github.com/tenderhub/file-module/internal/repository"
)

// Ошибки сервисного слоя.
var (
	// ErrForbidden — субъект не является владельцем файла.
	ErrForbidden = errors.New("доступ запрещён: не владелец файла")
)

// Prometheus-метрики операций с файлами.
var (
	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_deletes_total",
		Help: "Общее количество удалений файлов по результату.",
	}, []string{"status"})

	signedURLsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_signed_urls_total",
		Help: "Общее количество выданных подписанных URL по результату.",
	}, []string{"status"})
)

// SignedURL — подписанный URL с временем истечения.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// FileDescriptor — запись файла, обогащённая подписанным URL.
// SignedURL == nil, если подпись не удалась — клиент может запросить
// URL повторно через /files/signed-url.
type FileDescriptor struct {
	File      *model.FileRecord
	SignedURL *string
	ExpiresAt *time.Time
}

// presignRecords подписывает URL для каждой записи.
// Ошибка подписи одного файла не валит весь список: такой файл
// возвращается без URL.
func presignRecords(ctx context.Context, store ObjectStore, logger *slog.Logger, records []*model.FileRecord) []FileDescriptor {
	out := make([]FileDescriptor, 0, len(records))
	for _, rec := range records {
		desc := FileDescriptor{File: rec}

		url, expiresAt, err := store.SignedGetURL(ctx, rec.FilePath, 0)
		if err != nil {
			logger.Warn("Не удалось подписать URL файла",
				slog.String("file_path", rec.FilePath),
				slog.String("error", err.Error()),
			)
		} else {
			desc.SignedURL = &url
			desc.ExpiresAt = &expiresAt
		}

		out = append(out, desc)
	}
	return out
}

// FileService — операции чтения и удаления файлов.
type FileService struct {
	store  ObjectStore
	files  repository.FileRepository
	cache  *CacheService
	logger *slog.Logger
}

// NewFileService создаёт сервис файлов.
func NewFileService(
	store ObjectStore,
	files repository.FileRepository,
	cache *CacheService,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		store:  store,
		files:  files,
		cache:  cache,
		logger: logger.With(slog.String("component", "file_service")),
	}
}

// ListByLinked возвращает файлы по привязке с учётом прав доступа:
// tender_doc — публичные (без фильтра по владельцу),
// остальные сущности — только файлы запрашивающего субъекта.
// Каждая запись подписывается заново: URL нигде не кэшируются.
func (s *FileService) ListByLinked(ctx context.Context, subject, linkedEntity, linkedID string) ([]FileDescriptor, error) {
	var ownerFilter *string
	if linkedEntity != model.LinkTenderDoc {
		ownerFilter = &subject
	}

	records, err := s.files.ListByLinked(ctx, linkedEntity, linkedID, ownerFilter)
	if err != nil {
		return nil, err
	}
	return presignRecords(ctx, s.store, s.logger, records), nil
}

// ListByOwner возвращает все файлы субъекта, свежие первыми.
func (s *FileService) ListByOwner(ctx context.Context, subject string) ([]FileDescriptor, error) {
	records, err := s.files.ListByOwner(ctx, subject)
	if err != nil {
		return nil, err
	}
	return presignRecords(ctx, s.store, s.logger, records), nil
}

// Delete удаляет файл: сначала объект из хранилища, затем метаданные.
// Порядок выбран намеренно: если удаление метаданных не удалось,
// остаётся запись без объекта — её подберёт фоновая сверка; обратный
// порядок оставил бы в бакете невидимый объект-сироту.
//
// Возвращает repository.ErrNotFound, если записи нет,
// ErrForbidden — если субъект не владелец.
func (s *FileService) Delete(ctx context.Context, subject, filePath string) error {
	rec, err := s.getRecord(ctx, filePath)
	if err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		return err
	}

	if !rec.OwnedBy(subject) {
		deletesTotal.WithLabelValues("forbidden").Inc()
		return ErrForbidden
	}

	// Сначала объект
	if err := s.store.Remove(ctx, filePath); err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка удаления объекта",
			slog.String("file_path", filePath),
			slog.String("error", err.Error()),
		)
		return err
	}

	// Затем метаданные
	if err := s.files.DeleteByPath(ctx, filePath); err != nil && !errors.Is(err, repository.ErrNotFound) {
		deletesTotal.WithLabelValues("error").Inc()
		s.logger.Error("Объект удалён, но метаданные остались",
			slog.String("file_path", filePath),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.cache.Delete(filePath)
	deletesTotal.WithLabelValues("success").Inc()

	s.logger.Info("Файл удалён",
		slog.String("file_path", filePath),
		slog.String("owner", subject),
	)
	return nil
}

// SignedURL возвращает подписанный GET-URL на файл.
// Публичные файлы (tender_doc) доступны любому аутентифицированному
// субъекту, остальные — только владельцу.
// ttl <= 0 — TTL по умолчанию из конфигурации хранилища.
func (s *FileService) SignedURL(ctx context.Context, subject, filePath string, ttl time.Duration) (*SignedURL, error) {
	rec, err := s.getRecord(ctx, filePath)
	if err != nil {
		signedURLsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if !rec.IsPublic() && !rec.OwnedBy(subject) {
		signedURLsTotal.WithLabelValues("forbidden").Inc()
		return nil, ErrForbidden
	}

	url, expiresAt, err := s.store.SignedGetURL(ctx, filePath, ttl)
	if err != nil {
		signedURLsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка подписи URL",
			slog.String("file_path", filePath),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	signedURLsTotal.WithLabelValues("success").Inc()
	return &SignedURL{URL: url, ExpiresAt: expiresAt}, nil
}

// getRecord возвращает метаданные файла: сперва из кэша, затем из БД.
func (s *FileService) getRecord(ctx context.Context, filePath string) (*model.FileRecord, error) {
	if rec, ok := s.cache.Get(filePath); ok {
		return rec, nil
	}

	rec, err := s.files.GetByPath(ctx, filePath)
	if err != nil {
		return nil, err
	}

	s.cache.Set(filePath, rec)
	return rec, nil
}
