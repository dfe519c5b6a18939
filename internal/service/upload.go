// upload.go — сервис загрузки файлов.
// Порядок: валидация → запись объекта в S3 → запись метаданных в PostgreSQL.
// При ошибке метаданных объект остаётся в бакете как сирота: его находит
// сервис сверки, а компенсирующее удаление добавило бы второй сценарий
// отказа в уже сломанный запрос.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tenderhub/file-module/internal/config"
	"github.com/tenderhub/file-module/internal/domain/model"
	"github.com/tenderhub/file-module/internal/repository"
)

// Prometheus-метрики пайплайна загрузки.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_uploads_total",
		Help: "Общее количество загрузок файлов по результату.",
	}, []string{"status"})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fm_upload_bytes_total",
		Help: "Суммарный объём загруженных файлов в байтах.",
	})
)

// UploadParams — параметры загрузки одного файла.
type UploadParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// Filename — оригинальное имя файла
	Filename string
	// ContentType — MIME-тип из multipart part
	ContentType string
	// Size — размер файла в байтах
	Size int64
	// OwnerID — идентификатор владельца (sub из JWT)
	OwnerID string
	// LinkedEntity — тип привязанной сущности
	LinkedEntity string
	// LinkedID — идентификатор привязанной сущности
	LinkedID string
}

// UploadError — ошибка загрузки с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Message    string
}

func (e *UploadError) Error() string {
	return e.Message
}

// UploadService — сервис загрузки файлов.
type UploadService struct {
	cfg    *config.Config
	store  ObjectStore
	files  repository.FileRepository
	cache  *CacheService
	logger *slog.Logger
}

// NewUploadService создаёт сервис загрузки файлов.
func NewUploadService(
	cfg *config.Config,
	store ObjectStore,
	files repository.FileRepository,
	cache *CacheService,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		cfg:    cfg,
		store:  store,
		files:  files,
		cache:  cache,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Upload загружает один файл.
//
// Поток:
//  1. Валидация входных данных (имя, привязка, расширение, размер)
//  2. Генерация ключа объекта: {owner}/{uuid}-{имя}
//  3. Запись объекта в S3
//  4. Запись метаданных в PostgreSQL
//  5. Кэширование записи и подпись URL для ответа
//
// При ошибке шага 4 объект из S3 не удаляется: сирота останется в бакете
// до сверки.
// Ошибка подписи URL на шаге 5 не считается ошибкой загрузки:
// дескриптор возвращается без URL.
func (s *UploadService) Upload(ctx context.Context, params UploadParams) (*FileDescriptor, *UploadError) {
	// 1. Валидация
	if params.Filename == "" {
		return nil, s.fail(400, "Не указано имя файла")
	}
	if params.LinkedEntity == "" {
		return nil, s.fail(400, "Не указан linkedEntity")
	}
	if params.LinkedID == "" {
		return nil, s.fail(400, "Не указан linkedId")
	}

	ext := fileExtension(params.Filename)
	if !s.cfg.IsAllowedExtension(ext) {
		return nil, s.fail(415, fmt.Sprintf(
			"Недопустимый тип файла .%s, разрешены: %s",
			ext, strings.Join(s.cfg.AllowedExtensions, ", ")))
	}

	if params.Size > s.cfg.MaxFileSize {
		return nil, s.fail(413, fmt.Sprintf(
			"Размер файла %d байт превышает максимум %d байт", params.Size, s.cfg.MaxFileSize))
	}

	// 2. Ключ объекта: файлы раскладываются по префиксу владельца,
	// UUID исключает коллизии имён
	objectKey := fmt.Sprintf("%s/%s-%s", params.OwnerID, uuid.New().String(), sanitizeFilename(params.Filename))

	// 3. Запись объекта в хранилище
	contentType := detectContentType(params.ContentType)
	if err := s.store.Upload(ctx, objectKey, contentType, params.Reader, params.Size); err != nil {
		s.logger.Error("Ошибка записи объекта в хранилище",
			slog.String("key", objectKey),
			slog.String("error", err.Error()),
		)
		return nil, s.fail(500, "Ошибка записи файла в хранилище")
	}

	// 4. Запись метаданных
	rec := &model.FileRecord{
		OwnerID:      &params.OwnerID,
		FilePath:     objectKey,
		FileName:     params.Filename,
		FileSize:     params.Size,
		MimeType:     contentType,
		LinkedEntity: params.LinkedEntity,
		LinkedID:     params.LinkedID,
	}

	saved, err := s.files.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePath) {
			return nil, s.fail(409, "Путь файла уже занят, повторите загрузку")
		}
		// Объект уже в бакете, метаданных нет. Оставляем сироту для
		// сверки вместо компенсирующего удаления.
		s.logger.Error("Ошибка записи метаданных файла, объект остаётся в хранилище",
			slog.String("key", objectKey),
			slog.String("error", err.Error()),
		)
		return nil, s.fail(500, "Ошибка записи метаданных файла")
	}

	// 5. Кэшируем запись и подписываем URL для ответа
	s.cache.Set(saved.FilePath, saved)

	desc := &FileDescriptor{File: saved}
	url, expiresAt, signErr := s.store.SignedGetURL(ctx, saved.FilePath, 0)
	if signErr != nil {
		// Файл уже сохранён — отдаём дескриптор без URL
		s.logger.Warn("Файл загружен, но подписать URL не удалось",
			slog.String("file_path", saved.FilePath),
			slog.String("error", signErr.Error()),
		)
	} else {
		desc.SignedURL = &url
		desc.ExpiresAt = &expiresAt
	}

	uploadsTotal.WithLabelValues("success").Inc()
	uploadBytesTotal.Add(float64(params.Size))

	s.logger.Info("Файл загружен",
		slog.String("file_path", saved.FilePath),
		slog.String("filename", saved.FileName),
		slog.Int64("size", saved.FileSize),
		slog.String("owner", params.OwnerID),
		slog.String("linked_entity", saved.LinkedEntity),
		slog.String("linked_id", saved.LinkedID),
	)

	return desc, nil
}

// fail инкрементирует метрику ошибок и возвращает UploadError.
func (s *UploadService) fail(status int, message string) *UploadError {
	uploadsTotal.WithLabelValues("error").Inc()
	return &UploadError{StatusCode: status, Message: message}
}

// fileExtension возвращает расширение файла без точки, в нижнем регистре.
func fileExtension(filename string) string {
	ext := path.Ext(filename)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// sanitizeFilename приводит имя файла к безопасному для ключа объекта виду:
// убирает компоненты пути, заменяет пробелы и спецсимволы на '_'.
func sanitizeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// detectContentType определяет Content-Type из заголовка multipart part.
// Если не указан — используется application/octet-stream.
func detectContentType(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	// Убираем параметры (charset и т.д.)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return contentType
}
