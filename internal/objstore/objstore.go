// Пакет objstore — клиент S3-совместимого объектного хранилища (MinIO).
// Хранит бинарные тела файлов; метаданные живут в PostgreSQL.
// Ключ объекта (file_path) формируется сервисным слоем.
package objstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tenderhub/file-module/internal/config"
)

// Store — клиент объектного хранилища для одного бакета.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	logger  *slog.Logger
}

// New создаёт клиент S3 со статическими учётными данными и
// кастомным endpoint (MinIO). Path-style адресация включается
// конфигурацией — virtual-host style MinIO без DNS не поддерживает.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"", // токен сессии не используется
		)))
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации S3: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.S3Bucket,
		ttl:     cfg.SignedURLTTL,
		logger:  logger.With(slog.String("component", "objstore")),
	}, nil
}

// Upload записывает объект в бакет.
// If-None-Match: * запрещает перезапись существующего ключа —
// коллизия ключа должна завершаться ошибкой, а не затирать чужой файл.
func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		return fmt.Errorf("ошибка записи объекта %s: %w", key, err)
	}

	s.logger.Debug("Объект записан",
		slog.String("key", key),
		slog.Int64("size", size),
	)
	return nil
}

// Remove удаляет объект из бакета.
// S3 DeleteObject идемпотентен: удаление отсутствующего ключа — не ошибка.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}

// SignedGetURL возвращает подписанный GET-URL на объект и время истечения.
// ttl <= 0 — используется SignedURLTTL из конфигурации (по умолчанию 1 час).
func (s *Store) SignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	expiresAt := time.Now().Add(ttl)

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи URL для %s: %w", key, err)
	}

	return req.URL, expiresAt, nil
}

// ListKeys возвращает ключи всех объектов бакета.
// Используется фоновой сверкой с таблицей files.
func (s *Store) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ошибка листинга бакета: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

// CheckReady проверяет доступность бакета (HeadBucket) для health endpoint.
// Реализует интерфейс handlers.ReadinessChecker.
func (s *Store) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return "fail", fmt.Sprintf("бакет %s недоступен: %v", s.bucket, err)
	}
	return "ok", fmt.Sprintf("бакет %s доступен", s.bucket)
}
