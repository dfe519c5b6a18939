// deps.go — интерфейсы внешних зависимостей сервисного слоя.
// Конкретные реализации: objstore.Store (S3), repository.* (PostgreSQL).
// Интерфейсы позволяют подставлять фейки в тестах.
package service

import (
	"context"
	"io"
	"time"
)

// ObjectStore — операции с объектным хранилищем, используемые сервисами.
// Реализуется *objstore.Store.
type ObjectStore interface {
	// Upload записывает объект; перезапись существующего ключа — ошибка.
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// Remove удаляет объект (идемпотентно).
	Remove(ctx context.Context, key string) error
	// SignedGetURL возвращает подписанный GET-URL и время его истечения.
	// ttl <= 0 — TTL по умолчанию из конфигурации хранилища.
	SignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error)
	// ListKeys возвращает ключи всех объектов бакета.
	ListKeys(ctx context.Context) ([]string, error)
}
