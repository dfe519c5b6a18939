package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tenderhub/file-module/internal/domain/model"
)

// fileColumns — список столбцов таблицы files для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const fileColumns = `id, user_id, file_path, file_name, file_size,
	mime_type, linked_entity, linked_id, created_at`

// FileRepository — интерфейс доступа к метаданным файлов.
type FileRepository interface {
	// Insert сохраняет запись метаданных и возвращает её с заполненными id/created_at.
	Insert(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error)
	// GetByPath возвращает запись по ключу объекта (file_path).
	GetByPath(ctx context.Context, filePath string) (*model.FileRecord, error)
	// ListByLinked возвращает файлы по привязке.
	// ownerID != nil — дополнительно фильтрует по владельцу
	// (приватные сущности видны только владельцу).
	ListByLinked(ctx context.Context, linkedEntity, linkedID string, ownerID *string) ([]*model.FileRecord, error)
	// ListByOwner возвращает все файлы владельца, свежие первыми.
	ListByOwner(ctx context.Context, ownerID string) ([]*model.FileRecord, error)
	// DeleteByPath удаляет запись по ключу объекта.
	DeleteByPath(ctx context.Context, filePath string) error
	// ListAllPaths возвращает все ключи объектов (для сверки с хранилищем).
	ListAllPaths(ctx context.Context) ([]string, error)
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// Insert сохраняет запись метаданных.
// Нарушение уникальности file_path транслируется в ErrDuplicatePath.
func (r *fileRepo) Insert(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	query := `
		INSERT INTO files (user_id, file_path, file_name, file_size, mime_type, linked_entity, linked_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	out := *rec
	err := r.db.QueryRow(ctx, query,
		rec.OwnerID, rec.FilePath, rec.FileName, rec.FileSize,
		rec.MimeType, rec.LinkedEntity, rec.LinkedID,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 — unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicatePath
		}
		return nil, fmt.Errorf("ошибка сохранения метаданных файла: %w", err)
	}
	return &out, nil
}

// GetByPath возвращает запись по file_path или ErrNotFound.
func (r *fileRepo) GetByPath(ctx context.Context, filePath string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE file_path = $1`, fileColumns)

	f := &model.FileRecord{}
	err := r.db.QueryRow(ctx, query, filePath).Scan(
		&f.ID, &f.OwnerID, &f.FilePath, &f.FileName, &f.FileSize,
		&f.MimeType, &f.LinkedEntity, &f.LinkedID, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения метаданных файла: %w", err)
	}
	return f, nil
}

// ListByLinked возвращает файлы по привязке (linked_entity + linked_id).
// При ownerID != nil добавляется фильтр по владельцу.
func (r *fileRepo) ListByLinked(ctx context.Context, linkedEntity, linkedID string, ownerID *string) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM files WHERE linked_entity = $1 AND linked_id = $2`, fileColumns)
	args := []any{linkedEntity, linkedID}

	if ownerID != nil {
		query += ` AND user_id = $3`
		args = append(args, *ownerID)
	}
	query += ` ORDER BY created_at DESC`

	return r.queryFiles(ctx, query, args...)
}

// ListByOwner возвращает все файлы владельца, свежие первыми.
func (r *fileRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM files WHERE user_id = $1 ORDER BY created_at DESC`, fileColumns)
	return r.queryFiles(ctx, query, ownerID)
}

// DeleteByPath удаляет запись метаданных по ключу объекта.
func (r *fileRepo) DeleteByPath(ctx context.Context, filePath string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE file_path = $1`, filePath)
	if err != nil {
		return fmt.Errorf("ошибка удаления метаданных файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAllPaths возвращает ключи всех объектов в таблице files.
// Используется фоновой сверкой с объектным хранилищем.
func (r *fileRepo) ListAllPaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT file_path FROM files`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки путей файлов: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пути: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return paths, nil
}

// queryFiles выполняет SELECT с fileColumns и сканирует результат.
func (r *fileRepo) queryFiles(ctx context.Context, query string, args ...any) ([]*model.FileRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f := &model.FileRecord{}
		if err := rows.Scan(
			&f.ID, &f.OwnerID, &f.FilePath, &f.FileName, &f.FileSize,
			&f.MimeType, &f.LinkedEntity, &f.LinkedID, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}
