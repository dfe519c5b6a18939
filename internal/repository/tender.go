package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tenderhub/file-module/internal/domain/model"
)

// tenderColumns — список столбцов таблицы tenders для SELECT-запросов.
const tenderColumns = `id, tender_id, title, description, agency, category, location,
	budget, closing_date, published_date, requirements, contact_info,
	status, tags, is_featured, created_at, updated_at`

// TenderSearchParams — параметры поиска по каталогу тендеров.
// Все фильтры — указатели, nil = фильтр не применяется.
type TenderSearchParams struct {
	// Query — поиск по названию, описанию и агентству (ILIKE)
	Query *string
	// Category — фильтр по категории (exact match)
	Category *string
	// Location — фильтр по региону (partial match)
	Location *string
	// Status — фильтр по статусу (active/closed)
	Status *string
	// Featured — только выделенные тендеры
	Featured *bool
	// ClosingAfter — только тендеры с дедлайном позже указанной даты
	ClosingAfter *time.Time
	// Limit — количество результатов
	Limit int
	// Offset — смещение
	Offset int
}

// TenderRepository — read-only доступ к каталогу тендеров.
type TenderRepository interface {
	// List возвращает тендеры по статусу: выделенные первыми,
	// дальше по близости дедлайна.
	List(ctx context.Context, status string, limit, offset int) ([]*model.Tender, int, error)
	// GetByID возвращает тендер по UUID.
	GetByID(ctx context.Context, id string) (*model.Tender, error)
	// Search выполняет поиск по каталогу с фильтрами и пагинацией.
	// Возвращает: список тендеров, общее количество, ошибка.
	Search(ctx context.Context, params TenderSearchParams) ([]*model.Tender, int, error)
}

// tenderRepo — реализация TenderRepository через pgx.
type tenderRepo struct {
	db DBTX
}

// NewTenderRepository создаёт репозиторий каталога тендеров.
func NewTenderRepository(db DBTX) TenderRepository {
	return &tenderRepo{db: db}
}

// List возвращает тендеры по статусу с пагинацией.
func (r *tenderRepo) List(ctx context.Context, status string, limit, offset int) ([]*model.Tender, int, error) {
	return r.Search(ctx, TenderSearchParams{
		Status: &status,
		Limit:  limit,
		Offset: offset,
	})
}

// GetByID возвращает тендер по UUID или ErrNotFound.
func (r *tenderRepo) GetByID(ctx context.Context, id string) (*model.Tender, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenders WHERE id = $1`, tenderColumns)

	t := &model.Tender{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.TenderID, &t.Title, &t.Description, &t.Agency, &t.Category, &t.Location,
		&t.Budget, &t.ClosingDate, &t.PublishedDate, &t.Requirements, &t.ContactInfo,
		&t.Status, &t.Tags, &t.IsFeatured, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения тендера: %w", err)
	}
	return t, nil
}

// Search выполняет поиск тендеров с динамическими фильтрами и пагинацией.
// Возвращает (результаты, общее количество, ошибка).
func (r *tenderRepo) Search(ctx context.Context, params TenderSearchParams) ([]*model.Tender, int, error) {
	where, args := buildTenderWhere(params)
	argNum := len(args) + 1

	// Выделенные первыми, дальше по близости дедлайна
	dataQuery := fmt.Sprintf(
		`SELECT %s FROM tenders %s ORDER BY is_featured DESC, closing_date ASC LIMIT $%d OFFSET $%d`,
		tenderColumns, where, argNum, argNum+1,
	)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка поиска тендеров: %w", err)
	}
	defer rows.Close()

	var result []*model.Tender
	for rows.Next() {
		t := &model.Tender{}
		if err := rows.Scan(
			&t.ID, &t.TenderID, &t.Title, &t.Description, &t.Agency, &t.Category, &t.Location,
			&t.Budget, &t.ClosingDate, &t.PublishedDate, &t.Requirements, &t.ContactInfo,
			&t.Status, &t.Tags, &t.IsFeatured, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования тендера: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	// Общее количество с теми же фильтрами, без LIMIT/OFFSET
	countWhere, countArgs := buildTenderWhere(params)
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tenders %s`, countWhere)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта тендеров: %w", err)
	}

	return result, total, nil
}

// buildTenderWhere строит WHERE-условие и аргументы для поиска тендеров.
func buildTenderWhere(params TenderSearchParams) (whereClause string, args []any) {
	var conditions []string
	argNum := 1

	// Полнотекстовый фильтр по названию, описанию и агентству
	if params.Query != nil && *params.Query != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR agency ILIKE $%d)",
			argNum, argNum, argNum))
		args = append(args, "%"+*params.Query+"%")
		argNum++
	}

	// Фильтр по категории (exact match)
	if params.Category != nil && *params.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, *params.Category)
		argNum++
	}

	// Фильтр по региону (partial match)
	if params.Location != nil && *params.Location != "" {
		conditions = append(conditions, fmt.Sprintf("location ILIKE $%d", argNum))
		args = append(args, "%"+*params.Location+"%")
		argNum++
	}

	// Фильтр по статусу
	if params.Status != nil && *params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *params.Status)
		argNum++
	}

	// Только выделенные тендеры
	if params.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("is_featured = $%d", argNum))
		args = append(args, *params.Featured)
		argNum++
	}

	// Дедлайн подачи позже указанной даты
	if params.ClosingAfter != nil {
		conditions = append(conditions, fmt.Sprintf("closing_date > $%d", argNum))
		args = append(args, *params.ClosingAfter)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}
