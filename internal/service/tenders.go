// tenders.go — сервис каталога тендеров (read-only).
// Карточка тендера дополняется документами (tender_doc) с подписанными
// URL. Ошибка подписи отдельного документа не валит весь запрос:
// документ возвращается без URL.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tenderhub/file-module/internal/domain/model"
	"github.com/tenderhub/file-module/internal/repository"
)

// TenderDetails — тендер с приложенными документами.
type TenderDetails struct {
	Tender    *model.Tender
	Documents []FileDescriptor
}

// TenderService — операции каталога тендеров.
type TenderService struct {
	tenders repository.TenderRepository
	files   repository.FileRepository
	store   ObjectStore
	logger  *slog.Logger
}

// NewTenderService создаёт сервис каталога тендеров.
func NewTenderService(
	tenders repository.TenderRepository,
	files repository.FileRepository,
	store ObjectStore,
	logger *slog.Logger,
) *TenderService {
	return &TenderService{
		tenders: tenders,
		files:   files,
		store:   store,
		logger:  logger.With(slog.String("component", "tender_service")),
	}
}

// List возвращает активные тендеры с пагинацией.
func (s *TenderService) List(ctx context.Context, limit, offset int) ([]*model.Tender, int, error) {
	return s.tenders.List(ctx, model.TenderStatusActive, limit, offset)
}

// Search выполняет поиск по каталогу.
func (s *TenderService) Search(ctx context.Context, params repository.TenderSearchParams) ([]*model.Tender, int, error) {
	return s.tenders.Search(ctx, params)
}

// Get возвращает тендер с документами и подписанными URL.
// Возвращает repository.ErrNotFound, если тендер не найден.
func (s *TenderService) Get(ctx context.Context, id string) (*TenderDetails, error) {
	// id из URL: не-UUID не может существовать в каталоге,
	// а в запрос ушёл бы ошибкой 22P02
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}

	tender, err := s.tenders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Документы тендера публичны — без фильтра по владельцу
	records, err := s.files.ListByLinked(ctx, model.LinkTenderDoc, tender.ID, nil)
	if err != nil {
		return nil, err
	}

	// Документ без URL лучше, чем 500 на всю карточку
	docs := presignRecords(ctx, s.store, s.logger, records)

	return &TenderDetails{Tender: tender, Documents: docs}, nil
}
