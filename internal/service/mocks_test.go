package service

import (
	"context"
	"io"
	"time"

	"github.com/tenderhub/file-module/internal/domain/model"
	"github.com/tenderhub/file-module/internal/repository"
)

// mockFileRepo — мок FileRepository с настраиваемыми функциями.
type mockFileRepo struct {
	insertFn       func(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error)
	getByPathFn    func(ctx context.Context, filePath string) (*model.FileRecord, error)
	listByLinkedFn func(ctx context.Context, linkedEntity, linkedID string, ownerID *string) ([]*model.FileRecord, error)
	listByOwnerFn  func(ctx context.Context, ownerID string) ([]*model.FileRecord, error)
	deleteByPathFn func(ctx context.Context, filePath string) error
	listAllPathsFn func(ctx context.Context) ([]string, error)
}

func (m *mockFileRepo) Insert(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, rec)
	}
	out := *rec
	out.ID = "generated-id"
	out.CreatedAt = time.Now()
	return &out, nil
}

func (m *mockFileRepo) GetByPath(ctx context.Context, filePath string) (*model.FileRecord, error) {
	if m.getByPathFn != nil {
		return m.getByPathFn(ctx, filePath)
	}
	return nil, repository.ErrNotFound
}

func (m *mockFileRepo) ListByLinked(ctx context.Context, linkedEntity, linkedID string, ownerID *string) ([]*model.FileRecord, error) {
	if m.listByLinkedFn != nil {
		return m.listByLinkedFn(ctx, linkedEntity, linkedID, ownerID)
	}
	return nil, nil
}

func (m *mockFileRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockFileRepo) DeleteByPath(ctx context.Context, filePath string) error {
	if m.deleteByPathFn != nil {
		return m.deleteByPathFn(ctx, filePath)
	}
	return nil
}

func (m *mockFileRepo) ListAllPaths(ctx context.Context) ([]string, error) {
	if m.listAllPathsFn != nil {
		return m.listAllPathsFn(ctx)
	}
	return nil, nil
}

// mockObjectStore — мок ObjectStore с настраиваемыми функциями.
type mockObjectStore struct {
	uploadFn       func(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	removeFn       func(ctx context.Context, key string) error
	signedGetURLFn func(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error)
	listKeysFn     func(ctx context.Context) ([]string, error)
}

func (m *mockObjectStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, contentType, body, size)
	}
	return nil
}

func (m *mockObjectStore) Remove(ctx context.Context, key string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, key)
	}
	return nil
}

func (m *mockObjectStore) SignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	if m.signedGetURLFn != nil {
		return m.signedGetURLFn(ctx, key, ttl)
	}
	return "https://storage.local/" + key + "?signed", time.Now().Add(time.Hour), nil
}

func (m *mockObjectStore) ListKeys(ctx context.Context) ([]string, error) {
	if m.listKeysFn != nil {
		return m.listKeysFn(ctx)
	}
	return nil, nil
}

// mockTenderRepo — мок TenderRepository с настраиваемыми функциями.
type mockTenderRepo struct {
	listFn    func(ctx context.Context, status string, limit, offset int) ([]*model.Tender, int, error)
	getByIDFn func(ctx context.Context, id string) (*model.Tender, error)
	searchFn  func(ctx context.Context, params repository.TenderSearchParams) ([]*model.Tender, int, error)
}

func (m *mockTenderRepo) List(ctx context.Context, status string, limit, offset int) ([]*model.Tender, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, status, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockTenderRepo) GetByID(ctx context.Context, id string) (*model.Tender, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockTenderRepo) Search(ctx context.Context, params repository.TenderSearchParams) ([]*model.Tender, int, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, params)
	}
	return nil, 0, nil
}
