package service

import (
	"testing"
	"time"

	"github.com/tenderhub/file-module/internal/domain/model"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	record := &model.FileRecord{
		ID:       "id-1",
		FilePath: "user-1/abc-report.pdf",
		FileName: "report.pdf",
		FileSize: 1024,
		MimeType: "application/pdf",
	}

	// Cache miss
	_, ok := cache.Get("user-1/abc-report.pdf")
	if ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	// Set + cache hit
	cache.Set("user-1/abc-report.pdf", record)
	got, ok := cache.Get("user-1/abc-report.pdf")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.FileName != "report.pdf" {
		t.Errorf("FileName = %q, ожидался %q", got.FileName, "report.pdf")
	}
}

// TestCacheService_Delete проверяет удаление из кэша (инвалидация).
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	record := &model.FileRecord{FilePath: "user-1/delete-me.pdf"}

	cache.Set("user-1/delete-me.pdf", record)

	// Проверяем что запись есть
	if _, ok := cache.Get("user-1/delete-me.pdf"); !ok {
		t.Fatal("ожидался cache hit перед удалением")
	}

	// Удаляем
	cache.Delete("user-1/delete-me.pdf")

	// Проверяем что записи больше нет
	if _, ok := cache.Get("user-1/delete-me.pdf"); ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	// Короткий TTL = 50ms для теста
	cache := NewCacheService(100, 50*time.Millisecond)

	cache.Set("ttl-test", &model.FileRecord{FilePath: "ttl-test"})

	// Сразу после Set — должен быть hit
	if _, ok := cache.Get("ttl-test"); !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	// Ждём истечения TTL
	time.Sleep(100 * time.Millisecond)

	// После истечения TTL — должен быть miss
	if _, ok := cache.Get("ttl-test"); ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_Eviction проверяет вытеснение при превышении maxSize.
func TestCacheService_Eviction(t *testing.T) {
	// Кэш на 2 записи
	cache := NewCacheService(2, 5*time.Minute)

	cache.Set("r1", &model.FileRecord{FilePath: "r1"})
	cache.Set("r2", &model.FileRecord{FilePath: "r2"})

	if _, ok := cache.Get("r1"); !ok {
		t.Fatal("ожидался cache hit для r1")
	}
	if _, ok := cache.Get("r2"); !ok {
		t.Fatal("ожидался cache hit для r2")
	}

	// Добавляем третью — одна из старых должна быть вытеснена
	cache.Set("r3", &model.FileRecord{FilePath: "r3"})

	if _, ok := cache.Get("r3"); !ok {
		t.Fatal("ожидался cache hit для r3")
	}
}

// TestCacheService_Update проверяет обновление записи в кэше.
func TestCacheService_Update(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	cache.Set("update-test", &model.FileRecord{FilePath: "update-test", FileName: "old.pdf"})
	cache.Set("update-test", &model.FileRecord{FilePath: "update-test", FileName: "new.pdf"})

	got, ok := cache.Get("update-test")
	if !ok {
		t.Fatal("ожидался cache hit после обновления")
	}
	if got.FileName != "new.pdf" {
		t.Errorf("FileName = %q, ожидался %q", got.FileName, "new.pdf")
	}
}
