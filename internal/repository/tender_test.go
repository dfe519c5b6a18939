package repository

import (
	"strings"
	"testing"
	"time"
)

// --- Тесты buildTenderWhere ---

// TestBuildTenderWhere_Empty проверяет пустые фильтры.
func TestBuildTenderWhere_Empty(t *testing.T) {
	where, args := buildTenderWhere(TenderSearchParams{})

	if where != "" {
		t.Errorf("where = %q, ожидалась пустая строка", where)
	}
	if len(args) != 0 {
		t.Errorf("args count = %d, ожидался 0", len(args))
	}
}

// TestBuildTenderWhere_StatusOnly проверяет фильтрацию по статусу.
func TestBuildTenderWhere_StatusOnly(t *testing.T) {
	status := "active"
	where, args := buildTenderWhere(TenderSearchParams{Status: &status})

	if !strings.Contains(where, "status = $1") {
		t.Errorf("where = %q, ожидалось содержание 'status = $1'", where)
	}
	if len(args) != 1 {
		t.Errorf("args count = %d, ожидался 1", len(args))
	}
	if args[0] != "active" {
		t.Errorf("args[0] = %v, ожидался 'active'", args[0])
	}
}

// TestBuildTenderWhere_Query проверяет поиск по трём текстовым полям
// одним параметром.
func TestBuildTenderWhere_Query(t *testing.T) {
	query := "construction"
	where, args := buildTenderWhere(TenderSearchParams{Query: &query})

	if !strings.Contains(where, "title ILIKE $1") {
		t.Errorf("where = %q, ожидался title ILIKE $1", where)
	}
	if !strings.Contains(where, "description ILIKE $1") {
		t.Errorf("where = %q, ожидался description ILIKE $1", where)
	}
	if !strings.Contains(where, "agency ILIKE $1") {
		t.Errorf("where = %q, ожидался agency ILIKE $1", where)
	}
	if len(args) != 1 {
		t.Fatalf("args count = %d, ожидался 1", len(args))
	}
	if args[0] != "%construction%" {
		t.Errorf("args[0] = %v, ожидался '%%construction%%'", args[0])
	}
}

// TestBuildTenderWhere_Featured проверяет фильтр выделенных тендеров.
func TestBuildTenderWhere_Featured(t *testing.T) {
	featured := true
	where, args := buildTenderWhere(TenderSearchParams{Featured: &featured})

	if !strings.Contains(where, "is_featured = $1") {
		t.Errorf("where = %q, ожидался is_featured = $1", where)
	}
	if len(args) != 1 || args[0] != true {
		t.Errorf("args = %v, ожидался [true]", args)
	}
}

// TestBuildTenderWhere_ClosingAfter проверяет фильтр по дедлайну
// и нумерацию параметра после featured.
func TestBuildTenderWhere_ClosingAfter(t *testing.T) {
	featured := true
	after := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	where, args := buildTenderWhere(TenderSearchParams{
		Featured:     &featured,
		ClosingAfter: &after,
	})

	if !strings.Contains(where, "closing_date > $2") {
		t.Errorf("where = %q, ожидался closing_date > $2", where)
	}
	if len(args) != 2 {
		t.Fatalf("args count = %d, ожидался 2", len(args))
	}
	if args[1] != after {
		t.Errorf("args[1] = %v, ожидался %v", args[1], after)
	}
}

// TestBuildTenderWhere_MultipleFilters проверяет комбинацию фильтров
// и сквозную нумерацию $-параметров.
func TestBuildTenderWhere_MultipleFilters(t *testing.T) {
	query := "it"
	category := "IT Services"
	status := "active"
	where, args := buildTenderWhere(TenderSearchParams{
		Query:    &query,
		Category: &category,
		Status:   &status,
	})

	if strings.Count(where, "AND") != 2 {
		t.Errorf("where = %q, ожидалось 2 AND", where)
	}
	if !strings.Contains(where, "category = $2") {
		t.Errorf("where = %q, ожидался category = $2", where)
	}
	if !strings.Contains(where, "status = $3") {
		t.Errorf("where = %q, ожидался status = $3", where)
	}
	if len(args) != 3 {
		t.Errorf("args count = %d, ожидался 3", len(args))
	}
}

// TestBuildTenderWhere_Location проверяет частичное совпадение региона.
func TestBuildTenderWhere_Location(t *testing.T) {
	location := "Kuala"
	where, args := buildTenderWhere(TenderSearchParams{Location: &location})

	if !strings.Contains(where, "location ILIKE $1") {
		t.Errorf("where = %q, ожидался location ILIKE $1", where)
	}
	if args[0] != "%Kuala%" {
		t.Errorf("args[0] = %v, ожидался '%%Kuala%%'", args[0])
	}
}

// TestBuildTenderWhere_EmptyStringsIgnored проверяет, что пустые строки
// не превращаются в условия.
func TestBuildTenderWhere_EmptyStringsIgnored(t *testing.T) {
	empty := ""
	where, args := buildTenderWhere(TenderSearchParams{
		Query:    &empty,
		Category: &empty,
		Status:   &empty,
	})

	if where != "" {
		t.Errorf("where = %q, ожидалась пустая строка", where)
	}
	if len(args) != 0 {
		t.Errorf("args count = %d, ожидался 0", len(args))
	}
}
