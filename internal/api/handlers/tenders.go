// tenders.go — обработчики каталога тендеров (публичные, read-only).
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/tenderhub/file-module/internal/api/errors"
	"github.com/tenderhub/file-module/internal/domain/model"
	"github.com/tenderhub/file-module/internal/repository"
)

// tenderJSON — представление тендера в API.
type tenderJSON struct {
	ID            string   `json:"id"`
	TenderID      string   `json:"tender_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Agency        string   `json:"agency"`
	Category      string   `json:"category"`
	Location      string   `json:"location"`
	Budget        string   `json:"budget"`
	ClosingDate   string   `json:"closing_date"`
	PublishedDate string   `json:"published_date"`
	Requirements  []string `json:"requirements"`
	ContactInfo   string   `json:"contact_info,omitempty"`
	Status        string   `json:"status"`
	Tags          []string `json:"tags"`
	IsFeatured    bool     `json:"is_featured"`
}

// tenderDetailsJSON — карточка тендера с документами.
// Документы — дескрипторы файлов с подписанными URL (signedUrl == null
// для документов, подпись которых не удалась).
type tenderDetailsJSON struct {
	tenderJSON
	Documents []fileJSON `json:"documents"`
}

// tendersListResponse — ответ листинга/поиска тендеров.
type tendersListResponse struct {
	Success bool         `json:"success"`
	Tenders []tenderJSON `json:"tenders"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// tenderResponse — ответ карточки тендера.
type tenderResponse struct {
	Success bool              `json:"success"`
	Tender  tenderDetailsJSON `json:"tender"`
}

// toTenderJSON конвертирует модель в API-представление.
func toTenderJSON(t *model.Tender) tenderJSON {
	out := tenderJSON{
		ID:            t.ID,
		TenderID:      t.TenderID,
		Title:         t.Title,
		Description:   t.Description,
		Agency:        t.Agency,
		Category:      t.Category,
		Location:      t.Location,
		Budget:        t.Budget,
		ClosingDate:   t.ClosingDate.UTC().Format(time.RFC3339),
		PublishedDate: t.PublishedDate.UTC().Format(time.RFC3339),
		Requirements:  t.Requirements,
		ContactInfo:   t.ContactInfo,
		Status:        t.Status,
		Tags:          t.Tags,
		IsFeatured:    t.IsFeatured,
	}
	if out.Requirements == nil {
		out.Requirements = []string{}
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// toTenderListJSON конвертирует список моделей.
func toTenderListJSON(tenders []*model.Tender) []tenderJSON {
	out := make([]tenderJSON, 0, len(tenders))
	for _, t := range tenders {
		out = append(out, toTenderJSON(t))
	}
	return out
}

// parseDateParam разбирает дату из query: полный RFC 3339 или YYYY-MM-DD.
func parseDateParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

// ListTenders — GET /api/v1/tenders.
// Активные тендеры с пагинацией, выделенные первыми.
func (h *APIHandler) ListTenders(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	tenders, total, err := h.tenders.List(r.Context(), limit, offset)
	if err != nil {
		apierrors.MetadataError(w, "Ошибка получения каталога тендеров", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tendersListResponse{
		Success: true,
		Tenders: toTenderListJSON(tenders),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// SearchTenders — GET /api/v1/tenders/search?q=...&category=...&location=...&status=...&featured=...
func (h *APIHandler) SearchTenders(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	q := r.URL.Query()

	params := repository.TenderSearchParams{
		Limit:  limit,
		Offset: offset,
	}

	if v := q.Get("q"); v != "" {
		params.Query = &v
	}
	if v := q.Get("category"); v != "" {
		params.Category = &v
	}
	if v := q.Get("location"); v != "" {
		params.Location = &v
	}
	if v := q.Get("status"); v != "" {
		params.Status = &v
	}
	if v := q.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.ValidationError(w, "Параметр featured должен быть true или false")
			return
		}
		params.Featured = &featured
	}
	if v := q.Get("closingAfter"); v != "" {
		after, err := parseDateParam(v)
		if err != nil {
			apierrors.ValidationError(w, "Параметр closingAfter должен быть датой в формате RFC 3339 или YYYY-MM-DD")
			return
		}
		params.ClosingAfter = &after
	}

	tenders, total, err := h.tenders.Search(r.Context(), params)
	if err != nil {
		apierrors.MetadataError(w, "Ошибка поиска тендеров", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tendersListResponse{
		Success: true,
		Tenders: toTenderListJSON(tenders),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// GetTender — GET /api/v1/tenders/{tenderID}.
// Карточка тендера с документами и подписанными URL.
func (h *APIHandler) GetTender(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "tenderID")

	details, err := h.tenders.Get(r.Context(), tenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Тендер не найден")
			return
		}
		apierrors.MetadataError(w, "Ошибка получения тендера", err.Error())
		return
	}

	resp := tenderResponse{
		Success: true,
		Tender: tenderDetailsJSON{
			tenderJSON: toTenderJSON(details.Tender),
			Documents:  toFileListJSON(details.Documents),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}
