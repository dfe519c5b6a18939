// handler.go — основной обработчик API File Module.
// Маршруты регистрируются на chi-роутере; health и бизнес-обработчики
// делегируют в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tenderhub/file-module/internal/config"
	"github.com/tenderhub/file-module/internal/service"
)

// APIHandler — основной обработчик API File Module.
type APIHandler struct {
	cfg     *config.Config
	health  *HealthHandler
	upload  *service.UploadService
	files   *service.FileService
	tenders *service.TenderService
	logger  *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	cfg *config.Config,
	health *HealthHandler,
	upload *service.UploadService,
	files *service.FileService,
	tenders *service.TenderService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		cfg:     cfg,
		health:  health,
		upload:  upload,
		files:   files,
		tenders: tenders,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// RegisterRoutes регистрирует маршруты API.
// authMiddleware применяется только к защищённым маршрутам (/files*);
// health, metrics и каталог тендеров — публичные.
func (h *APIHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	// Публичные endpoints
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(api chi.Router) {
		// Каталог тендеров — публичный (read-only)
		api.Get("/tenders", h.ListTenders)
		api.Get("/tenders/search", h.SearchTenders)
		api.Get("/tenders/{tenderID}", h.GetTender)

		// Операции с файлами — только с bearer-токеном
		api.Group(func(protected chi.Router) {
			protected.Use(authMiddleware)

			protected.Post("/files", h.UploadFiles)
			protected.Get("/files", h.ListFiles)
			protected.Delete("/files", h.DeleteFile)
			protected.Get("/files/my", h.ListMyFiles)
			protected.Get("/files/signed-url", h.SignedURL)
		})
	})
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// paginationParams извлекает limit/offset из query-параметров
// с нормализацией границ.
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
