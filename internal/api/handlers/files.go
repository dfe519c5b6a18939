// files.go — обработчики операций с файлами.
// Все маршруты требуют bearer-токен; владелец определяется по sub из JWT.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/tenderhub/file-module/internal/api/errors"
	"github.com/tenderhub/file-module/internal/api/middleware"
	"github.com/tenderhub/file-module/internal/repository"
	"github.com/tenderhub/file-module/internal/service"
)

// Максимальный expiresIn для подписанного URL (лимит подписи SigV4).
const maxSignedURLSeconds = 7 * 24 * 3600

// fileJSON — дескриптор файла в API.
// signedUrl == null, если подпись для этого файла не удалась.
type fileJSON struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Size         int64   `json:"size"`
	Type         string  `json:"type"`
	FilePath     string  `json:"filePath"`
	LinkedEntity string  `json:"linkedEntity"`
	LinkedID     string  `json:"linkedId"`
	SignedURL    *string `json:"signedUrl"`
	ExpiresAt    *string `json:"expiresAt,omitempty"`
	UploadedAt   string  `json:"uploadedAt"`
}

// failedUploadJSON — файл, который не удалось загрузить.
type failedUploadJSON struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// uploadResponse — ответ на загрузку файлов.
// File — первый успешно загруженный файл (совместимость с
// одиночной загрузкой), Files — все успешные, Failed — ошибки по файлам.
type uploadResponse struct {
	Success bool               `json:"success"`
	File    *fileJSON          `json:"file,omitempty"`
	Files   []fileJSON         `json:"files"`
	Failed  []failedUploadJSON `json:"failed,omitempty"`
}

// filesResponse — ответ со списком файлов.
type filesResponse struct {
	Success bool       `json:"success"`
	Files   []fileJSON `json:"files"`
}

// messageResponse — ответ с сообщением об успехе.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// signedURLResponse — ответ с подписанным URL.
type signedURLResponse struct {
	SignedURL string `json:"signedUrl"`
	ExpiresAt string `json:"expiresAt"`
}

// toFileJSON конвертирует дескриптор сервисного слоя в API-представление.
func toFileJSON(desc service.FileDescriptor) fileJSON {
	out := fileJSON{
		ID:           desc.File.ID,
		Name:         desc.File.FileName,
		Size:         desc.File.FileSize,
		Type:         desc.File.MimeType,
		FilePath:     desc.File.FilePath,
		LinkedEntity: desc.File.LinkedEntity,
		LinkedID:     desc.File.LinkedID,
		SignedURL:    desc.SignedURL,
		UploadedAt:   desc.File.CreatedAt.UTC().Format(time.RFC3339),
	}
	if desc.ExpiresAt != nil {
		formatted := desc.ExpiresAt.UTC().Format(time.RFC3339)
		out.ExpiresAt = &formatted
	}
	return out
}

// toFileListJSON конвертирует список дескрипторов.
func toFileListJSON(descs []service.FileDescriptor) []fileJSON {
	out := make([]fileJSON, 0, len(descs))
	for _, desc := range descs {
		out = append(out, toFileJSON(desc))
	}
	return out
}

// UploadFiles — POST /api/v1/files.
// Принимает multipart/form-data: одно или несколько полей file,
// плюс linkedEntity и linkedId. Возвращает 200 при хотя бы одной
// успешной загрузке; ошибки по отдельным файлам — в failed.
func (h *APIHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	// Общий лимит тела: файлы + накладные расходы multipart
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxFileSize*4+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apierrors.PayloadTooLarge(w, "Тело запроса превышает допустимый размер")
			return
		}
		apierrors.ValidationError(w, "Некорректный multipart-запрос: "+err.Error())
		return
	}

	fileHeaders := r.MultipartForm.File["file"]
	if len(fileHeaders) == 0 {
		fileHeaders = r.MultipartForm.File["files"]
	}
	if len(fileHeaders) == 0 {
		apierrors.ValidationError(w, "Не передан ни один файл (поле file)")
		return
	}

	linkedEntity := r.FormValue("linkedEntity")
	linkedID := r.FormValue("linkedId")

	var uploaded []fileJSON
	var failed []failedUploadJSON
	var firstErr *service.UploadError

	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			if firstErr == nil {
				firstErr = &service.UploadError{StatusCode: http.StatusInternalServerError, Message: "Не удалось прочитать файл"}
			}
			failed = append(failed, failedUploadJSON{Name: fh.Filename, Error: "не удалось прочитать файл"})
			continue
		}

		desc, uploadErr := h.upload.Upload(r.Context(), service.UploadParams{
			Reader:       f,
			Filename:     fh.Filename,
			ContentType:  fh.Header.Get("Content-Type"),
			Size:         fh.Size,
			OwnerID:      subject,
			LinkedEntity: linkedEntity,
			LinkedID:     linkedID,
		})
		_ = f.Close()

		if uploadErr != nil {
			if firstErr == nil {
				firstErr = uploadErr
			}
			failed = append(failed, failedUploadJSON{Name: fh.Filename, Error: uploadErr.Message})
			continue
		}
		uploaded = append(uploaded, toFileJSON(*desc))
	}

	// Ни один файл не загружен — отдаём статус первой ошибки
	if len(uploaded) == 0 {
		apierrors.WriteError(w, firstErr.StatusCode, firstErr.Message)
		return
	}

	resp := uploadResponse{
		Success: len(failed) == 0,
		File:    &uploaded[0],
		Files:   uploaded,
		Failed:  failed,
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListFiles — GET /api/v1/files?linkedEntity=...&linkedId=...
// Документы тендеров видны всем, остальные — только владельцу.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	linkedEntity := r.URL.Query().Get("linkedEntity")
	linkedID := r.URL.Query().Get("linkedId")
	if linkedEntity == "" || linkedID == "" {
		apierrors.ValidationError(w, "Требуются параметры linkedEntity и linkedId")
		return
	}

	files, err := h.files.ListByLinked(r.Context(), subject, linkedEntity, linkedID)
	if err != nil {
		apierrors.MetadataError(w, "Ошибка получения списка файлов", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, filesResponse{Success: true, Files: toFileListJSON(files)})
}

// ListMyFiles — GET /api/v1/files/my.
// Все файлы текущего субъекта, свежие первыми.
func (h *APIHandler) ListMyFiles(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	files, err := h.files.ListByOwner(r.Context(), subject)
	if err != nil {
		apierrors.MetadataError(w, "Ошибка получения списка файлов", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, filesResponse{Success: true, Files: toFileListJSON(files)})
}

// DeleteFile — DELETE /api/v1/files?filePath=...
// Удалять может только владелец.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	filePath := r.URL.Query().Get("filePath")
	if filePath == "" {
		apierrors.ValidationError(w, "Требуется параметр filePath")
		return
	}

	if err := h.files.Delete(r.Context(), subject, filePath); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			apierrors.NotFound(w, "Файл не найден")
		case errors.Is(err, service.ErrForbidden):
			apierrors.Forbidden(w, "Удалять файл может только владелец")
		default:
			apierrors.StorageError(w, "Ошибка удаления файла", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Файл удалён"})
}

// SignedURL — GET /api/v1/files/signed-url?filePath=...&expiresIn=...
// Возвращает временный подписанный URL для скачивания.
// expiresIn — срок действия в секундах (опционально, по умолчанию
// FM_SIGNED_URL_TTL).
func (h *APIHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	filePath := r.URL.Query().Get("filePath")
	if filePath == "" {
		apierrors.ValidationError(w, "Требуется параметр filePath")
		return
	}

	var ttl time.Duration
	if v := r.URL.Query().Get("expiresIn"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 || seconds > maxSignedURLSeconds {
			apierrors.ValidationError(w, "Параметр expiresIn должен быть числом секунд от 1 до 604800")
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	signed, err := h.files.SignedURL(r.Context(), subject, filePath, ttl)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			apierrors.NotFound(w, "Файл не найден")
		case errors.Is(err, service.ErrForbidden):
			apierrors.Forbidden(w, "Доступ к файлу есть только у владельца")
		default:
			apierrors.StorageError(w, "Ошибка подписи URL", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, signedURLResponse{
		SignedURL: signed.URL,
		ExpiresAt: signed.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
