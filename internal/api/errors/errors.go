// Пакет errors — конструкторы стандартных ошибок HTTP API File Module.
// Единый формат тела: {"error": "...", "details": "..."} (details — опционально).
// Все HTTP-ответы с ошибками должны использовать WriteError / WriteErrorDetails.
package errors //nolint:revive // имя пакета совпадает со stdlib, используется с алиасом apierrors

import (
	"encoding/json"
	"net/http"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, message — человекочитаемое описание.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteErrorDetails(w, statusCode, message, "")
}

// WriteErrorDetails записывает ответ ошибки с дополнительными деталями
// (обычно — текст ошибки нижележащего хранилища).
func WriteErrorDetails(w http.ResponseWriter, statusCode int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   message,
		Details: details,
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// Unauthorized — 401 отсутствует или невалидный bearer-токен.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

// Forbidden — 403 валидный токен, но недостаточно прав (не владелец).
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message)
}

// NotFound — 404 запись метаданных не найдена.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// MethodNotAllowed — 405 метод не поддерживается.
func MethodNotAllowed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusMethodNotAllowed, message)
}

// PayloadTooLarge — 413 файл превышает лимит размера.
func PayloadTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, message)
}

// UnsupportedType — 415 расширение файла вне allow-list.
func UnsupportedType(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnsupportedMediaType, message)
}

// StorageError — 500 ошибка объектного хранилища (запись/удаление/подпись URL).
func StorageError(w http.ResponseWriter, message, details string) {
	WriteErrorDetails(w, http.StatusInternalServerError, message, details)
}

// MetadataError — 500 ошибка базы метаданных.
func MetadataError(w http.ResponseWriter, message, details string) {
	WriteErrorDetails(w, http.StatusInternalServerError, message, details)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
