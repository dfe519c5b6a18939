// Пакет model — доменные модели File Module.
// FileRecord — маппинг таблицы files (метаданные загруженных документов).
package model

import "time"

// Виды привязки файла к бизнес-объекту (linked_entity).
const (
	// LinkTenderDoc — документ тендера. Публичный: читается без проверки владельца.
	LinkTenderDoc = "tender_doc"
	// LinkGeneralDocument — документ компании общего назначения.
	LinkGeneralDocument = "general_document"
	// LinkProposalDoc — вложение к заявке (proposal).
	LinkProposalDoc = "proposal_doc"
	// LinkCompanyDoc — документ профиля компании (сертификаты, лицензии).
	LinkCompanyDoc = "company_doc"
)

// FileRecord — запись о загруженном файле в таблице files.
// Канонический список файлов принадлежит базе метаданных;
// объектное хранилище знает только про сырые байты по FilePath.
type FileRecord struct {
	// ID — UUID записи (генерируется базой)
	ID string
	// OwnerID — идентификатор загрузившего (sub из JWT).
	// NULL для публичных документов, загруженных без владельца.
	OwnerID *string
	// FilePath — уникальный ключ объекта в хранилище: {owner_id}/{uuid}-{имя файла}.
	// Неизменяем после создания.
	FilePath string
	// FileName — оригинальное имя файла (не уникально)
	FileName string
	// FileSize — размер файла в байтах (>= 0)
	FileSize int64
	// MimeType — MIME-тип файла
	MimeType string
	// LinkedEntity — вид привязанного бизнес-объекта (tender_doc, general_document, ...)
	LinkedEntity string
	// LinkedID — UUID привязанного бизнес-объекта
	LinkedID string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// IsPublic возвращает true, если файл читается без проверки владельца.
// Публичны только документы тендеров.
func (f *FileRecord) IsPublic() bool {
	return f.LinkedEntity == LinkTenderDoc
}

// OwnedBy возвращает true, если файл принадлежит указанному субъекту.
func (f *FileRecord) OwnedBy(subject string) bool {
	return f.OwnerID != nil && *f.OwnerID == subject
}
