// tender.go — модель тендера (каталог государственных закупок).
// Маппинг таблицы tenders. File Module отдаёт каталог только на чтение.
package model

import "time"

// Статусы тендера.
const (
	// TenderStatusActive — тендер открыт для подачи заявок.
	TenderStatusActive = "active"
	// TenderStatusClosed — приём заявок завершён.
	TenderStatusClosed = "closed"
)

// Tender — запись тендера в каталоге.
type Tender struct {
	// ID — UUID тендера
	ID string
	// TenderID — внешний номер тендера (присваивается агентством)
	TenderID string
	// Title — название тендера
	Title string
	// Description — описание предмета закупки
	Description string
	// Agency — агентство-заказчик
	Agency string
	// Category — категория закупки (Construction, IT Services, ...)
	Category string
	// Location — регион исполнения
	Location string
	// Budget — бюджет (строка с валютой, как публикует агентство)
	Budget string
	// ClosingDate — дата окончания приёма заявок
	ClosingDate time.Time
	// PublishedDate — дата публикации
	PublishedDate time.Time
	// Requirements — квалификационные требования к участникам
	Requirements []string
	// ContactInfo — контактные данные агентства
	ContactInfo string
	// Status — статус тендера: active, closed
	Status string
	// Tags — теги для поиска
	Tags []string
	// IsFeatured — тендер выделен на главной странице
	IsFeatured bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
