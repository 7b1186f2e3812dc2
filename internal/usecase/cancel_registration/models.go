package cancel_registration

import "time"

// Request модель запроса на отмену записи
type Request struct {
	RegistrationID int64
	PatientID      int64 // ID пациента (из заголовка X-User-ID)
}

// Response модель ответа с отменённой записью
type Response struct {
	ID             int64
	RegistrationNo string
	Status         string
	PaymentStatus  string
	CancelledAt    time.Time
	RefundQueued   bool // задача возврата отправлена в очередь
}
