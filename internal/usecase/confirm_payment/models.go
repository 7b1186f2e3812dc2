package confirm_payment

import "time"

// Request модель запроса на подтверждение оплаты
type Request struct {
	RegistrationID int64
	PatientID      int64   // 0 для вызова от платёжной системы, иначе проверяется владелец записи
	Amount         int64   // Сумма в минимальных единицах валюты
	TransactionNo  *string // Номер транзакции шлюза (charge id); если не указан, генерируется
}

// Response модель ответа с оплаченной записью
type Response struct {
	ID             int64
	RegistrationNo string
	Status         string
	PaymentStatus  string
	TransactionNo  string
	Amount         int64
	PaidAt         time.Time
}
