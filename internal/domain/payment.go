package domain

import "time"

// Payment платёжная транзакция по записи (одна на запись)
// Статус платежа главнее Registration.PaymentStatus, оба меняются в одной транзакции БД
type Payment struct {
	ID             int64
	RegistrationID int64
	TransactionNo  string
	Amount         int64
	Status         PaymentStatus
	PaidAt         *time.Time
	RefundedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RefundTask единица работы очереди возвратов
type RefundTask struct {
	RegistrationID int64  `json:"registrationId"`
	RegistrationNo string `json:"registrationNo"`
	TransactionNo  string `json:"transactionNo"`
	Amount         int64  `json:"amount"`
	PatientID      int64  `json:"patientId"`
}

// NewRefundTask собирает задачу возврата по записи и платежу
func NewRefundTask(r *Registration, p *Payment) RefundTask {
	return RefundTask{
		RegistrationID: r.ID,
		RegistrationNo: r.RegistrationNo,
		TransactionNo:  p.TransactionNo,
		Amount:         p.Amount,
		PatientID:      r.PatientID,
	}
}
