package domain

import "time"

// RegistrationStatus статус записи на приём
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCompleted RegistrationStatus = "completed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// PaymentStatus статус оплаты записи
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentRefunding PaymentStatus = "refunding"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Registration запись пациента на конкретное расписание
// QueueNumber и Symptom не меняются после создания
type Registration struct {
	ID             int64
	RegistrationNo string
	PatientID      int64
	DoctorID       int64
	ScheduleID     int64
	QueueNumber    int
	DetailSlotCode *string
	Symptom        *string
	Fee            int64

	Status        RegistrationStatus
	PaymentStatus PaymentStatus

	PaidAt            *time.Time
	RefundedAt        *time.Time
	RefundPublishedAt *time.Time
	CancelledAt       *time.Time
	CheckedInAt       *time.Time
	CompletedAt       *time.Time
	VisitRecord       *string

	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegistrationState пара статусов, по которой выполняется условное обновление записи
type RegistrationState struct {
	Status        RegistrationStatus
	PaymentStatus PaymentStatus
}

// State возвращает текущую пару статусов
func (r *Registration) State() RegistrationState {
	return RegistrationState{Status: r.Status, PaymentStatus: r.PaymentStatus}
}

// IsActive возвращает true, пока запись открыта для оплаты и смены статуса
func (r *Registration) IsActive() bool {
	return r.Status == RegistrationPending || r.Status == RegistrationConfirmed
}

// OccupiesSeat возвращает true для любой неотменённой записи: завершённый приём тоже занимает место и подслот
func (r *Registration) OccupiesSeat() bool {
	return r.Status != RegistrationCancelled
}

// HoldsDetailSlot проверяет, что неотменённая запись занимает указанный подслот
func (r *Registration) HoldsDetailSlot(code string) bool {
	return r.OccupiesSeat() && r.DetailSlotCode != nil && *r.DetailSlotCode == code
}
