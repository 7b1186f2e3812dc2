package notification

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Routing keys событий
const (
	KeyRegistrationCreated   = "registration.created"
	KeyRegistrationCancelled = "registration.cancelled"
	KeyRefundSucceeded       = "refund.succeeded"
)

// EventVersion версия формата событий
const EventVersion = 1

// Event событие о записи для сервиса уведомлений
type Event struct {
	Event          string    `json:"event"`
	Version        int       `json:"version"`
	RegistrationID int64     `json:"registrationId"`
	RegistrationNo string    `json:"registrationNo"`
	PatientID      int64     `json:"patientId"`
	DoctorID       int64     `json:"doctorId"`
	ScheduleID     int64     `json:"scheduleId"`
	QueueNumber    int       `json:"queueNumber"`
	DetailSlotCode *string   `json:"detailSlotCode,omitempty"`
	Amount         int64     `json:"amount"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"paymentStatus"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// NewEvent собирает событие по записи
func NewEvent(key string, reg *domain.Registration, at time.Time) Event {
	return Event{
		Event:          key,
		Version:        EventVersion,
		RegistrationID: reg.ID,
		RegistrationNo: reg.RegistrationNo,
		PatientID:      reg.PatientID,
		DoctorID:       reg.DoctorID,
		ScheduleID:     reg.ScheduleID,
		QueueNumber:    reg.QueueNumber,
		DetailSlotCode: reg.DetailSlotCode,
		Amount:         reg.Fee,
		Status:         string(reg.Status),
		PaymentStatus:  string(reg.PaymentStatus),
		OccurredAt:     at,
	}
}
