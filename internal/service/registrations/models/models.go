package models

import (
	"errors"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid registration status")
)

// Request модели

// GetPatientRegistrationsRequest запрос на получение записей пациента
type GetPatientRegistrationsRequest struct {
	PatientID int64   `json:"patientId"`
	Status    *string `json:"status,omitempty"`
}

// Response модели

// RegistrationResponse ответ с данными записи
type RegistrationResponse struct {
	ID             int64   `json:"id"`
	RegistrationNo string  `json:"registrationNo"`
	PatientID      int64   `json:"patientId"`
	DoctorID       int64   `json:"doctorId"`
	ScheduleID     int64   `json:"scheduleId"`
	QueueNumber    int     `json:"queueNumber"`
	DetailSlotCode *string `json:"detailSlotCode,omitempty"`
	DetailSlotTime *string `json:"detailSlotTime,omitempty"` // "08:00-08:30"
	Symptom        *string `json:"symptom,omitempty"`
	Fee            int64   `json:"fee"`
	Status         string  `json:"status"`
	PaymentStatus  string  `json:"paymentStatus"`

	PaidAt      *string `json:"paidAt,omitempty"` // ISO 8601 format
	RefundedAt  *string `json:"refundedAt,omitempty"`
	CancelledAt *string `json:"cancelledAt,omitempty"`
	CheckedInAt *string `json:"checkedInAt,omitempty"`
	CompletedAt *string `json:"completedAt,omitempty"`
	VisitRecord *string `json:"visitRecord,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RegistrationListResponse ответ со списком записей
type RegistrationListResponse struct {
	Registrations []RegistrationResponse `json:"registrations"`
}

// Методы конвертации

// FromDomainRegistration конвертирует domain модель в DTO
func FromDomainRegistration(r *domain.Registration) *RegistrationResponse {
	if r == nil {
		return nil
	}

	resp := &RegistrationResponse{
		ID:             r.ID,
		RegistrationNo: r.RegistrationNo,
		PatientID:      r.PatientID,
		DoctorID:       r.DoctorID,
		ScheduleID:     r.ScheduleID,
		QueueNumber:    r.QueueNumber,
		DetailSlotCode: r.DetailSlotCode,
		Symptom:        r.Symptom,
		Fee:            r.Fee,
		Status:         string(r.Status),
		PaymentStatus:  string(r.PaymentStatus),
		PaidAt:         formatTime(r.PaidAt),
		RefundedAt:     formatTime(r.RefundedAt),
		CancelledAt:    formatTime(r.CancelledAt),
		CheckedInAt:    formatTime(r.CheckedInAt),
		CompletedAt:    formatTime(r.CompletedAt),
		VisitRecord:    r.VisitRecord,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}

	if r.DetailSlotCode != nil {
		if slot, ok := domain.FindDetailSlot(*r.DetailSlotCode); ok {
			timeRange := slot.TimeRange()
			resp.DetailSlotTime = &timeRange
		}
	}

	return resp
}

// FromDomainRegistrationList конвертирует список domain моделей в DTO
func FromDomainRegistrationList(registrations []*domain.Registration) *RegistrationListResponse {
	resp := &RegistrationListResponse{
		Registrations: make([]RegistrationResponse, 0, len(registrations)),
	}

	for _, r := range registrations {
		resp.Registrations = append(resp.Registrations, *FromDomainRegistration(r))
	}

	return resp
}

// ToDomainRegistrationStatus конвертирует строку в domain статус
func ToDomainRegistrationStatus(status string) (domain.RegistrationStatus, error) {
	switch domain.RegistrationStatus(status) {
	case domain.RegistrationPending,
		domain.RegistrationConfirmed,
		domain.RegistrationCompleted,
		domain.RegistrationCancelled:
		return domain.RegistrationStatus(status), nil
	default:
		return "", ErrInvalidStatus
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
