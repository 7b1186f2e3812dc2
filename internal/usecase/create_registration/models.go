package create_registration

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Request модель запроса на создание записи
type Request struct {
	ScheduleID     int64   // ID расписания врача
	PatientID      int64   // ID пациента (из заголовка X-User-ID)
	Symptom        *string // Жалобы (опционально)
	DetailSlotCode *string // Код 30-минутного подслота (опционально)
}

// Response модель ответа с созданной записью
type Response struct {
	ID             int64
	RegistrationNo string
	PatientID      int64
	DoctorID       int64
	ScheduleID     int64
	QueueNumber    int
	DetailSlotCode *string
	DetailSlotTime *string // "08:00-08:30"
	Symptom        *string
	Fee            int64
	Status         string
	PaymentStatus  string

	// Денормализованные данные расписания
	DoctorName     string
	DepartmentName string
	ScheduleDate   time.Time
	Period         string
	RemainingSeats int

	CreatedAt time.Time
}

func newResponse(reg *domain.Registration, schedule *domain.Schedule, slot *domain.DetailSlot, remaining int) *Response {
	resp := &Response{
		ID:             reg.ID,
		RegistrationNo: reg.RegistrationNo,
		PatientID:      reg.PatientID,
		DoctorID:       reg.DoctorID,
		ScheduleID:     reg.ScheduleID,
		QueueNumber:    reg.QueueNumber,
		DetailSlotCode: reg.DetailSlotCode,
		Symptom:        reg.Symptom,
		Fee:            reg.Fee,
		Status:         string(reg.Status),
		PaymentStatus:  string(reg.PaymentStatus),
		DoctorName:     schedule.DoctorName,
		DepartmentName: schedule.DepartmentName,
		ScheduleDate:   schedule.ScheduleDate,
		Period:         string(schedule.Period),
		RemainingSeats: remaining,
		CreatedAt:      reg.CreatedAt,
	}

	if slot != nil {
		timeRange := slot.TimeRange()
		resp.DetailSlotTime = &timeRange
	}

	return resp
}
