package create_registration

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	createRegistration "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_registration"
)

// CreateRegistrationRequest HTTP request model
type CreateRegistrationRequest struct {
	ScheduleID     int64   `json:"scheduleId"`
	Symptom        *string `json:"symptom,omitempty"`
	DetailSlotCode *string `json:"detailSlotCode,omitempty"` // "M01"
}

// RegistrationResponse HTTP response model
type RegistrationResponse struct {
	ID             int64   `json:"id"`
	RegistrationNo string  `json:"registrationNo"`
	PatientID      int64   `json:"patientId"`
	DoctorID       int64   `json:"doctorId"`
	ScheduleID     int64   `json:"scheduleId"`
	QueueNumber    int     `json:"queueNumber"`
	DetailSlotCode *string `json:"detailSlotCode,omitempty"`
	DetailSlotTime *string `json:"detailSlotTime,omitempty"`
	Symptom        *string `json:"symptom,omitempty"`
	Fee            int64   `json:"fee"`
	Status         string  `json:"status"`
	PaymentStatus  string  `json:"paymentStatus"`
	DoctorName     string  `json:"doctorName"`
	DepartmentName string  `json:"departmentName"`
	ScheduleDate   string  `json:"scheduleDate"` // "2026-03-01"
	Period         string  `json:"period"`
	RemainingSeats int     `json:"remainingSeats"`
	CreatedAt      string  `json:"createdAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateRegistrationRequest) ToUseCaseRequest(patientID int64) *createRegistration.Request {
	return &createRegistration.Request{
		ScheduleID:     r.ScheduleID,
		PatientID:      patientID,
		Symptom:        r.Symptom,
		DetailSlotCode: r.DetailSlotCode,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createRegistration.Response) *RegistrationResponse {
	return &RegistrationResponse{
		ID:             resp.ID,
		RegistrationNo: resp.RegistrationNo,
		PatientID:      resp.PatientID,
		DoctorID:       resp.DoctorID,
		ScheduleID:     resp.ScheduleID,
		QueueNumber:    resp.QueueNumber,
		DetailSlotCode: resp.DetailSlotCode,
		DetailSlotTime: resp.DetailSlotTime,
		Symptom:        resp.Symptom,
		Fee:            resp.Fee,
		Status:         resp.Status,
		PaymentStatus:  resp.PaymentStatus,
		DoctorName:     resp.DoctorName,
		DepartmentName: resp.DepartmentName,
		ScheduleDate:   resp.ScheduleDate.Format(domain.DateFormat),
		Period:         resp.Period,
		RemainingSeats: resp.RemainingSeats,
		CreatedAt:      resp.CreatedAt.Format(time.RFC3339),
	}
}
