package cancel_registration

import (
	"time"

	cancelRegistration "github.com/m04kA/SMC-AppointmentService/internal/usecase/cancel_registration"
)

// CancelRegistrationResponse HTTP response model
type CancelRegistrationResponse struct {
	ID             int64  `json:"id"`
	RegistrationNo string `json:"registrationNo"`
	Status         string `json:"status"`
	PaymentStatus  string `json:"paymentStatus"`
	CancelledAt    string `json:"cancelledAt"`
	RefundQueued   bool   `json:"refundQueued"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *cancelRegistration.Response) *CancelRegistrationResponse {
	return &CancelRegistrationResponse{
		ID:             resp.ID,
		RegistrationNo: resp.RegistrationNo,
		Status:         resp.Status,
		PaymentStatus:  resp.PaymentStatus,
		CancelledAt:    resp.CancelledAt.Format(time.RFC3339),
		RefundQueued:   resp.RefundQueued,
	}
}
