package confirm_payment

import (
	"time"

	confirmPayment "github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
)

// ConfirmPaymentRequest HTTP request model
type ConfirmPaymentRequest struct {
	Amount        int64   `json:"amount"`
	TransactionNo *string `json:"transactionNo,omitempty"` // charge id платёжного шлюза
}

// PaymentResponse HTTP response model
type PaymentResponse struct {
	ID             int64  `json:"id"`
	RegistrationNo string `json:"registrationNo"`
	Status         string `json:"status"`
	PaymentStatus  string `json:"paymentStatus"`
	TransactionNo  string `json:"transactionNo"`
	Amount         int64  `json:"amount"`
	PaidAt         string `json:"paidAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *ConfirmPaymentRequest) ToUseCaseRequest(registrationID, patientID int64) *confirmPayment.Request {
	return &confirmPayment.Request{
		RegistrationID: registrationID,
		PatientID:      patientID,
		Amount:         r.Amount,
		TransactionNo:  r.TransactionNo,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *confirmPayment.Response) *PaymentResponse {
	return &PaymentResponse{
		ID:             resp.ID,
		RegistrationNo: resp.RegistrationNo,
		Status:         resp.Status,
		PaymentStatus:  resp.PaymentStatus,
		TransactionNo:  resp.TransactionNo,
		Amount:         resp.Amount,
		PaidAt:         resp.PaidAt.Format(time.RFC3339),
	}
}
