package confirm_payment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	confirmPayment "github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
)

const (
	msgInvalidRegistrationID = "некорректный ID записи"
	msgInvalidRequestBody    = "некорректное тело запроса"
	msgMissingUserID         = "отсутствует ID пользователя"
	msgInvalidInput          = "некорректные данные оплаты"
	msgNotFound              = "запись не найдена"
	msgForbidden             = "доступ запрещен"
	msgAlreadyPaid           = "запись уже оплачена"
	msgAmountMismatch        = "сумма не совпадает со стоимостью приёма"
	msgRegistrationClosed    = "запись отменена или завершена"
	msgDuplicateTransaction  = "транзакция уже использована"
)

type Handler struct {
	useCase ConfirmPaymentUseCase
	logger  Logger
}

func NewHandler(useCase ConfirmPaymentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/registrations/{registrationId}/payment
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	registrationID, err := strconv.ParseInt(mux.Vars(r)["registrationId"], 10, 64)
	if err != nil {
		h.logger.Warn("POST /registrations/{id}/payment - Invalid registration ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRegistrationID)
		return
	}

	patientID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /registrations/{id}/payment - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req ConfirmPaymentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /registrations/{id}/payment - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(registrationID, patientID))
	if err != nil {
		switch {
		case errors.Is(err, confirmPayment.ErrInvalidInput):
			h.logger.Warn("POST /registrations/{id}/payment - Invalid input: registration_id=%d, error=%v", registrationID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, confirmPayment.ErrRegistrationNotFound):
			h.logger.Warn("POST /registrations/{id}/payment - Registration not found: registration_id=%d", registrationID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, confirmPayment.ErrAccessDenied):
			h.logger.Warn("POST /registrations/{id}/payment - Access denied: registration_id=%d, patient_id=%d",
				registrationID, patientID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, domain.ErrAlreadyPaid):
			h.logger.Warn("POST /registrations/{id}/payment - Already paid: registration_id=%d", registrationID)
			handlers.RespondConflict(w, msgAlreadyPaid)

		case errors.Is(err, confirmPayment.ErrAmountMismatch):
			h.logger.Warn("POST /registrations/{id}/payment - Amount mismatch: registration_id=%d, amount=%d",
				registrationID, req.Amount)
			handlers.RespondBadRequest(w, msgAmountMismatch)

		case errors.Is(err, domain.ErrRegistrationClosed):
			h.logger.Warn("POST /registrations/{id}/payment - Registration closed: registration_id=%d", registrationID)
			handlers.RespondConflict(w, msgRegistrationClosed)

		case errors.Is(err, confirmPayment.ErrDuplicateTransaction):
			h.logger.Warn("POST /registrations/{id}/payment - Duplicate transaction: registration_id=%d", registrationID)
			handlers.RespondConflict(w, msgDuplicateTransaction)

		default:
			h.logger.Error("POST /registrations/{id}/payment - Failed to confirm payment: registration_id=%d, error=%v",
				registrationID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /registrations/{id}/payment - Payment confirmed: registration_id=%d, transaction=%s",
		registrationID, result.TransactionNo)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
