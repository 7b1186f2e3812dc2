package cancel_registration

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	cancelRegistration "github.com/m04kA/SMC-AppointmentService/internal/usecase/cancel_registration"
)

const (
	msgInvalidRegistrationID = "некорректный ID записи"
	msgMissingUserID         = "отсутствует ID пользователя"
	msgNotFound              = "запись не найдена"
	msgForbidden             = "доступ запрещен"
	msgAlreadyCancelled      = "запись уже отменена"
	msgAlreadyCompleted      = "приём уже завершён"
	msgVisitInProgress       = "пациент уже на приёме, отмена невозможна"
)

type Handler struct {
	useCase CancelRegistrationUseCase
	logger  Logger
}

func NewHandler(useCase CancelRegistrationUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/registrations/{registrationId}/cancel
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	registrationID, err := strconv.ParseInt(mux.Vars(r)["registrationId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /registrations/{id}/cancel - Invalid registration ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRegistrationID)
		return
	}

	patientID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PATCH /registrations/{id}/cancel - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &cancelRegistration.Request{
		RegistrationID: registrationID,
		PatientID:      patientID,
	})
	if err != nil {
		switch {
		case errors.Is(err, cancelRegistration.ErrInvalidInput):
			h.logger.Warn("PATCH /registrations/{id}/cancel - Invalid input: registration_id=%d", registrationID)
			handlers.RespondBadRequest(w, msgInvalidRegistrationID)

		case errors.Is(err, cancelRegistration.ErrRegistrationNotFound):
			h.logger.Warn("PATCH /registrations/{id}/cancel - Registration not found: registration_id=%d", registrationID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, cancelRegistration.ErrAccessDenied):
			h.logger.Warn("PATCH /registrations/{id}/cancel - Access denied: registration_id=%d, patient_id=%d",
				registrationID, patientID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, domain.ErrAlreadyCancelled):
			h.logger.Warn("PATCH /registrations/{id}/cancel - Already cancelled: registration_id=%d", registrationID)
			handlers.RespondConflict(w, msgAlreadyCancelled)

		case errors.Is(err, domain.ErrAlreadyCompleted):
			h.logger.Warn("PATCH /registrations/{id}/cancel - Already completed: registration_id=%d", registrationID)
			handlers.RespondConflict(w, msgAlreadyCompleted)

		case errors.Is(err, domain.ErrVisitInProgress):
			h.logger.Warn("PATCH /registrations/{id}/cancel - Visit in progress: registration_id=%d", registrationID)
			handlers.RespondConflict(w, msgVisitInProgress)

		default:
			h.logger.Error("PATCH /registrations/{id}/cancel - Failed to cancel registration: registration_id=%d, error=%v",
				registrationID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /registrations/{id}/cancel - Registration cancelled: registration_id=%d, patient_id=%d, refund_queued=%t",
		registrationID, patientID, result.RefundQueued)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
