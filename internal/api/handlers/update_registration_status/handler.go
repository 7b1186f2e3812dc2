package update_registration_status

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/registrations"
	"github.com/m04kA/SMC-AppointmentService/internal/service/registrations/models"
)

const (
	msgInvalidRegistrationID = "некорректный ID записи"
	msgInvalidRequestBody    = "некорректное тело запроса"
	msgUnknownAction         = "неизвестное действие"
	msgInvalidInput          = "некорректные данные"
	msgNotFound              = "запись не найдена"
	msgAlreadyCancelled      = "запись уже отменена"
	msgAlreadyCompleted      = "приём уже завершён"
	msgAlreadyCheckedIn      = "пациент уже отмечен"
	msgIllegalTransition     = "переход статуса недопустим"
)

type Handler struct {
	service RegistrationService
	logger  Logger
}

func NewHandler(service RegistrationService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/registrations/{registrationId}/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	registrationID, err := strconv.ParseInt(mux.Vars(r)["registrationId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /registrations/{id}/status - Invalid registration ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRegistrationID)
		return
	}

	var req UpdateStatusRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /registrations/{id}/status - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	var result *models.RegistrationResponse
	switch req.Action {
	case ActionConfirm:
		result, err = h.service.ConfirmRegistration(r.Context(), registrationID)
	case ActionCheckIn:
		result, err = h.service.CheckIn(r.Context(), registrationID)
	case ActionComplete:
		result, err = h.service.CompleteRegistration(r.Context(), registrationID, req.VisitRecord)
	default:
		h.logger.Warn("PATCH /registrations/{id}/status - Unknown action: registration_id=%d, action=%s", registrationID, req.Action)
		handlers.RespondBadRequest(w, msgUnknownAction)
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, registrations.ErrInvalidInput):
			h.logger.Warn("PATCH /registrations/{id}/status - Invalid input: registration_id=%d, error=%v", registrationID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, registrations.ErrRegistrationNotFound):
			h.logger.Warn("PATCH /registrations/{id}/status - Registration not found: registration_id=%d", registrationID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, domain.ErrAlreadyCancelled):
			handlers.RespondConflict(w, msgAlreadyCancelled)

		case errors.Is(err, domain.ErrAlreadyCompleted):
			handlers.RespondConflict(w, msgAlreadyCompleted)

		case errors.Is(err, domain.ErrAlreadyCheckedIn):
			handlers.RespondConflict(w, msgAlreadyCheckedIn)

		case errors.Is(err, domain.ErrIllegalTransition):
			h.logger.Warn("PATCH /registrations/{id}/status - Illegal transition: registration_id=%d, action=%s", registrationID, req.Action)
			handlers.RespondConflict(w, msgIllegalTransition)

		default:
			h.logger.Error("PATCH /registrations/{id}/status - Failed to update registration: registration_id=%d, action=%s, error=%v",
				registrationID, req.Action, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /registrations/{id}/status - Registration updated: registration_id=%d, action=%s, status=%s",
		registrationID, req.Action, result.Status)
	handlers.RespondJSON(w, http.StatusOK, result)
}
