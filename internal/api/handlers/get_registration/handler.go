package get_registration

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/service/registrations"
)

const (
	msgInvalidRegistrationID = "некорректный ID записи"
	msgNotFound              = "запись не найдена"
	msgMissingUserID         = "отсутствует ID пользователя"
	msgForbidden             = "доступ запрещен"
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

// Handle GET /api/v1/registrations/{registrationId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	registrationID, err := strconv.ParseInt(mux.Vars(r)["registrationId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /registrations/{id} - Invalid registration ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRegistrationID)
		return
	}

	patientID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /registrations/{id} - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	// Сервис сам проверит, что запись принадлежит пациенту
	registration, err := h.service.GetByID(r.Context(), registrationID, patientID)
	if err != nil {
		switch {
		case errors.Is(err, registrations.ErrRegistrationNotFound):
			h.logger.Warn("GET /registrations/{id} - Registration not found: registration_id=%d", registrationID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, registrations.ErrAccessDenied):
			h.logger.Warn("GET /registrations/{id} - Access denied: registration_id=%d, patient_id=%d", registrationID, patientID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("GET /registrations/{id} - Failed to get registration: registration_id=%d, error=%v", registrationID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /registrations/{id} - Registration retrieved: registration_id=%d, patient_id=%d",
		registrationID, patientID)
	handlers.RespondJSON(w, http.StatusOK, registration)
}
