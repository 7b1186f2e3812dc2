package get_patient_registrations

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/service/registrations"
	"github.com/m04kA/SMC-AppointmentService/internal/service/registrations/models"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgInvalidStatus = "некорректный статус записи"
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

// Handle GET /api/v1/patients/me/registrations
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /patients/me/registrations - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	// Получаем status из query параметров (опционально)
	var statusPtr *string
	if status := r.URL.Query().Get("status"); status != "" {
		statusPtr = &status
	}

	result, err := h.service.GetPatientRegistrations(r.Context(), &models.GetPatientRegistrationsRequest{
		PatientID: patientID,
		Status:    statusPtr,
	})
	if err != nil {
		if errors.Is(err, registrations.ErrInvalidInput) {
			h.logger.Warn("GET /patients/me/registrations - Invalid status: patient_id=%d", patientID)
			handlers.RespondBadRequest(w, msgInvalidStatus)
			return
		}
		h.logger.Error("GET /patients/me/registrations - Failed to get registrations: patient_id=%d, error=%v",
			patientID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /patients/me/registrations - Registrations retrieved: patient_id=%d, count=%d",
		patientID, len(result.Registrations))
	handlers.RespondJSON(w, http.StatusOK, result.Registrations)
}
