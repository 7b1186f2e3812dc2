package create_registration

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/service/allocator"
	"github.com/m04kA/SMC-AppointmentService/internal/service/detailslots"
	createRegistration "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_registration"
)

const (
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgMissingUserID       = "отсутствует ID пользователя"
	msgInvalidInput        = "некорректные данные записи"
	msgScheduleNotFound    = "расписание не найдено"
	msgScheduleNotBookable = "запись на это расписание закрыта"
	msgScheduleFull        = "свободных мест нет"
	msgScheduleExpired     = "дата приёма уже прошла"
	msgUnknownDetailSlot   = "неизвестный подслот"
	msgPeriodMismatch      = "подслот не относится к блоку расписания"
	msgDetailSlotFull      = "в выбранном подслоте нет мест"
	msgDuplicateDetailSlot = "вы уже записаны на этот подслот"
	msgRegistrationNoTaken = "не удалось выдать номер записи, повторите запрос"
)

type Handler struct {
	useCase CreateRegistrationUseCase
	logger  Logger
}

func NewHandler(useCase CreateRegistrationUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/registrations
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /registrations - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateRegistrationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /registrations - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(patientID))
	if err != nil {
		switch {
		case errors.Is(err, createRegistration.ErrInvalidInput):
			h.logger.Warn("POST /registrations - Invalid input: patient_id=%d, error=%v", patientID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, allocator.ErrScheduleNotFound), errors.Is(err, detailslots.ErrScheduleNotFound):
			h.logger.Warn("POST /registrations - Schedule not found: schedule_id=%d", req.ScheduleID)
			handlers.RespondNotFound(w, msgScheduleNotFound)

		case errors.Is(err, allocator.ErrScheduleNotBookable):
			h.logger.Warn("POST /registrations - Schedule not bookable: schedule_id=%d", req.ScheduleID)
			handlers.RespondConflict(w, msgScheduleNotBookable)

		case errors.Is(err, allocator.ErrScheduleFull):
			h.logger.Warn("POST /registrations - Schedule full: schedule_id=%d, patient_id=%d", req.ScheduleID, patientID)
			handlers.RespondConflict(w, msgScheduleFull)

		case errors.Is(err, allocator.ErrScheduleExpired):
			h.logger.Warn("POST /registrations - Schedule expired: schedule_id=%d", req.ScheduleID)
			handlers.RespondBadRequest(w, msgScheduleExpired)

		case errors.Is(err, detailslots.ErrUnknownDetailSlot):
			h.logger.Warn("POST /registrations - Unknown detail slot: schedule_id=%d", req.ScheduleID)
			handlers.RespondBadRequest(w, msgUnknownDetailSlot)

		case errors.Is(err, detailslots.ErrDetailSlotPeriodMismatch):
			h.logger.Warn("POST /registrations - Detail slot period mismatch: schedule_id=%d", req.ScheduleID)
			handlers.RespondBadRequest(w, msgPeriodMismatch)

		case errors.Is(err, detailslots.ErrDetailSlotFull):
			h.logger.Warn("POST /registrations - Detail slot full: schedule_id=%d", req.ScheduleID)
			handlers.RespondConflict(w, msgDetailSlotFull)

		case errors.Is(err, detailslots.ErrDuplicateDetailSlotBooking):
			h.logger.Warn("POST /registrations - Duplicate detail slot: schedule_id=%d, patient_id=%d", req.ScheduleID, patientID)
			handlers.RespondConflict(w, msgDuplicateDetailSlot)

		case errors.Is(err, createRegistration.ErrDuplicateRegistrationNo):
			h.logger.Error("POST /registrations - Registration number collisions exhausted: schedule_id=%d", req.ScheduleID)
			handlers.RespondError(w, http.StatusServiceUnavailable, msgRegistrationNoTaken)

		default:
			h.logger.Error("POST /registrations - Failed to create registration: schedule_id=%d, patient_id=%d, error=%v",
				req.ScheduleID, patientID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /registrations - Registration created: id=%d, no=%s, queue=%d, patient_id=%d",
		result.ID, result.RegistrationNo, result.QueueNumber, patientID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}
