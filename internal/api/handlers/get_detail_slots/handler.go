package get_detail_slots

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/service/detailslots"
)

const (
	msgInvalidScheduleID = "некорректный ID расписания"
	msgScheduleNotFound  = "расписание не найдено"
)

type Handler struct {
	service DetailSlotService
	logger  Logger
}

func NewHandler(service DetailSlotService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/schedules/{scheduleId}/detail-slots
// Без X-User-ID причина BOOKED не вычисляется
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := strconv.ParseInt(mux.Vars(r)["scheduleId"], 10, 64)
	if err != nil || scheduleID <= 0 {
		h.logger.Warn("GET /schedules/{id}/detail-slots - Invalid schedule ID: %s", mux.Vars(r)["scheduleId"])
		handlers.RespondBadRequest(w, msgInvalidScheduleID)
		return
	}

	var patientID *int64
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		patientID = &userID
	}

	slots, err := h.service.ListAvailability(r.Context(), scheduleID, patientID)
	if err != nil {
		if errors.Is(err, detailslots.ErrScheduleNotFound) {
			h.logger.Warn("GET /schedules/{id}/detail-slots - Schedule not found: schedule_id=%d", scheduleID)
			handlers.RespondNotFound(w, msgScheduleNotFound)
			return
		}
		h.logger.Error("GET /schedules/{id}/detail-slots - Failed to list detail slots: schedule_id=%d, error=%v",
			scheduleID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /schedules/{id}/detail-slots - Detail slots retrieved: schedule_id=%d, count=%d",
		scheduleID, len(slots))
	handlers.RespondJSON(w, http.StatusOK, FromDomain(slots))
}
