package get_detail_slots

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

type DetailSlotService interface {
	ListAvailability(ctx context.Context, scheduleID int64, patientID *int64) ([]domain.DetailSlotAvailability, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
