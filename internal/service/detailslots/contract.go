package detailslots

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// ScheduleRepository интерфейс репозитория расписаний
type ScheduleRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Schedule, error)
}

// RegistrationRepository интерфейс репозитория записей
type RegistrationRepository interface {
	CountActiveByDetailSlot(ctx context.Context, scheduleID int64) (map[string]int, error)
	GetActiveDetailSlotCodes(ctx context.Context, scheduleID, patientID int64) ([]string, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
