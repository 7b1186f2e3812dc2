package create_registration

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/allocator"
)

// SeatAllocator резервирование места в расписании
type SeatAllocator interface {
	ReserveSeat(ctx context.Context, scheduleID int64) (*allocator.Reservation, error)
}

// DetailSlotValidator проверка выбора подслота
type DetailSlotValidator interface {
	ValidateChoice(ctx context.Context, scheduleID, patientID int64, code string) (domain.DetailSlot, error)
}

// RegistrationRepository интерфейс репозитория записей
type RegistrationRepository interface {
	Create(ctx context.Context, reg *domain.Registration) (*domain.Registration, error)
}

// Notifier уведомления о записи
type Notifier interface {
	RegistrationCreated(ctx context.Context, reg *domain.Registration)
}

// RegistrationNoGenerator генератор номера записи
type RegistrationNoGenerator interface {
	Generate(now time.Time) string
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
