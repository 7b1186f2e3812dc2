package cancel_registration

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// RegistrationRepository интерфейс репозитория записей
type RegistrationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Registration, error)
	UpdateState(ctx context.Context, reg *domain.Registration, expected domain.RegistrationState) error
	MarkRefundPublished(ctx context.Context, id int64, at time.Time) error
}

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	GetByRegistrationID(ctx context.Context, registrationID int64) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, registrationID int64, from, to domain.PaymentStatus, at time.Time) error
}

// SeatAllocator освобождение места в расписании
type SeatAllocator interface {
	ReleaseSeat(ctx context.Context, scheduleID int64) error
}

// RefundPublisher отправка задачи возврата в очередь
type RefundPublisher interface {
	PublishRefund(ctx context.Context, task domain.RefundTask) error
}

// Notifier уведомления об отмене
type Notifier interface {
	RegistrationCancelled(ctx context.Context, reg *domain.Registration)
}

// Metrics счётчик публикаций возвратов
type Metrics interface {
	RefundPublished(source string)
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
