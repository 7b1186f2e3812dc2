package refund

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/process_refund"
)

// DeliverySource источник сообщений очереди возвратов
type DeliverySource interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// Processor обработчик задачи возврата
type Processor interface {
	Execute(ctx context.Context, task domain.RefundTask) (*process_refund.Response, error)
}

// RefundPublisher публикует задачи возврата
type RefundPublisher interface {
	PublishRefund(ctx context.Context, task domain.RefundTask) error
	PublishRefundAttempt(ctx context.Context, task domain.RefundTask, attempt int) error
}

// RegistrationRepository интерфейс репозитория записей для reconciler
type RegistrationRepository interface {
	GetUnpublishedRefunds(ctx context.Context, before time.Time, limit int) ([]*domain.Registration, error)
	MarkRefundPublished(ctx context.Context, id int64, at time.Time) error
}

// PaymentRepository интерфейс репозитория платежей для reconciler
type PaymentRepository interface {
	GetByRegistrationID(ctx context.Context, registrationID int64) (*domain.Payment, error)
}

// Metrics интерфейс метрик возвратов
type Metrics interface {
	RefundProcessed(outcome string)
	RefundPublished(source string)
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

type discardMetrics struct{}

func (discardMetrics) RefundProcessed(string) {}
func (discardMetrics) RefundPublished(string) {}
