package process_refund

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
)

// RegistrationRepository интерфейс репозитория записей
type RegistrationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Registration, error)
	UpdateState(ctx context.Context, reg *domain.Registration, expected domain.RegistrationState) error
}

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	GetByRegistrationID(ctx context.Context, registrationID int64) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, registrationID int64, from, to domain.PaymentStatus, at time.Time) error
}

// Gateway интерфейс платёжного шлюза
type Gateway interface {
	Refund(ctx context.Context, req paymentgateway.RefundRequest) (*paymentgateway.RefundResult, error)
}

// Notifier интерфейс уведомлений
type Notifier interface {
	RefundSucceeded(ctx context.Context, reg *domain.Registration)
}

// Metrics интерфейс метрик возвратов
type Metrics interface {
	ObserveRefundGateway(seconds float64)
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
