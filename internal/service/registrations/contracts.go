package registrations

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// RegistrationRepository интерфейс репозитория записей
type RegistrationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Registration, error)
	GetByPatientID(ctx context.Context, patientID int64, status *domain.RegistrationStatus) ([]*domain.Registration, error)
	UpdateState(ctx context.Context, reg *domain.Registration, expected domain.RegistrationState) error
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
