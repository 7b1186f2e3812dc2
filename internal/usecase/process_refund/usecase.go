package process_refund

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	paymentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/payment"
	registrationRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/registration"
)

// UseCase use case обработки задачи возврата из очереди
// Повторная обработка той же задачи безопасна: выполненный возврат даёт OutcomeSkipped
type UseCase struct {
	registrationRepo RegistrationRepository
	paymentRepo      PaymentRepository
	gateway          Gateway
	notifier         Notifier
	metrics          Metrics
	txManager        TransactionManager
	timeProvider     TimeProvider
	logger           Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	registrationRepo RegistrationRepository,
	paymentRepo PaymentRepository,
	gateway Gateway,
	notifier Notifier,
	metrics Metrics,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	if metrics == nil {
		metrics = discardMetrics{}
	}

	return &UseCase{
		registrationRepo: registrationRepo,
		paymentRepo:      paymentRepo,
		gateway:          gateway,
		notifier:         notifier,
		metrics:          metrics,
		txManager:        txManager,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// Execute обрабатывает задачу возврата
// Вызов шлюза выполняется вне транзакции; статусы меняются условными обновлениями from refunding
func (uc *UseCase) Execute(ctx context.Context, task domain.RefundTask) (*Response, error) {
	uc.logger.Info("ProcessRefund: registration=%d, transaction=%s", task.RegistrationID, task.TransactionNo)

	if task.RegistrationID <= 0 {
		uc.logger.Warn("ProcessRefund: malformed task registration=%d", task.RegistrationID)
		return nil, fmt.Errorf("%w: malformed task: registrationID=%d", ErrTerminal, task.RegistrationID)
	}

	// 1. Проверяем состояние без блокировок
	reg, err := uc.registrationRepo.GetByID(ctx, task.RegistrationID)
	if err != nil {
		return nil, uc.classifyStorageError("get registration", task.RegistrationID, err)
	}

	if reg.PaymentStatus == domain.PaymentRefunded {
		uc.logger.Info("ProcessRefund: registration=%d already refunded, skipping", reg.ID)
		return &Response{RegistrationID: reg.ID, Outcome: OutcomeSkipped}, nil
	}
	if reg.PaymentStatus != domain.PaymentRefunding {
		uc.logger.Warn("ProcessRefund: registration=%d payment=%s is not refunding", reg.ID, reg.PaymentStatus)
		return nil, fmt.Errorf("%w: %v: payment=%s", ErrTerminal, domain.ErrNotRefunding, reg.PaymentStatus)
	}

	payment, err := uc.paymentRepo.GetByRegistrationID(ctx, reg.ID)
	if err != nil {
		return nil, uc.classifyStorageError("get payment", reg.ID, err)
	}

	if task.Amount != 0 && task.Amount != payment.Amount {
		uc.logger.Warn("ProcessRefund: task amount %d differs from payment amount %d for registration=%d, using payment",
			task.Amount, payment.Amount, reg.ID)
	}

	// 2. Шлюз; может выполняться секунды, блокировки не держим
	refund, err := uc.callGateway(ctx, reg, payment)
	if err != nil {
		return nil, err
	}

	// 3. Фиксируем возврат
	now := uc.timeProvider.Now()
	outcome := OutcomeRefunded
	var settled *domain.Registration

	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		current, err := uc.registrationRepo.GetByID(txCtx, reg.ID)
		if err != nil {
			return uc.classifyStorageError("lock registration", reg.ID, err)
		}

		if current.PaymentStatus == domain.PaymentRefunded {
			outcome = OutcomeSkipped
			return nil
		}

		expected := current.State()
		if err := current.SettleRefund(now); err != nil {
			uc.logger.Warn("ProcessRefund: registration=%d cannot be settled: %v", reg.ID, err)
			return fmt.Errorf("%w: %v", ErrTerminal, err)
		}

		if err := uc.paymentRepo.UpdateStatus(txCtx, reg.ID, domain.PaymentRefunding, domain.PaymentRefunded, now); err != nil {
			if errors.Is(err, paymentRepo.ErrStateConflict) {
				uc.logger.Warn("ProcessRefund: payment for registration=%d is not refunding anymore", reg.ID)
				return fmt.Errorf("%w: payment state conflict", ErrTerminal)
			}
			uc.logger.Error("ProcessRefund: failed to update payment for registration=%d: %v", reg.ID, err)
			return fmt.Errorf("%w: failed to update payment: %v", ErrRetryable, err)
		}

		if err := uc.registrationRepo.UpdateState(txCtx, current, expected); err != nil {
			uc.logger.Error("ProcessRefund: failed to update registration=%d: %v", reg.ID, err)
			return fmt.Errorf("%w: failed to update registration: %v", ErrRetryable, err)
		}

		settled = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome == OutcomeSkipped {
		uc.logger.Info("ProcessRefund: registration=%d settled concurrently, skipping", reg.ID)
		return &Response{RegistrationID: reg.ID, Outcome: OutcomeSkipped, RefundID: refund.RefundID}, nil
	}

	uc.notifier.RefundSucceeded(ctx, settled)

	uc.logger.Info("ProcessRefund: registration=%d refunded, refund=%s", reg.ID, refund.RefundID)
	return &Response{RegistrationID: reg.ID, Outcome: OutcomeRefunded, RefundID: refund.RefundID}, nil
}

func (uc *UseCase) callGateway(ctx context.Context, reg *domain.Registration, payment *domain.Payment) (*paymentgateway.RefundResult, error) {
	start := time.Now()
	refund, err := uc.gateway.Refund(ctx, paymentgateway.RefundRequest{
		TransactionNo:  payment.TransactionNo,
		RegistrationNo: reg.RegistrationNo,
		Amount:         payment.Amount,
	})
	uc.metrics.ObserveRefundGateway(time.Since(start).Seconds())

	if err == nil {
		return refund, nil
	}

	if errors.Is(err, paymentgateway.ErrRejected) || errors.Is(err, paymentgateway.ErrInvalidRequest) {
		uc.logger.Error("ProcessRefund: gateway rejected refund for registration=%d: %v", reg.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrTerminal, err)
	}

	uc.logger.Warn("ProcessRefund: gateway failed for registration=%d: %v", reg.ID, err)
	return nil, fmt.Errorf("%w: %v", ErrRetryable, err)
}

func (uc *UseCase) classifyStorageError(step string, registrationID int64, err error) error {
	if errors.Is(err, registrationRepo.ErrRegistrationNotFound) || errors.Is(err, paymentRepo.ErrPaymentNotFound) {
		uc.logger.Warn("ProcessRefund: %s for registration=%d: %v", step, registrationID, err)
		return fmt.Errorf("%w: %s: %v", ErrTerminal, step, err)
	}
	uc.logger.Error("ProcessRefund: failed to %s for registration=%d: %v", step, registrationID, err)
	return fmt.Errorf("%w: %s: %v", ErrRetryable, step, err)
}

type discardMetrics struct{}

func (discardMetrics) ObserveRefundGateway(float64) {}
