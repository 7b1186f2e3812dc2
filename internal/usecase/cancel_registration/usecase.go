package cancel_registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	registrationRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/registration"
)

// refundSourceCancel метка метрики публикации из отмены
const refundSourceCancel = "cancel"

// UseCase use case для отмены записи
type UseCase struct {
	registrationRepo RegistrationRepository
	paymentRepo      PaymentRepository
	allocator        SeatAllocator
	refunds          RefundPublisher
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
	allocator SeatAllocator,
	refunds RefundPublisher,
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
		allocator:        allocator,
		refunds:          refunds,
		notifier:         notifier,
		metrics:          metrics,
		txManager:        txManager,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// Execute выполняет use case отмены записи
// В одной транзакции: блокировка записи, переход в cancelled, освобождение места,
// для оплаченной записи перевод записи и платежа в refunding.
// Задача возврата публикуется после коммита; ошибка публикации не откатывает отмену,
// запись подберёт reconciler.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CancelRegistration: registration=%d, patient=%d", req.RegistrationID, req.PatientID)

	if req.RegistrationID <= 0 || req.PatientID <= 0 {
		return nil, fmt.Errorf("%w: registrationID and patientID must be positive", ErrInvalidInput)
	}

	now := uc.timeProvider.Now()

	var (
		reg  *domain.Registration
		task *domain.RefundTask
	)

	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		// 1. Блокируем запись
		var err error
		reg, err = uc.registrationRepo.GetByID(txCtx, req.RegistrationID)
		if err != nil {
			if errors.Is(err, registrationRepo.ErrRegistrationNotFound) {
				uc.logger.Warn("CancelRegistration: registration=%d not found", req.RegistrationID)
				return ErrRegistrationNotFound
			}
			uc.logger.Error("CancelRegistration: failed to get registration=%d: %v", req.RegistrationID, err)
			return fmt.Errorf("%w: failed to get registration: %v", ErrInternal, err)
		}

		if reg.PatientID != req.PatientID {
			uc.logger.Warn("CancelRegistration: patient=%d does not own registration=%d", req.PatientID, req.RegistrationID)
			return ErrAccessDenied
		}

		// 2. Переход по таблице; повторная отмена отклоняется здесь и место второй раз не освобождается
		expected := reg.State()
		if err := reg.Cancel(now); err != nil {
			uc.logger.Warn("CancelRegistration: registration=%d cannot be cancelled: %v", req.RegistrationID, err)
			return err
		}

		// 3. Освобождаем место
		if err := uc.allocator.ReleaseSeat(txCtx, reg.ScheduleID); err != nil {
			uc.logger.Error("CancelRegistration: failed to release seat in schedule=%d: %v", reg.ScheduleID, err)
			return fmt.Errorf("%w: failed to release seat: %v", ErrInternal, err)
		}

		// 4. Оплаченная запись уходит в возврат
		if reg.PaymentStatus == domain.PaymentPaid {
			refundTask, err := uc.startRefund(txCtx, reg, now)
			if err != nil {
				return err
			}
			task = refundTask
		}

		// 5. Сохраняем запись
		if err := uc.registrationRepo.UpdateState(txCtx, reg, expected); err != nil {
			uc.logger.Error("CancelRegistration: failed to update registration=%d: %v", reg.ID, err)
			return fmt.Errorf("%w: failed to update registration: %v", ErrInternal, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// 6. После коммита: публикация возврата и уведомление
	queued := false
	if task != nil {
		queued = uc.publishRefund(ctx, *task)
	}

	uc.notifier.RegistrationCancelled(ctx, reg)

	uc.logger.Info("CancelRegistration: registration=%d cancelled, payment=%s, refundQueued=%t",
		reg.ID, reg.PaymentStatus, queued)

	return &Response{
		ID:             reg.ID,
		RegistrationNo: reg.RegistrationNo,
		Status:         string(reg.Status),
		PaymentStatus:  string(reg.PaymentStatus),
		CancelledAt:    now,
		RefundQueued:   queued,
	}, nil
}

// startRefund переводит запись и платёж в refunding в текущей транзакции
func (uc *UseCase) startRefund(ctx context.Context, reg *domain.Registration, now time.Time) (*domain.RefundTask, error) {
	payment, err := uc.paymentRepo.GetByRegistrationID(ctx, reg.ID)
	if err != nil {
		uc.logger.Error("CancelRegistration: failed to get payment for registration=%d: %v", reg.ID, err)
		return nil, fmt.Errorf("%w: failed to get payment: %v", ErrInternal, err)
	}

	from := payment.Status
	if err := payment.StartRefund(now); err != nil {
		uc.logger.Error("CancelRegistration: payment for registration=%d in status %s: %v", reg.ID, from, err)
		return nil, fmt.Errorf("%w: payment cannot be refunded: %v", ErrInternal, err)
	}
	if err := reg.StartRefund(now); err != nil {
		return nil, fmt.Errorf("%w: registration cannot be refunded: %v", ErrInternal, err)
	}

	if err := uc.paymentRepo.UpdateStatus(ctx, reg.ID, from, payment.Status, now); err != nil {
		uc.logger.Error("CancelRegistration: failed to update payment for registration=%d: %v", reg.ID, err)
		return nil, fmt.Errorf("%w: failed to update payment: %v", ErrInternal, err)
	}

	task := domain.NewRefundTask(reg, payment)
	return &task, nil
}

// publishRefund публикует задачу и отмечает публикацию; ошибки только логируются
func (uc *UseCase) publishRefund(ctx context.Context, task domain.RefundTask) bool {
	if err := uc.refunds.PublishRefund(ctx, task); err != nil {
		uc.logger.Error("CancelRegistration: failed to publish refund for registration=%d, left to reconciler: %v",
			task.RegistrationID, err)
		return false
	}
	uc.metrics.RefundPublished(refundSourceCancel)

	if err := uc.registrationRepo.MarkRefundPublished(ctx, task.RegistrationID, uc.timeProvider.Now()); err != nil {
		uc.logger.Warn("CancelRegistration: failed to mark refund published for registration=%d: %v", task.RegistrationID, err)
	}

	return true
}

type discardMetrics struct{}

func (discardMetrics) RefundPublished(string) {}
