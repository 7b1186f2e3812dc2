package confirm_payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	paymentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/payment"
	registrationRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/registration"
)

// UseCase use case для подтверждения оплаты записи
type UseCase struct {
	registrationRepo RegistrationRepository
	paymentRepo      PaymentRepository
	txManager        TransactionManager
	timeProvider     TimeProvider
	logger           Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	registrationRepo RegistrationRepository,
	paymentRepo PaymentRepository,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		registrationRepo: registrationRepo,
		paymentRepo:      paymentRepo,
		txManager:        txManager,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// Execute выполняет use case подтверждения оплаты
// Запись и платёж меняются в одной транзакции; pending запись становится confirmed
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ConfirmPayment: registration=%d, amount=%d", req.RegistrationID, req.Amount)

	if err := validateRequest(req); err != nil {
		uc.logger.Warn("ConfirmPayment: validation failed: %v", err)
		return nil, err
	}

	now := uc.timeProvider.Now()
	var result *Response

	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		// 1. Блокируем запись
		reg, err := uc.registrationRepo.GetByID(txCtx, req.RegistrationID)
		if err != nil {
			if errors.Is(err, registrationRepo.ErrRegistrationNotFound) {
				uc.logger.Warn("ConfirmPayment: registration=%d not found", req.RegistrationID)
				return ErrRegistrationNotFound
			}
			uc.logger.Error("ConfirmPayment: failed to get registration=%d: %v", req.RegistrationID, err)
			return fmt.Errorf("%w: failed to get registration: %v", ErrInternal, err)
		}

		if req.PatientID != 0 && reg.PatientID != req.PatientID {
			uc.logger.Warn("ConfirmPayment: patient=%d does not own registration=%d", req.PatientID, reg.ID)
			return ErrAccessDenied
		}

		// 2. Проверки: повторная оплата, сумма, закрытая запись
		if reg.PaymentStatus != domain.PaymentPending {
			uc.logger.Warn("ConfirmPayment: registration=%d already paid, payment=%s", reg.ID, reg.PaymentStatus)
			return domain.ErrAlreadyPaid
		}

		if req.Amount != reg.Fee {
			uc.logger.Warn("ConfirmPayment: amount %d does not match fee %d for registration=%d", req.Amount, reg.Fee, reg.ID)
			return ErrAmountMismatch
		}

		expected := reg.State()
		if err := reg.MarkPaid(now); err != nil {
			uc.logger.Warn("ConfirmPayment: registration=%d cannot be paid: %v", reg.ID, err)
			return err
		}

		if reg.Status == domain.RegistrationPending {
			if err := reg.Confirm(now); err != nil {
				return fmt.Errorf("%w: failed to confirm registration: %v", ErrInternal, err)
			}
		}

		// 3. Платёж
		payment, err := uc.paymentRepo.Create(txCtx, &domain.Payment{
			RegistrationID: reg.ID,
			TransactionNo:  transactionNo(req),
			Amount:         reg.Fee,
			Status:         domain.PaymentPaid,
			PaidAt:         &now,
		})
		if err != nil {
			if errors.Is(err, paymentRepo.ErrDuplicatePayment) {
				uc.logger.Warn("ConfirmPayment: duplicate transaction for registration=%d", reg.ID)
				return ErrDuplicateTransaction
			}
			uc.logger.Error("ConfirmPayment: failed to create payment for registration=%d: %v", reg.ID, err)
			return fmt.Errorf("%w: failed to create payment: %v", ErrInternal, err)
		}

		// 4. Запись
		if err := uc.registrationRepo.UpdateState(txCtx, reg, expected); err != nil {
			uc.logger.Error("ConfirmPayment: failed to update registration=%d: %v", reg.ID, err)
			return fmt.Errorf("%w: failed to update registration: %v", ErrInternal, err)
		}

		result = &Response{
			ID:             reg.ID,
			RegistrationNo: reg.RegistrationNo,
			Status:         string(reg.Status),
			PaymentStatus:  string(reg.PaymentStatus),
			TransactionNo:  payment.TransactionNo,
			Amount:         payment.Amount,
			PaidAt:         now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("ConfirmPayment: registration=%d paid, transaction=%s", result.ID, result.TransactionNo)
	return result, nil
}

func validateRequest(req *Request) error {
	if req.RegistrationID <= 0 {
		return fmt.Errorf("%w: registrationID must be positive", ErrInvalidInput)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if req.TransactionNo != nil && strings.TrimSpace(*req.TransactionNo) == "" {
		return fmt.Errorf("%w: transactionNo must not be empty", ErrInvalidInput)
	}
	return nil
}

func transactionNo(req *Request) string {
	if req.TransactionNo != nil {
		return strings.TrimSpace(*req.TransactionNo)
	}
	return "TXN" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
